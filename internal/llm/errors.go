package llm

import "fmt"

// ReasoningUnavailableError wraps any provider-side failure (auth, quota,
// network, timeout). It is fatal to the orchestration run that hit it:
// retries are a caller concern, never layered in here, to avoid silently
// multiplying cost and latency on every round.
type ReasoningUnavailableError struct {
	Provider string
	Err      error
}

func (e *ReasoningUnavailableError) Error() string {
	return fmt.Sprintf("reasoning provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ReasoningUnavailableError) Unwrap() error {
	return e.Err
}
