package mcp

import "fmt"

// DiscoveryError reports a failure to fetch the remote tool catalog. It is
// fatal to the orchestration run that needed it: without a catalog there is
// nothing to orchestrate.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("tool discovery failed: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// RemoteUnavailableError reports a transport-level invocation failure:
// timeout, connection refused, or a non-2xx status. Recoverable — the
// controller turns it into an in-transcript error message.
type RemoteUnavailableError struct {
	Tool string
	Err  error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("tool server unreachable while invoking %s: %v", e.Tool, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}

// ToolExecutionError reports an application-level failure: the tool server
// answered with a well-formed {success:false, error} envelope. Recoverable,
// same as RemoteUnavailableError.
type ToolExecutionError struct {
	Tool    string
	Message string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}
