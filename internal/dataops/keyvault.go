package dataops

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Secret risk levels derived from tags or naming convention.
const (
	riskHigh   = "high"
	riskMedium = "medium"
)

// KeyVaultTools implements the secret inventory and usage operations.
type KeyVaultTools struct {
	ws *Workspace
}

// NewKeyVaultTools creates key vault tools over a workspace snapshot.
func NewKeyVaultTools(ws *Workspace) *KeyVaultTools {
	return &KeyVaultTools{ws: ws}
}

// GetKeyVaultSecretsInput filters the secret listing. IncludeHighRisk is a
// pointer so an absent field defaults to true rather than false.
type GetKeyVaultSecretsInput struct {
	Prefix          string `json:"prefix"`
	IncludeHighRisk *bool  `json:"include_high_risk"`
}

// SecretInfo is one secret's metadata plus its derived risk level.
type SecretInfo struct {
	Name      string            `json:"name"`
	Enabled   bool              `json:"enabled"`
	CreatedOn time.Time         `json:"created_on"`
	UpdatedOn time.Time         `json:"updated_on"`
	Tags      map[string]string `json:"tags"`
	RiskLevel string            `json:"risk_level"`
}

// GetKeyVaultSecretsOutput lists matching secrets.
type GetKeyVaultSecretsOutput struct {
	Secrets    []SecretInfo `json:"secrets"`
	TotalCount int          `json:"total_count"`
}

// GetKeyVaultSecrets lists secrets with metadata and risk levels. Risk
// comes from a "risk" tag when present, otherwise from the naming
// convention: anything mentioning prod or high-risk is high, the rest
// medium.
func (t *KeyVaultTools) GetKeyVaultSecrets(_ context.Context, raw json.RawMessage) (any, error) {
	var input GetKeyVaultSecretsInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	includeHighRisk := true
	if input.IncludeHighRisk != nil {
		includeHighRisk = *input.IncludeHighRisk
	}

	output := GetKeyVaultSecretsOutput{Secrets: []SecretInfo{}}
	for _, secret := range t.ws.Secrets {
		if input.Prefix != "" && !strings.HasPrefix(secret.Name, input.Prefix) {
			continue
		}

		risk := secret.Tags["risk"]
		if risk == "" {
			lower := strings.ToLower(secret.Name)
			if strings.Contains(lower, "prod") || strings.Contains(lower, "high-risk") {
				risk = riskHigh
			} else {
				risk = riskMedium
			}
		}
		if !includeHighRisk && risk == riskHigh {
			continue
		}

		tags := secret.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		output.Secrets = append(output.Secrets, SecretInfo{
			Name:      secret.Name,
			Enabled:   secret.Enabled,
			CreatedOn: secret.CreatedOn,
			UpdatedOn: secret.UpdatedOn,
			Tags:      tags,
			RiskLevel: risk,
		})
	}
	output.TotalCount = len(output.Secrets)
	return output, nil
}

// GetSecretUsageInput names the secret to trace.
type GetSecretUsageInput struct {
	SecretName string `json:"secret_name"`
}

// SecretUsage is one pipeline/linked-service pair that depends on a secret.
type SecretUsage struct {
	PipelineName         string `json:"pipeline_name"`
	LinkedServiceName    string `json:"linked_service_name"`
	Environment          string `json:"environment"`
	IsProductionCritical bool   `json:"is_production_critical"`
}

// GetSecretUsageOutput lists everything depending on the secret.
type GetSecretUsageOutput struct {
	SecretName string        `json:"secret_name"`
	UsageCount int           `json:"usage_count"`
	Usages     []SecretUsage `json:"usages"`
}

// GetSecretUsage finds the linked services whose properties reference the
// secret, then the pipelines whose activities use those linked services.
func (t *KeyVaultTools) GetSecretUsage(_ context.Context, raw json.RawMessage) (any, error) {
	var input GetSecretUsageInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.SecretName == "" {
		return nil, fmt.Errorf("secret_name is required")
	}

	referencing := map[string]bool{}
	for _, ls := range t.ws.LinkedServices {
		for _, value := range ls.Properties {
			if strings.Contains(value, input.SecretName) {
				referencing[ls.Name] = true
				break
			}
		}
	}

	output := GetSecretUsageOutput{
		SecretName: input.SecretName,
		Usages:     []SecretUsage{},
	}
	if len(referencing) == 0 {
		return output, nil
	}

	for _, pipeline := range t.ws.Pipelines {
		seen := map[string]bool{}
		for _, activity := range pipeline.Activities {
			if activity.LinkedService == "" || !referencing[activity.LinkedService] || seen[activity.LinkedService] {
				continue
			}
			seen[activity.LinkedService] = true

			isProdCritical := strings.Contains(strings.ToLower(pipeline.Name), "prod") ||
				t.ws.Environment == "prod"
			output.Usages = append(output.Usages, SecretUsage{
				PipelineName:         pipeline.Name,
				LinkedServiceName:    activity.LinkedService,
				Environment:          t.ws.Environment,
				IsProductionCritical: isProdCritical,
			})
		}
	}
	output.UsageCount = len(output.Usages)
	return output, nil
}
