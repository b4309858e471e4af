package dataops

import (
	"fmt"

	"github.com/dataops-hq/dataops-assistant/internal/registry"
	"github.com/dataops-hq/dataops-assistant/internal/tools"
)

// Toolset bundles the five tool groups over one workspace.
type Toolset struct {
	Pipelines *PipelineTools
	KeyVault  *KeyVaultTools
	Logs      *LogTools
	Terraform *TerraformTools
	Cloud     *CloudTools
}

// NewToolset constructs every tool group over a shared workspace snapshot.
func NewToolset(ws *Workspace, plansDir, appLogPath string) *Toolset {
	return &Toolset{
		Pipelines: NewPipelineTools(ws),
		KeyVault:  NewKeyVaultTools(ws),
		Logs:      NewLogTools(ws, appLogPath),
		Terraform: NewTerraformTools(ws, plansDir),
		Cloud:     NewCloudTools(ws),
	}
}

// RegisterAll registers the ten diagnostic tools with their schemas. The
// registration order is the catalog order the model sees.
func (ts *Toolset) RegisterAll(reg *registry.Registry) error {
	defs := []registry.Definition{
		{
			Name:        "get_pipeline_status",
			Description: "Get current status and recent run history of an ADF pipeline",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name": {Type: "string", Description: "Name of the ADF pipeline"},
					"environment":   {Type: "string", Description: "Environment (dev/prod)"},
				},
				Required: []string{"pipeline_name"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name":       {Type: "string"},
					"last_run_status":     {Type: "string"},
					"last_run_start":      {Type: "string"},
					"last_run_end":        {Type: "string"},
					"last_success_time":   {Type: "string"},
					"last_failure_reason": {Type: "string"},
					"recent_runs":         {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
				},
			},
			Handler: ts.Pipelines.GetPipelineStatus,
		},
		{
			Name:        "get_pipeline_dependencies",
			Description: "Analyze pipeline dependencies including upstream/downstream pipelines, datasets, and linked services",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name": {Type: "string", Description: "Name of the ADF pipeline"},
					"environment":   {Type: "string", Description: "Environment (dev/prod)"},
				},
				Required: []string{"pipeline_name"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name":        {Type: "string"},
					"upstream_pipelines":   {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
					"downstream_pipelines": {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
					"datasets_consumed":    {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
					"datasets_produced":    {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
					"linked_services":      {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
				},
			},
			Handler: ts.Pipelines.GetPipelineDependencies,
		},
		{
			Name:        "get_failed_tasks_summary",
			Description: "Summarize failed activities across pipeline runs within a time window",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name":     {Type: "string", Description: "Name of the ADF pipeline"},
					"time_window_hours": {Type: "integer", Description: "Time window in hours"},
				},
				Required: []string{"pipeline_name"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"pipeline_name":     {Type: "string"},
					"time_window_hours": {Type: "integer"},
					"total_failures":    {Type: "integer"},
					"failed_tasks":      {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
				},
			},
			Handler: ts.Pipelines.GetFailedTasksSummary,
		},
		{
			Name:        "get_keyvault_secrets",
			Description: "List secrets from Key Vault with metadata and risk levels",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"prefix":            {Type: "string", Description: "Filter secrets by name prefix"},
					"include_high_risk": {Type: "boolean", Description: "Include high-risk secrets"},
				},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"secrets":     {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"total_count": {Type: "integer"},
				},
			},
			Handler: ts.KeyVault.GetKeyVaultSecrets,
		},
		{
			Name:        "get_secret_usage",
			Description: "Find which pipelines and linked services use a specific secret",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"secret_name": {Type: "string", Description: "Name of the Key Vault secret"},
				},
				Required: []string{"secret_name"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"secret_name": {Type: "string"},
					"usage_count": {Type: "integer"},
					"usages":      {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
				},
			},
			Handler: ts.KeyVault.GetSecretUsage,
		},
		{
			Name:        "fetch_logs",
			Description: "Fetch logs from ADF or application sources with filtering",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"source":        {Type: "string", Description: "Log source: adf or app"},
					"pipeline_name": {Type: "string", Description: "Filter by pipeline name"},
					"run_id":        {Type: "string", Description: "Filter by run ID"},
					"time_start":    {Type: "string", Description: "Window start (RFC 3339)"},
					"time_end":      {Type: "string", Description: "Window end (RFC 3339)"},
					"level":         {Type: "string", Description: "Filter by level: Error, Warning, or Info"},
				},
				Required: []string{"source"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"logs":        {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"total_count": {Type: "integer"},
				},
			},
			Handler: ts.Logs.FetchLogs,
		},
		{
			Name:        "summarize_error_logs",
			Description: "Cluster and summarize error logs to identify patterns and anomalies",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"source":            {Type: "string", Description: "Log source: adf or app"},
					"pipeline_name":     {Type: "string", Description: "Filter by pipeline name"},
					"time_window_hours": {Type: "integer", Description: "Time window in hours"},
				},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"total_errors": {Type: "integer"},
					"clusters":     {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"anomalies":    {Type: "array", Items: &tools.JSONSchema{Type: "string"}},
				},
			},
			Handler: ts.Logs.SummarizeErrorLogs,
		},
		{
			Name:        "parse_terraform_plan",
			Description: "Parse Terraform plan JSON and categorize resource changes with risk analysis",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"plan_path": {Type: "string", Description: "Path to terraform plan JSON file"},
				},
				Required: []string{"plan_path"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"plan_path":         {Type: "string"},
					"created_resources": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"updated_resources": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"deleted_resources": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"high_risk_changes": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
				},
			},
			Handler: ts.Terraform.ParseTerraformPlan,
		},
		{
			Name:        "detect_infra_drift",
			Description: "Detect drift between Terraform plan and actual cloud resources",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"resource_group_name": {Type: "string", Description: "Resource group to inspect"},
					"plan_path":           {Type: "string", Description: "Path to terraform plan JSON file"},
				},
				Required: []string{"resource_group_name"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"has_drift":   {Type: "boolean"},
					"drift_items": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
				},
			},
			Handler: ts.Terraform.DetectInfraDrift,
		},
		{
			Name:        "list_resources_by_tag",
			Description: "List cloud resources filtered by tag key and value",
			InputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"tag_key":        {Type: "string", Description: "Tag key to match"},
					"tag_value":      {Type: "string", Description: "Tag value to match"},
					"resource_group": {Type: "string", Description: "Restrict to one resource group"},
				},
				Required: []string{"tag_key", "tag_value"},
			},
			OutputSchema: tools.JSONSchema{
				Type: "object",
				Properties: map[string]*tools.JSONSchema{
					"resources": {Type: "array", Items: &tools.JSONSchema{Type: "object"}},
					"count":     {Type: "integer"},
				},
			},
			Handler: ts.Cloud.ListResourcesByTag,
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("registering %s: %w", def.Name, err)
		}
	}
	return nil
}
