package dataops

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Terraform change actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionNoop   = "no-op"
	ActionRead   = "read"
)

// immutableProperties lists the properties that force replacement for the
// resource types the drift analysis understands. Changing one of these is
// a destructive update even when the plan calls it an update.
var immutableProperties = map[string][]string{
	"azurerm_virtual_machine":       {"location", "vm_size"},
	"azurerm_storage_account":       {"location", "account_tier"},
	"azurerm_virtual_network":       {"location", "address_space"},
	"azurerm_linux_virtual_machine": {"location", "size"},
}

// TerraformTools implements plan parsing and drift detection.
type TerraformTools struct {
	ws       *Workspace
	plansDir string
}

// NewTerraformTools creates terraform tools over a workspace snapshot and a
// directory of plan JSON files.
func NewTerraformTools(ws *Workspace, plansDir string) *TerraformTools {
	return &TerraformTools{ws: ws, plansDir: plansDir}
}

// terraformPlan is the subset of `terraform show -json` output the tools
// read.
type terraformPlan struct {
	ResourceChanges []struct {
		Address string `json:"address"`
		Type    string `json:"type"`
		Name    string `json:"name"`
		Change  struct {
			Actions []string       `json:"actions"`
			Before  map[string]any `json:"before"`
			After   map[string]any `json:"after"`
		} `json:"change"`
	} `json:"resource_changes"`
}

// ParseTerraformPlanInput names the plan file, absolute or relative to the
// configured plans directory.
type ParseTerraformPlanInput struct {
	PlanPath string `json:"plan_path"`
}

// ResourceChange is one planned change to one resource.
type ResourceChange struct {
	ResourceType  string         `json:"resource_type"`
	ResourceName  string         `json:"resource_name"`
	Address       string         `json:"address"`
	Actions       []string       `json:"actions"`
	Before        map[string]any `json:"before"`
	After         map[string]any `json:"after"`
	IsDestructive bool           `json:"is_destructive"`
}

// ParseTerraformPlanOutput categorizes the plan's changes.
type ParseTerraformPlanOutput struct {
	PlanPath         string           `json:"plan_path"`
	CreatedResources []ResourceChange `json:"created_resources"`
	UpdatedResources []ResourceChange `json:"updated_resources"`
	DeletedResources []ResourceChange `json:"deleted_resources"`
	HighRiskChanges  []ResourceChange `json:"high_risk_changes"`
}

// ParseTerraformPlan loads a plan JSON file and buckets its resource
// changes into created, updated, and deleted, flagging deletions and
// immutable-property updates as high risk.
func (t *TerraformTools) ParseTerraformPlan(_ context.Context, raw json.RawMessage) (any, error) {
	var input ParseTerraformPlanInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.PlanPath == "" {
		return nil, fmt.Errorf("plan_path is required")
	}
	return t.parsePlan(input.PlanPath)
}

func (t *TerraformTools) parsePlan(planPath string) (*ParseTerraformPlanOutput, error) {
	path := planPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.plansDir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan file not found: %s", path)
	}
	var plan terraformPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}

	output := &ParseTerraformPlanOutput{
		PlanPath:         path,
		CreatedResources: []ResourceChange{},
		UpdatedResources: []ResourceChange{},
		DeletedResources: []ResourceChange{},
		HighRiskChanges:  []ResourceChange{},
	}

	for _, rc := range plan.ResourceChanges {
		actions := []string{}
		for _, action := range rc.Change.Actions {
			switch action {
			case ActionCreate, ActionUpdate, ActionDelete, ActionNoop, ActionRead:
				actions = append(actions, action)
			}
		}
		change := ResourceChange{
			ResourceType:  rc.Type,
			ResourceName:  rc.Name,
			Address:       rc.Address,
			Actions:       actions,
			Before:        rc.Change.Before,
			After:         rc.Change.After,
			IsDestructive: hasAction(actions, ActionDelete),
		}

		switch {
		case hasAction(actions, ActionCreate) && !hasAction(actions, ActionDelete):
			output.CreatedResources = append(output.CreatedResources, change)
		case hasAction(actions, ActionUpdate):
			output.UpdatedResources = append(output.UpdatedResources, change)
			if isDestructiveUpdate(rc.Type, rc.Change.Before, rc.Change.After) {
				output.HighRiskChanges = append(output.HighRiskChanges, change)
			}
		case hasAction(actions, ActionDelete):
			output.DeletedResources = append(output.DeletedResources, change)
			output.HighRiskChanges = append(output.HighRiskChanges, change)
		}
	}
	return output, nil
}

func hasAction(actions []string, want string) bool {
	for _, action := range actions {
		if action == want {
			return true
		}
	}
	return false
}

// isDestructiveUpdate reports whether an update changes an immutable
// property and therefore forces replacement.
func isDestructiveUpdate(resourceType string, before, after map[string]any) bool {
	if before == nil || after == nil {
		return false
	}
	for _, prop := range immutableProperties[resourceType] {
		if fmt.Sprint(before[prop]) != fmt.Sprint(after[prop]) {
			return true
		}
	}
	return false
}

// DetectInfraDriftInput selects the resource group and optional plan to
// compare against.
type DetectInfraDriftInput struct {
	ResourceGroupName string `json:"resource_group_name"`
	PlanPath          string `json:"plan_path"`
}

// DriftItem is one discrepancy between plan and cloud.
type DriftItem struct {
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
	DriftType    string `json:"drift_type"`
	Details      string `json:"details"`
}

// DetectInfraDriftOutput reports all discrepancies found.
type DetectInfraDriftOutput struct {
	HasDrift   bool        `json:"has_drift"`
	DriftItems []DriftItem `json:"drift_items"`
}

// DetectInfraDrift compares the plan's expected resources against the
// resource group's actual resources: resources in the cloud with no plan
// counterpart are extra_in_cloud, planned non-create resources with no
// cloud counterpart are missing_in_cloud.
func (t *TerraformTools) DetectInfraDrift(_ context.Context, raw json.RawMessage) (any, error) {
	var input DetectInfraDriftInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.ResourceGroupName == "" {
		return nil, fmt.Errorf("resource_group_name is required")
	}
	log.Printf("Detecting infrastructure drift for resource group: %s", input.ResourceGroupName)

	expected := map[string]ResourceChange{}
	if input.PlanPath != "" {
		plan, err := t.parsePlan(input.PlanPath)
		if err != nil {
			return nil, err
		}
		for _, change := range append(plan.CreatedResources, plan.UpdatedResources...) {
			expected[change.Address] = change
		}
	}

	actual := []Resource{}
	for _, resource := range t.ws.Resources {
		if resource.ResourceGroup == input.ResourceGroupName {
			actual = append(actual, resource)
		}
	}

	driftItems := []DriftItem{}
	if len(expected) > 0 {
		// Matching is deliberately loose: plan addresses and cloud resource
		// names rarely align exactly, so substring overlap either way counts
		// as a match.
		for _, resource := range actual {
			key := resource.Type + "/" + resource.Name
			found := false
			for address := range expected {
				if strings.Contains(address, key) || strings.Contains(key, address) ||
					strings.Contains(address, resource.Name) {
					found = true
					break
				}
			}
			if !found {
				driftItems = append(driftItems, DriftItem{
					ResourceType: resource.Type,
					ResourceName: resource.Name,
					DriftType:    "extra_in_cloud",
					Details:      "Resource exists in cloud but not defined in Terraform plan",
				})
			}
		}

		for _, change := range expected {
			found := false
			for _, resource := range actual {
				if strings.Contains(resource.Type+"/"+resource.Name, change.ResourceName) {
					found = true
					break
				}
			}
			if !found && !hasAction(change.Actions, ActionCreate) {
				driftItems = append(driftItems, DriftItem{
					ResourceType: change.ResourceType,
					ResourceName: change.ResourceName,
					DriftType:    "missing_in_cloud",
					Details:      "Resource defined in Terraform but not found in cloud",
				})
			}
		}
	}

	return DetectInfraDriftOutput{
		HasDrift:   len(driftItems) > 0,
		DriftItems: driftItems,
	}, nil
}
