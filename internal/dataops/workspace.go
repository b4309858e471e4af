// Package dataops implements the ten diagnostic tools the MCP server
// exposes: pipeline status and dependencies, Key Vault secrets and usage,
// log fetching and clustering, Terraform plan analysis and drift detection,
// and tagged-resource listing.
//
// The tools read from a workspace snapshot — a YAML file describing the
// data factory, its runs, the vault, and the cloud resources — plus
// Terraform plan JSON files and application log files on disk. Handlers are
// pure functions over that data: typed input in, typed output or error out.
package dataops

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Pipeline run statuses, matching the ADF vocabulary.
const (
	StatusSucceeded  = "Succeeded"
	StatusFailed     = "Failed"
	StatusInProgress = "InProgress"
	StatusQueued     = "Queued"
	StatusCancelled  = "Cancelled"
)

// Activity types the dependency analysis understands.
const (
	activityExecutePipeline = "ExecutePipeline"
	activityCopy            = "Copy"
)

// Activity is one step of a pipeline definition.
type Activity struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Pipeline      string `yaml:"pipeline,omitempty"`
	SourceDataset string `yaml:"source_dataset,omitempty"`
	SinkDataset   string `yaml:"sink_dataset,omitempty"`
	LinkedService string `yaml:"linked_service,omitempty"`
}

// Pipeline is a data factory pipeline definition.
type Pipeline struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Activities  []Activity `yaml:"activities,omitempty"`
}

// ActivityRun records the outcome of one activity within a pipeline run.
type ActivityRun struct {
	Name         string     `yaml:"name"`
	Type         string     `yaml:"type,omitempty"`
	Status       string     `yaml:"status"`
	ErrorCode    string     `yaml:"error_code,omitempty"`
	ErrorMessage string     `yaml:"error_message,omitempty"`
	EndTime      *time.Time `yaml:"end_time,omitempty"`
}

// PipelineRun records one execution of a pipeline.
type PipelineRun struct {
	RunID        string        `yaml:"run_id,omitempty"`
	PipelineName string        `yaml:"pipeline_name"`
	Status       string        `yaml:"status"`
	StartTime    time.Time     `yaml:"start_time"`
	EndTime      *time.Time    `yaml:"end_time,omitempty"`
	Message      string        `yaml:"message,omitempty"`
	Activities   []ActivityRun `yaml:"activities,omitempty"`
}

// Secret is a Key Vault secret's metadata. Values are never part of the
// snapshot; only properties are exposed to the tools.
type Secret struct {
	Name      string            `yaml:"name"`
	Enabled   bool              `yaml:"enabled"`
	CreatedOn time.Time         `yaml:"created_on"`
	UpdatedOn time.Time         `yaml:"updated_on"`
	Tags      map[string]string `yaml:"tags,omitempty"`
}

// LinkedService is a data factory linked service; its properties may
// reference Key Vault secrets by name.
type LinkedService struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

// Resource is one cloud resource visible to the drift and tag tools.
type Resource struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	Location      string            `yaml:"location,omitempty"`
	ResourceGroup string            `yaml:"resource_group,omitempty"`
	Tags          map[string]string `yaml:"tags,omitempty"`
}

// Workspace is the loaded snapshot all tools read from. It is immutable
// after loading, so sharing it across concurrent dispatches needs no
// locking.
type Workspace struct {
	Environment    string          `yaml:"environment"`
	Pipelines      []Pipeline      `yaml:"pipelines"`
	Runs           []PipelineRun   `yaml:"runs"`
	Secrets        []Secret        `yaml:"secrets"`
	LinkedServices []LinkedService `yaml:"linked_services"`
	Resources      []Resource      `yaml:"resources"`

	// Now supplies the reference time for windowed queries. Defaults to
	// time.Now; tests pin it to the snapshot's era.
	Now func() time.Time `yaml:"-"`
}

// LoadWorkspace reads and validates a workspace snapshot file. Runs without
// an explicit run ID get one assigned so every run is addressable.
func LoadWorkspace(path string) (*Workspace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace snapshot: %w", err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(raw, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace snapshot: %w", err)
	}
	if ws.Environment == "" {
		ws.Environment = "dev"
	}
	for i := range ws.Runs {
		if ws.Runs[i].RunID == "" {
			ws.Runs[i].RunID = uuid.NewString()
		}
	}
	ws.Now = time.Now
	return &ws, nil
}

// Pipeline looks up a pipeline definition by name.
func (ws *Workspace) Pipeline(name string) (*Pipeline, bool) {
	for i := range ws.Pipelines {
		if ws.Pipelines[i].Name == name {
			return &ws.Pipelines[i], true
		}
	}
	return nil, false
}

// RunsForPipeline returns the runs of one pipeline whose start time falls
// inside [from, to].
func (ws *Workspace) RunsForPipeline(name string, from, to time.Time) []PipelineRun {
	var out []PipelineRun
	for _, run := range ws.Runs {
		if run.PipelineName != name {
			continue
		}
		if run.StartTime.Before(from) || run.StartTime.After(to) {
			continue
		}
		out = append(out, run)
	}
	return out
}
