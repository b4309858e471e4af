package dataops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// statusWindow is how far back get_pipeline_status looks for runs.
const statusWindow = 7 * 24 * time.Hour

// PipelineTools implements the data-factory diagnostic operations.
type PipelineTools struct {
	ws *Workspace
}

// NewPipelineTools creates pipeline tools over a workspace snapshot.
func NewPipelineTools(ws *Workspace) *PipelineTools {
	return &PipelineTools{ws: ws}
}

// GetPipelineStatusInput selects the pipeline to inspect.
type GetPipelineStatusInput struct {
	PipelineName string `json:"pipeline_name"`
	Environment  string `json:"environment"`
}

// PipelineRunInfo is one run in the recent-run history.
type PipelineRunInfo struct {
	RunID           string     `json:"run_id"`
	PipelineName    string     `json:"pipeline_name"`
	Status          string     `json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *float64   `json:"duration_seconds"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// GetPipelineStatusOutput summarizes a pipeline's recent execution history.
type GetPipelineStatusOutput struct {
	PipelineName      string            `json:"pipeline_name"`
	LastRunStatus     string            `json:"last_run_status"`
	LastRunStart      time.Time         `json:"last_run_start"`
	LastRunEnd        *time.Time        `json:"last_run_end"`
	LastSuccessTime   *time.Time        `json:"last_success_time"`
	LastFailureReason string            `json:"last_failure_reason,omitempty"`
	RecentRuns        []PipelineRunInfo `json:"recent_runs"`
}

// GetPipelineStatus reports the last run, the most recent success and
// failure, and up to ten recent runs inside a seven-day window, newest
// first.
func (t *PipelineTools) GetPipelineStatus(_ context.Context, raw json.RawMessage) (any, error) {
	var input GetPipelineStatusInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}

	now := t.ws.Now()
	runs := t.ws.RunsForPipeline(input.PipelineName, now.Add(-statusWindow), now)
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found for pipeline: %s", input.PipelineName)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})

	lastRun := runs[0]
	output := GetPipelineStatusOutput{
		PipelineName:  input.PipelineName,
		LastRunStatus: lastRun.Status,
		LastRunStart:  lastRun.StartTime,
		LastRunEnd:    lastRun.EndTime,
	}

	for _, run := range runs {
		if run.Status == StatusSucceeded {
			start := run.StartTime
			output.LastSuccessTime = &start
			break
		}
	}
	for _, run := range runs {
		if run.Status == StatusFailed {
			output.LastFailureReason = run.Message
			break
		}
	}

	limit := len(runs)
	if limit > 10 {
		limit = 10
	}
	for _, run := range runs[:limit] {
		info := PipelineRunInfo{
			RunID:        run.RunID,
			PipelineName: run.PipelineName,
			Status:       run.Status,
			StartTime:    run.StartTime,
			EndTime:      run.EndTime,
		}
		if run.EndTime != nil {
			d := run.EndTime.Sub(run.StartTime).Seconds()
			info.DurationSeconds = &d
		}
		if run.Status == StatusFailed {
			info.ErrorMessage = run.Message
		}
		output.RecentRuns = append(output.RecentRuns, info)
	}
	return output, nil
}

// GetPipelineDependenciesInput selects the pipeline to analyze.
type GetPipelineDependenciesInput struct {
	PipelineName string `json:"pipeline_name"`
	Environment  string `json:"environment"`
}

// GetPipelineDependenciesOutput describes the pipeline's position in the
// dependency graph.
type GetPipelineDependenciesOutput struct {
	PipelineName        string   `json:"pipeline_name"`
	UpstreamPipelines   []string `json:"upstream_pipelines"`
	DownstreamPipelines []string `json:"downstream_pipelines"`
	DatasetsConsumed    []string `json:"datasets_consumed"`
	DatasetsProduced    []string `json:"datasets_produced"`
	LinkedServices      []string `json:"linked_services"`
}

// GetPipelineDependencies walks the pipeline's activities for
// ExecutePipeline references and Copy datasets, then scans every other
// pipeline to find the ones that execute this one.
func (t *PipelineTools) GetPipelineDependencies(_ context.Context, raw json.RawMessage) (any, error) {
	var input GetPipelineDependenciesInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}

	pipeline, ok := t.ws.Pipeline(input.PipelineName)
	if !ok {
		return nil, fmt.Errorf("pipeline not found: %s", input.PipelineName)
	}

	output := GetPipelineDependenciesOutput{
		PipelineName:        input.PipelineName,
		UpstreamPipelines:   []string{},
		DownstreamPipelines: []string{},
		DatasetsConsumed:    []string{},
		DatasetsProduced:    []string{},
		LinkedServices:      []string{},
	}

	consumed := map[string]bool{}
	produced := map[string]bool{}
	services := map[string]bool{}

	for _, activity := range pipeline.Activities {
		switch activity.Type {
		case activityExecutePipeline:
			if activity.Pipeline != "" {
				output.UpstreamPipelines = append(output.UpstreamPipelines, activity.Pipeline)
			}
		case activityCopy:
			if activity.SourceDataset != "" && !consumed[activity.SourceDataset] {
				consumed[activity.SourceDataset] = true
				output.DatasetsConsumed = append(output.DatasetsConsumed, activity.SourceDataset)
			}
			if activity.SinkDataset != "" && !produced[activity.SinkDataset] {
				produced[activity.SinkDataset] = true
				output.DatasetsProduced = append(output.DatasetsProduced, activity.SinkDataset)
			}
		}
		if activity.LinkedService != "" && !services[activity.LinkedService] {
			services[activity.LinkedService] = true
			output.LinkedServices = append(output.LinkedServices, activity.LinkedService)
		}
	}

	for _, other := range t.ws.Pipelines {
		if other.Name == input.PipelineName {
			continue
		}
		for _, activity := range other.Activities {
			if activity.Type == activityExecutePipeline && activity.Pipeline == input.PipelineName {
				output.DownstreamPipelines = append(output.DownstreamPipelines, other.Name)
				break
			}
		}
	}
	return output, nil
}

// GetFailedTasksSummaryInput selects the pipeline and lookback window.
type GetFailedTasksSummaryInput struct {
	PipelineName    string `json:"pipeline_name"`
	TimeWindowHours int    `json:"time_window_hours"`
}

// FailedTask aggregates one (activity, error code) failure group.
type FailedTask struct {
	ActivityName string    `json:"activity_name"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
	FailureCount int       `json:"failure_count"`
	FirstFailure time.Time `json:"first_failure"`
	LastFailure  time.Time `json:"last_failure"`
}

// GetFailedTasksSummaryOutput reports failure aggregation over the window.
type GetFailedTasksSummaryOutput struct {
	PipelineName    string       `json:"pipeline_name"`
	TimeWindowHours int          `json:"time_window_hours"`
	TotalFailures   int          `json:"total_failures"`
	FailedTasks     []FailedTask `json:"failed_tasks"`
}

// GetFailedTasksSummary aggregates failed activities across the pipeline's
// failed runs in the window, keyed by (activity name, error code) and
// sorted by failure count descending.
func (t *PipelineTools) GetFailedTasksSummary(_ context.Context, raw json.RawMessage) (any, error) {
	var input GetFailedTasksSummaryInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.TimeWindowHours <= 0 {
		input.TimeWindowHours = 24
	}

	now := t.ws.Now()
	window := time.Duration(input.TimeWindowHours) * time.Hour
	runs := t.ws.RunsForPipeline(input.PipelineName, now.Add(-window), now)

	type failureKey struct {
		activity string
		code     string
	}
	groups := map[failureKey]*FailedTask{}
	var order []failureKey
	totalFailures := 0

	for _, run := range runs {
		if run.Status != StatusFailed {
			continue
		}
		totalFailures++
		for _, activity := range run.Activities {
			if activity.Status != StatusFailed {
				continue
			}
			code := activity.ErrorCode
			if code == "" {
				code = "UNKNOWN"
			}
			message := activity.ErrorMessage
			if message == "" {
				message = "No error message"
			}
			failedAt := run.StartTime
			if activity.EndTime != nil {
				failedAt = *activity.EndTime
			}

			key := failureKey{activity: activity.Name, code: code}
			group, exists := groups[key]
			if !exists {
				groups[key] = &FailedTask{
					ActivityName: activity.Name,
					ErrorCode:    code,
					ErrorMessage: message,
					FailureCount: 1,
					FirstFailure: failedAt,
					LastFailure:  failedAt,
				}
				order = append(order, key)
				continue
			}
			group.FailureCount++
			if failedAt.Before(group.FirstFailure) {
				group.FirstFailure = failedAt
			}
			if failedAt.After(group.LastFailure) {
				group.LastFailure = failedAt
			}
		}
	}

	output := GetFailedTasksSummaryOutput{
		PipelineName:    input.PipelineName,
		TimeWindowHours: input.TimeWindowHours,
		TotalFailures:   totalFailures,
		FailedTasks:     []FailedTask{},
	}
	for _, key := range order {
		output.FailedTasks = append(output.FailedTasks, *groups[key])
	}
	sort.SliceStable(output.FailedTasks, func(i, j int) bool {
		return output.FailedTasks[i].FailureCount > output.FailedTasks[j].FailureCount
	})
	return output, nil
}
