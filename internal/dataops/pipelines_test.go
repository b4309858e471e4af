package dataops

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func runTool(t *testing.T, handler func(context.Context, json.RawMessage) (any, error), input string) any {
	t.Helper()
	result, err := handler(context.Background(), json.RawMessage(input))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	return result
}

func TestGetPipelineStatus(t *testing.T) {
	tools := NewPipelineTools(testWorkspace())
	result := runTool(t, tools.GetPipelineStatus, `{"pipeline_name":"daily_sales"}`)

	output := result.(GetPipelineStatusOutput)
	if output.LastRunStatus != StatusSucceeded {
		t.Errorf("LastRunStatus = %s, want Succeeded", output.LastRunStatus)
	}
	if output.LastSuccessTime == nil || !output.LastSuccessTime.Equal(fixedNow.Add(-2*time.Hour)) {
		t.Errorf("LastSuccessTime = %v", output.LastSuccessTime)
	}
	if output.LastFailureReason != "Copy activity failed" {
		t.Errorf("LastFailureReason = %q", output.LastFailureReason)
	}
	// The ancient run is outside the seven-day window.
	if len(output.RecentRuns) != 3 {
		t.Fatalf("got %d recent runs, want 3", len(output.RecentRuns))
	}
	if output.RecentRuns[0].RunID != "run-1" || output.RecentRuns[1].RunID != "run-2" {
		t.Errorf("recent runs not newest first: %s, %s", output.RecentRuns[0].RunID, output.RecentRuns[1].RunID)
	}
	if output.RecentRuns[0].DurationSeconds == nil || *output.RecentRuns[0].DurationSeconds != 600 {
		t.Errorf("DurationSeconds = %v, want 600", output.RecentRuns[0].DurationSeconds)
	}
	if output.RecentRuns[1].ErrorMessage != "Copy activity failed" {
		t.Errorf("failed run carries message %q", output.RecentRuns[1].ErrorMessage)
	}
}

func TestGetPipelineStatusNoRuns(t *testing.T) {
	tools := NewPipelineTools(testWorkspace())
	_, err := tools.GetPipelineStatus(context.Background(), json.RawMessage(`{"pipeline_name":"ingest_raw"}`))
	if err == nil {
		t.Fatal("expected an error for a pipeline with no runs")
	}
}

func TestGetPipelineDependencies(t *testing.T) {
	tools := NewPipelineTools(testWorkspace())
	result := runTool(t, tools.GetPipelineDependencies, `{"pipeline_name":"daily_sales"}`)

	output := result.(GetPipelineDependenciesOutput)
	if len(output.UpstreamPipelines) != 1 || output.UpstreamPipelines[0] != "ingest_raw" {
		t.Errorf("UpstreamPipelines = %v", output.UpstreamPipelines)
	}
	if len(output.DownstreamPipelines) != 1 || output.DownstreamPipelines[0] != "prod_reporting" {
		t.Errorf("DownstreamPipelines = %v", output.DownstreamPipelines)
	}
	if len(output.DatasetsConsumed) != 1 || output.DatasetsConsumed[0] != "raw_sales" {
		t.Errorf("DatasetsConsumed = %v", output.DatasetsConsumed)
	}
	if len(output.DatasetsProduced) != 1 || output.DatasetsProduced[0] != "curated_sales" {
		t.Errorf("DatasetsProduced = %v", output.DatasetsProduced)
	}
	if len(output.LinkedServices) != 1 || output.LinkedServices[0] != "sql_prod" {
		t.Errorf("LinkedServices = %v", output.LinkedServices)
	}
}

func TestGetPipelineDependenciesUnknownPipeline(t *testing.T) {
	tools := NewPipelineTools(testWorkspace())
	_, err := tools.GetPipelineDependencies(context.Background(), json.RawMessage(`{"pipeline_name":"nope"}`))
	if err == nil {
		t.Fatal("expected an error for an unknown pipeline")
	}
}

func TestGetFailedTasksSummary(t *testing.T) {
	tools := NewPipelineTools(testWorkspace())

	// Default 24h window sees only run-2.
	result := runTool(t, tools.GetFailedTasksSummary, `{"pipeline_name":"daily_sales"}`)
	output := result.(GetFailedTasksSummaryOutput)
	if output.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", output.TotalFailures)
	}
	if len(output.FailedTasks) != 1 {
		t.Fatalf("got %d failed tasks, want 1", len(output.FailedTasks))
	}
	task := output.FailedTasks[0]
	if task.ActivityName != "CopySales" || task.ErrorCode != "UserErrorSqlTimeout" {
		t.Errorf("task = %+v", task)
	}
	if task.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", task.FailureCount)
	}

	// A 48h window also picks up run-3 and aggregates into one group.
	result = runTool(t, tools.GetFailedTasksSummary, `{"pipeline_name":"daily_sales","time_window_hours":48}`)
	output = result.(GetFailedTasksSummaryOutput)
	if output.TotalFailures != 2 {
		t.Errorf("TotalFailures = %d, want 2", output.TotalFailures)
	}
	if len(output.FailedTasks) != 1 {
		t.Fatalf("got %d failed task groups, want 1", len(output.FailedTasks))
	}
	task = output.FailedTasks[0]
	if task.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", task.FailureCount)
	}
	if !task.FirstFailure.Before(task.LastFailure) {
		t.Errorf("FirstFailure %v not before LastFailure %v", task.FirstFailure, task.LastFailure)
	}
}
