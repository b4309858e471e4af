package dataops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Log sources and levels.
const (
	LogSourceADF = "adf"
	LogSourceApp = "app"

	LogLevelError   = "Error"
	LogLevelWarning = "Warning"
	LogLevelInfo    = "Info"
)

// plainLogLine matches the fallback plain-text log format:
// "YYYY-MM-DD HH:MM:SS LEVEL message".
var plainLogLine = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})\s+(\w+)\s+(.*)$`)

// Normalization patterns for error clustering: volatile tokens are replaced
// with placeholders so messages differing only in timestamps, IDs, or
// counters land in the same cluster.
var (
	datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	timePattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	numPattern  = regexp.MustCompile(`\d+`)
)

// LogTools implements log fetching and error-log summarization.
type LogTools struct {
	ws         *Workspace
	appLogPath string
}

// NewLogTools creates log tools over a workspace snapshot and an
// application log file path.
func NewLogTools(ws *Workspace, appLogPath string) *LogTools {
	return &LogTools{ws: ws, appLogPath: appLogPath}
}

// FetchLogsInput filters the log query.
type FetchLogsInput struct {
	Source       string     `json:"source"`
	PipelineName string     `json:"pipeline_name"`
	RunID        string     `json:"run_id"`
	TimeStart    *time.Time `json:"time_start"`
	TimeEnd      *time.Time `json:"time_end"`
	Level        string     `json:"level"`
}

// LogEntry is one normalized log record from either source.
type LogEntry struct {
	Timestamp    time.Time      `json:"timestamp"`
	Level        string         `json:"level"`
	Source       string         `json:"source"`
	Message      string         `json:"message"`
	PipelineName string         `json:"pipeline_name,omitempty"`
	RunID        string         `json:"run_id,omitempty"`
	ActivityName string         `json:"activity_name,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// FetchLogsOutput lists the matching entries.
type FetchLogsOutput struct {
	Logs       []LogEntry `json:"logs"`
	TotalCount int        `json:"total_count"`
}

// FetchLogs reads logs from the requested source with time, level,
// pipeline, and run filters. ADF entries are synthesized from the run
// records; app entries are parsed from the log file (JSON lines, with a
// plain-text regex fallback).
func (t *LogTools) FetchLogs(_ context.Context, raw json.RawMessage) (any, error) {
	var input FetchLogsInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}

	end := t.ws.Now()
	if input.TimeEnd != nil {
		end = *input.TimeEnd
	}
	start := end.Add(-24 * time.Hour)
	if input.TimeStart != nil {
		start = *input.TimeStart
	}

	var logs []LogEntry
	switch input.Source {
	case LogSourceADF:
		logs = t.fetchADFLogs(input, start, end)
	case LogSourceApp:
		logs = t.fetchAppLogs(input, start, end)
	default:
		return nil, fmt.Errorf("unsupported log source: %s", input.Source)
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	return FetchLogsOutput{Logs: logs, TotalCount: len(logs)}, nil
}

// fetchADFLogs turns pipeline run records into log entries: one per run,
// plus one per failed activity of a failed run.
func (t *LogTools) fetchADFLogs(input FetchLogsInput, start, end time.Time) []LogEntry {
	var logs []LogEntry
	for _, run := range t.ws.Runs {
		if input.PipelineName != "" && run.PipelineName != input.PipelineName {
			continue
		}
		if input.RunID != "" && run.RunID != input.RunID {
			continue
		}
		if run.StartTime.Before(start) || run.StartTime.After(end) {
			continue
		}

		level := LogLevelInfo
		if run.Status == StatusFailed {
			level = LogLevelError
		}
		message := run.Message
		if message == "" {
			message = "No message"
		}
		if input.Level == "" || level == input.Level {
			logs = append(logs, LogEntry{
				Timestamp:    run.StartTime,
				Level:        level,
				Source:       LogSourceADF,
				Message:      fmt.Sprintf("Pipeline run %s: %s", run.Status, message),
				PipelineName: run.PipelineName,
				RunID:        run.RunID,
				Metadata:     map[string]any{"status": run.Status},
			})
		}

		if run.Status != StatusFailed {
			continue
		}
		for _, activity := range run.Activities {
			if activity.Status != StatusFailed {
				continue
			}
			if input.Level != "" && input.Level != LogLevelError {
				continue
			}
			code := activity.ErrorCode
			if code == "" {
				code = "UNKNOWN"
			}
			errMsg := activity.ErrorMessage
			if errMsg == "" {
				errMsg = "No error message"
			}
			timestamp := run.StartTime
			if activity.EndTime != nil {
				timestamp = *activity.EndTime
			}
			logs = append(logs, LogEntry{
				Timestamp:    timestamp,
				Level:        LogLevelError,
				Source:       LogSourceADF,
				Message:      fmt.Sprintf("Activity %s failed: %s", activity.Name, errMsg),
				PipelineName: run.PipelineName,
				RunID:        run.RunID,
				ActivityName: activity.Name,
				ErrorCode:    code,
				Metadata:     map[string]any{"activity_type": activity.Type},
			})
		}
	}
	return logs
}

// appLogLine is the JSON-lines format of the application log file.
type appLogLine struct {
	Timestamp    time.Time      `json:"timestamp"`
	Level        string         `json:"level"`
	Message      string         `json:"message"`
	PipelineName string         `json:"pipeline_name"`
	RunID        string         `json:"run_id"`
	Metadata     map[string]any `json:"metadata"`
}

// fetchAppLogs reads the application log file line by line. JSON lines are
// preferred; anything else falls back to the plain-text format.
func (t *LogTools) fetchAppLogs(input FetchLogsInput, start, end time.Time) []LogEntry {
	file, err := os.Open(t.appLogPath)
	if err != nil {
		log.Printf("Warning: app log file not available: %v", err)
		return nil
	}
	defer file.Close()

	var logs []LogEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var parsed appLogLine
		if err := json.Unmarshal([]byte(line), &parsed); err == nil && !parsed.Timestamp.IsZero() {
			level := normalizeLevel(parsed.Level)
			if parsed.Timestamp.Before(start) || parsed.Timestamp.After(end) {
				continue
			}
			if input.Level != "" && level != input.Level {
				continue
			}
			if input.PipelineName != "" && parsed.PipelineName != input.PipelineName {
				continue
			}
			if input.RunID != "" && parsed.RunID != input.RunID {
				continue
			}
			metadata := parsed.Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			logs = append(logs, LogEntry{
				Timestamp:    parsed.Timestamp,
				Level:        level,
				Source:       LogSourceApp,
				Message:      parsed.Message,
				PipelineName: parsed.PipelineName,
				RunID:        parsed.RunID,
				Metadata:     metadata,
			})
			continue
		}

		// Plain-text lines carry no pipeline or run attribution, so any
		// pipeline or run filter excludes them.
		if input.PipelineName != "" || input.RunID != "" {
			continue
		}
		match := plainLogLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		timestamp, err := time.Parse("2006-01-02 15:04:05", match[1])
		if err != nil {
			continue
		}
		if timestamp.Before(start) || timestamp.After(end) {
			continue
		}
		level := normalizeLevel(match[2])
		if input.Level != "" && level != input.Level {
			continue
		}
		logs = append(logs, LogEntry{
			Timestamp: timestamp,
			Level:     level,
			Source:    LogSourceApp,
			Message:   match[3],
			Metadata:  map[string]any{},
		})
	}
	return logs
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "error", "err":
		return LogLevelError
	case "warning", "warn":
		return LogLevelWarning
	default:
		return LogLevelInfo
	}
}

// SummarizeErrorLogsInput selects the error population to cluster.
type SummarizeErrorLogsInput struct {
	Source          string `json:"source"`
	PipelineName    string `json:"pipeline_name"`
	TimeWindowHours int    `json:"time_window_hours"`
}

// ErrorCluster is one group of similar error messages.
type ErrorCluster struct {
	ClusterID         string    `json:"cluster_id"`
	ErrorPattern      string    `json:"error_pattern"`
	SampleMessage     string    `json:"sample_message"`
	Count             int       `json:"count"`
	FirstOccurrence   time.Time `json:"first_occurrence"`
	LastOccurrence    time.Time `json:"last_occurrence"`
	AffectedPipelines []string  `json:"affected_pipelines"`
}

// SummarizeErrorLogsOutput reports clusters plus anomaly observations.
type SummarizeErrorLogsOutput struct {
	TotalErrors int            `json:"total_errors"`
	Clusters    []ErrorCluster `json:"clusters"`
	Anomalies   []string       `json:"anomalies"`
}

// SummarizeErrorLogs fetches the window's error logs, clusters them by
// error code and normalized message pattern, and flags anomalies: patterns
// first seen in the recent half of the window and patterns firing faster
// than twice an hour.
func (t *LogTools) SummarizeErrorLogs(ctx context.Context, raw json.RawMessage) (any, error) {
	var input SummarizeErrorLogsInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}
	if input.Source == "" {
		input.Source = LogSourceADF
	}
	if input.TimeWindowHours <= 0 {
		input.TimeWindowHours = 24
	}

	end := t.ws.Now()
	start := end.Add(-time.Duration(input.TimeWindowHours) * time.Hour)
	fetchInput, err := json.Marshal(FetchLogsInput{
		Source:       input.Source,
		PipelineName: input.PipelineName,
		TimeStart:    &start,
		TimeEnd:      &end,
		Level:        LogLevelError,
	})
	if err != nil {
		return nil, err
	}
	fetched, err := t.FetchLogs(ctx, fetchInput)
	if err != nil {
		return nil, err
	}
	logs := fetched.(FetchLogsOutput).Logs

	clusters := clusterErrors(logs)
	anomalies := identifyAnomalies(clusters, end, input.TimeWindowHours)

	return SummarizeErrorLogsOutput{
		TotalErrors: len(logs),
		Clusters:    clusters,
		Anomalies:   anomalies,
	}, nil
}

// clusterErrors groups error entries by error code plus the first sentence
// of the normalized message, sorted by cluster size descending.
func clusterErrors(logs []LogEntry) []ErrorCluster {
	type group struct {
		pattern string
		entries []LogEntry
	}
	groups := map[string]*group{}
	var order []string

	for _, entry := range logs {
		normalized := entry.Message
		normalized = datePattern.ReplaceAllString(normalized, "<date>")
		normalized = timePattern.ReplaceAllString(normalized, "<time>")
		normalized = uuidPattern.ReplaceAllString(normalized, "<uuid>")
		normalized = numPattern.ReplaceAllString(normalized, "<num>")

		pattern := strings.SplitN(normalized, ".", 2)[0]
		if len(pattern) > 100 {
			pattern = pattern[:100]
		}

		key := pattern
		if entry.ErrorCode != "" {
			key = entry.ErrorCode + "|" + pattern
		}
		g, exists := groups[key]
		if !exists {
			g = &group{pattern: pattern}
			groups[key] = g
			order = append(order, key)
		}
		g.entries = append(g.entries, entry)
	}

	clusters := []ErrorCluster{}
	for i, key := range order {
		g := groups[key]
		first := g.entries[0].Timestamp
		last := g.entries[0].Timestamp
		pipelines := map[string]bool{}
		affected := []string{}
		for _, entry := range g.entries {
			if entry.Timestamp.Before(first) {
				first = entry.Timestamp
			}
			if entry.Timestamp.After(last) {
				last = entry.Timestamp
			}
			if entry.PipelineName != "" && !pipelines[entry.PipelineName] {
				pipelines[entry.PipelineName] = true
				affected = append(affected, entry.PipelineName)
			}
		}
		clusters = append(clusters, ErrorCluster{
			ClusterID:         fmt.Sprintf("error_cluster_%d", i),
			ErrorPattern:      g.pattern,
			SampleMessage:     g.entries[0].Message,
			Count:             len(g.entries),
			FirstOccurrence:   first,
			LastOccurrence:    last,
			AffectedPipelines: affected,
		})
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})
	return clusters
}

// identifyAnomalies reports newly-appeared patterns and high-frequency
// patterns as plain observations for the model.
func identifyAnomalies(clusters []ErrorCluster, now time.Time, windowHours int) []string {
	anomalies := []string{}
	recentThreshold := now.Add(-time.Duration(windowHours/2) * time.Hour)

	for _, cluster := range clusters {
		if cluster.FirstOccurrence.After(recentThreshold) {
			anomalies = append(anomalies, fmt.Sprintf(
				"New error pattern detected: '%s' first seen at %s, occurred %d times",
				cluster.ErrorPattern, cluster.FirstOccurrence.Format(time.RFC3339), cluster.Count))
		}
		if cluster.Count > 10 {
			span := cluster.LastOccurrence.Sub(cluster.FirstOccurrence).Hours()
			if span > 0 {
				rate := float64(cluster.Count) / span
				if rate > 2 {
					anomalies = append(anomalies, fmt.Sprintf(
						"High frequency error: '%s' occurring at %.1f times per hour",
						cluster.ErrorPattern, rate))
				}
			}
		}
	}
	return anomalies
}
