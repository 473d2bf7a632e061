package trace

import (
	"log/slog"
	"time"
)

type StepKind string

const (
	StepScenarioDetection        StepKind = "scenario_detection"
	StepEntityExtraction         StepKind = "entity_extraction"
	StepConceptSearch            StepKind = "concept_search"
	StepNeighbourhoodExploration StepKind = "neighbourhood_exploration"
	StepQueryExecution           StepKind = "sparql_query"
	StepResultInterpretation     StepKind = "result_interpretation"
	StepError                    StepKind = "error"
	StepSuccess                  StepKind = "success"
)

type Status string

const (
	StatusStarted    Status = "started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	StepKind  StepKind       `json:"step_type"`
	Message   string         `json:"message"`
	Status    Status         `json:"status"`
	Details   map[string]any `json:"details"`
}

// DisplayEntry is the simplified, icon-prefixed form surfaced to the frontend.
type DisplayEntry struct {
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder collects the execution trace of a single request. Entries are
// append-only and never reordered. One recorder per request, not safe for
// concurrent use.
type Recorder struct {
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Log(kind StepKind, message string, status Status, details map[string]any) Entry {
	if details == nil {
		details = map[string]any{}
	}

	entry := Entry{
		Timestamp: time.Now(),
		StepKind:  kind,
		Message:   message,
		Status:    status,
		Details:   details,
	}

	r.entries = append(r.entries, entry)

	if status == StatusFailed {
		slog.Error("Trace step failed", "step", string(kind), "message", message, "details", details)
	} else {
		slog.Info("Trace step", "step", string(kind), "message", message, "status", string(status))
	}

	return entry
}

func (r *Recorder) Start(kind StepKind, message string) Entry {
	return r.Log(kind, message, StatusStarted, nil)
}

func (r *Recorder) Complete(kind StepKind, message string, details map[string]any) Entry {
	return r.Log(kind, message, StatusCompleted, details)
}

func (r *Recorder) Fail(kind StepKind, message string, err error) Entry {
	details := map[string]any{}
	if err != nil {
		details["error"] = err.Error()
	}

	return r.Log(kind, message, StatusFailed, details)
}

func (r *Recorder) Error(message string, err error) Entry {
	return r.Fail(StepError, message, err)
}

func (r *Recorder) Success(message string) Entry {
	return r.Log(StepSuccess, message, StatusCompleted, nil)
}

func (r *Recorder) Trace() []Entry {
	return r.entries
}

var stepIcons = map[StepKind]string{
	StepScenarioDetection:        "🎯",
	StepEntityExtraction:         "📝",
	StepConceptSearch:            "🔍",
	StepNeighbourhoodExploration: "🌐",
	StepQueryExecution:           "⚡",
	StepResultInterpretation:     "💬",
	StepError:                    "❌",
	StepSuccess:                  "✅",
}

func (r *Recorder) FormatForDisplay() []DisplayEntry {
	formatted := make([]DisplayEntry, 0, len(r.entries))

	for _, entry := range r.entries {
		icon, ok := stepIcons[entry.StepKind]
		if !ok {
			icon = "▪️"
		}

		formatted = append(formatted, DisplayEntry{
			Message:   icon + " " + entry.Message,
			Status:    entry.Status,
			Timestamp: entry.Timestamp,
		})
	}

	return formatted
}

// Summary aggregates step counts for diagnostics.
type Summary struct {
	TotalSteps int     `json:"total_steps"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

func (r *Recorder) Summary() Summary {
	summary := Summary{TotalSteps: len(r.entries)}

	for _, entry := range r.entries {
		switch entry.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusFailed:
			summary.Failed++
		}
	}

	if summary.TotalSteps > 0 {
		summary.SuccessRate = float64(summary.Completed) / float64(summary.TotalSteps)
	}

	return summary
}
