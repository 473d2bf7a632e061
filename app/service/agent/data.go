package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
	"grapebot/app/service/graph"
	"grapebot/app/service/trace"
)

// StepKind is the closed set of plan step variants. Anything else is
// rejected at parse time and routed to the fallback flow.
type StepKind int

const (
	StepEntityExtraction StepKind = iota
	StepConceptSearch
	StepQueryExecution
	StepNeighbourhood
	StepInterpretation
)

// PlanStep is one validated tool call from the oracle's execution plan.
type PlanStep struct {
	Kind    StepKind
	Tool    string
	Payload map[string]any
}

type rawPlanStep struct {
	Tool    string         `json:"tool"`
	Payload map[string]any `json:"payload"`
}

func classifyTool(tool string) (StepKind, error) {
	switch {
	case strings.Contains(tool, "extract_entities"):
		return StepEntityExtraction, nil
	case strings.Contains(tool, "neighbourhood"):
		return StepNeighbourhood, nil
	case strings.Contains(tool, "concepts"):
		return StepConceptSearch, nil
	case strings.Contains(tool, "sparql"):
		return StepQueryExecution, nil
	case strings.Contains(tool, "interpret"):
		return StepInterpretation, nil
	}

	return 0, fmt.Errorf("unknown tool endpoint %q", tool)
}

// ExecutionContext carries the per-request state threaded through plan steps.
// Owned by a single request, discarded at completion.
type ExecutionContext struct {
	Entities    []string
	ConceptURIs []string
	LastRows    []graphdb.Row
	LastQuery   string
	Question    string
	ScenarioID  string
}

// SourceURI is the first resolved concept, by convention the primary subject.
func (c *ExecutionContext) SourceURI() string {
	if len(c.ConceptURIs) > 0 {
		return c.ConceptURIs[0]
	}

	return ""
}

// TargetURI is the second resolved concept, by convention the primary object.
func (c *ExecutionContext) TargetURI() string {
	if len(c.ConceptURIs) > 1 {
		return c.ConceptURIs[1]
	}

	return ""
}

// Result is the assembled answer surfaced to the transport layer.
type Result struct {
	Scenario      string               `json:"scenario"`
	ScenarioName  string               `json:"scenario_name"`
	Question      string               `json:"question"`
	KGName        string               `json:"kg_name"`
	Nodes         []graph.Node         `json:"nodes"`
	Links         []graph.Link         `json:"links"`
	Summary       string               `json:"summary"`
	SparqlQueries []string             `json:"sparql_queries"`
	Trace         []trace.Entry        `json:"trace"`
	TraceDisplay  []trace.DisplayEntry `json:"trace_formatted"`
}

func payloadString(payload map[string]any, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}

	return ""
}

func payloadInt(payload map[string]any, key string, fallback int) int {
	switch value := payload[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	case json.Number:
		if parsed, err := value.Int64(); err == nil {
			return int(parsed)
		}
	}

	return fallback
}

func payloadStrings(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(raw))
	for _, item := range raw {
		if text, ok := item.(string); ok {
			result = append(result, text)
		}
	}

	return result
}
