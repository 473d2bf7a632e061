package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
	"grapebot/app/service/trace"
)

// NoDataMessage is returned verbatim when a query chain produced no rows.
// The interpreter oracle is not consulted in that case.
const NoDataMessage = "I could not find relevant data in the knowledge graph to answer your question."

func (s *Service) interpret(
	ctx context.Context,
	payload map[string]any,
	execCtx *ExecutionContext,
	kgName string,
	rec *trace.Recorder,
) string {
	rows := execCtx.LastRows
	if limit := payloadInt(payload, "max_rows", maxInterpretRows); limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	guidance := payloadString(payload, "guidance")

	return s.summarizeRows(ctx, execCtx.Question, execCtx.ScenarioID, kgName, guidance, rows, rec)
}

// summarizeRows turns raw bindings into a natural-language answer. Empty
// input short-circuits to the fixed no-data message; oracle failure degrades
// to a deterministic row-count summary instead of propagating the error.
func (s *Service) summarizeRows(
	ctx context.Context,
	question, scenarioID, kgName, guidance string,
	rows []graphdb.Row,
	rec *trace.Recorder,
) string {
	if len(rows) == 0 {
		rec.Complete(trace.StepResultInterpretation, "No data found, returning standard message", nil)
		return NoDataMessage
	}

	var sb strings.Builder
	sb.WriteString("You are interpreting knowledge graph query results for a medical question.\n\n")
	fmt.Fprintf(&sb, "Question: %s\n", question)
	fmt.Fprintf(&sb, "Knowledge graph: %s\n", kgName)
	if scenarioID != "" {
		fmt.Fprintf(&sb, "Scenario: %s\n", scenarioID)
	}
	if guidance != "" {
		fmt.Fprintf(&sb, "Guidance: %s\n", guidance)
	}
	sb.WriteString("\nQuery results (CSV):\n```csv\n")
	sb.WriteString(rowsToCSV(rows, maxInterpretRows))
	sb.WriteString("```\n\n")
	sb.WriteString("Answer the question directly in plain language, citing concrete entities from the results. Do not mention SPARQL, URIs, or internal tooling.")

	answer, err := s.interpreter.Invoke(ctx, sb.String())
	if err != nil {
		rec.Fail(trace.StepResultInterpretation, "Interpretation failed, using degraded summary", err)
		return fmt.Sprintf("Found %d results in the knowledge graph for your question, but a natural-language summary is currently unavailable.", len(rows))
	}

	answer = strings.TrimSpace(answer)

	rec.Complete(trace.StepResultInterpretation, "Generated final answer", map[string]any{
		"answer_length": len(answer),
		"rows_used":     len(rows),
	})

	return answer
}

// parseEntityList extracts a JSON string array from an oracle reply,
// tolerating fences and surrounding prose.
func parseEntityList(content string) []string {
	text := content
	if fenced := strings.Index(text, "["); fenced >= 0 {
		if end := strings.LastIndex(text, "]"); end > fenced {
			text = text[fenced : end+1]
		}
	}

	var entities []string
	if err := json.Unmarshal([]byte(text), &entities); err != nil {
		return nil
	}

	cleaned := make([]string, 0, len(entities))
	for _, entity := range entities {
		entity = strings.TrimSpace(entity)
		if entity != "" {
			cleaned = append(cleaned, entity)
		}
	}

	return cleaned
}
