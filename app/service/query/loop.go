package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
	"grapebot/app/client/oracle"
	"grapebot/app/service/trace"
)

const maxRegenAttempts = 7

// Executor is the narrow contract to the graph-query execution service. The
// loop only recovers from *graphdb.StatusError; any other error propagates.
type Executor interface {
	Execute(ctx context.Context, query, kgName string) (*graphdb.Result, error)
}

// Request is one query-execution step as the plan produced it. Query may be
// empty, templated or malformed.
type Request struct {
	Query        string
	KGName       string
	ScenarioID   string
	ScenarioName string
	Question     string
	SourceURI    string
	TargetURI    string
}

type state int

const (
	statePrepare state = iota
	stateExecute
	stateRegenerate
	stateFallback
	stateFail
)

// Loop drives a single query-execution step through preparation, execution,
// bounded regeneration and a one-shot template fallback. Total cost is
// bounded by (maxRegenAttempts + 1) executions per fallback round.
type Loop struct {
	llm      oracle.Invoker
	executor Executor
}

func NewLoop(llm oracle.Invoker, executor Executor) *Loop {
	return &Loop{
		llm:      llm,
		executor: executor,
	}
}

// Run executes the step. Returns the result and the query text that finally
// succeeded; on exhaustion the original execution error is returned and the
// last attempted query recorded in the trace.
func (l *Loop) Run(ctx context.Context, req Request, rec *trace.Recorder) (*graphdb.Result, string, error) {
	current := statePrepare

	var (
		queryText     string
		lastErr       error
		regenAttempts int
		fallbackUsed  bool
	)

	for {
		switch current {
		case statePrepare:
			queryText = l.Prepare(req)
			rec.Log(trace.StepQueryExecution, "Prepared SPARQL payload", trace.StatusInProgress, map[string]any{
				"query_preview": preview(queryText),
				"source_uri":    req.SourceURI,
				"target_uri":    req.TargetURI,
			})
			current = stateExecute

		case stateExecute:
			result, err := l.executor.Execute(ctx, queryText, req.KGName)
			if err == nil {
				return result, queryText, nil
			}

			var statusErr *graphdb.StatusError
			if !errors.As(err, &statusErr) {
				return nil, queryText, err
			}

			lastErr = err
			current = stateRegenerate

		case stateRegenerate:
			if regenAttempts >= maxRegenAttempts {
				current = stateFallback
				continue
			}

			regenerated := l.regenerate(ctx, req, queryText, lastErr, regenAttempts+1)
			if regenerated == "" {
				// No usable repair; does not consume an attempt.
				current = stateFallback
				continue
			}

			regenAttempts++
			queryText = regenerated
			rec.Log(trace.StepQueryExecution,
				fmt.Sprintf("Retrying SPARQL with regenerated query (attempt %d)", regenAttempts),
				trace.StatusInProgress,
				map[string]any{"query_preview": preview(queryText)})
			current = stateExecute

		case stateFallback:
			if fallbackUsed {
				current = stateFail
				continue
			}

			fallbackQuery := Template(req.ScenarioID, req.SourceURI, req.TargetURI)
			if fallbackQuery == "" || fallbackQuery == queryText {
				current = stateFail
				continue
			}

			fallbackUsed = true
			regenAttempts = 0
			queryText = fallbackQuery
			rec.Log(trace.StepQueryExecution, "Retrying SPARQL with fallback query", trace.StatusInProgress, map[string]any{
				"query_preview": preview(queryText),
			})
			current = stateExecute

		case stateFail:
			rec.Log(trace.StepQueryExecution, "Last SPARQL query before failure", trace.StatusFailed, map[string]any{
				"query_preview": preview(queryText),
			})
			return nil, queryText, lastErr
		}
	}
}

// Prepare substitutes resolved URIs into placeholder tokens and guarantees a
// well-formed, non-empty query, falling back to the scenario template and
// finally to the diagnostic query.
func (l *Loop) Prepare(req Request) string {
	queryText := req.Query

	replacements := map[string]string{}
	if req.SourceURI != "" {
		replacements["{{SOURCE_URI}}"] = "<" + req.SourceURI + ">"
		replacements["<SOURCE_URI>"] = "<" + req.SourceURI + ">"
		replacements["{{CONCEPT_URI}}"] = "<" + req.SourceURI + ">"
		replacements["<CONCEPT_URI>"] = "<" + req.SourceURI + ">"
	}
	if req.TargetURI != "" {
		replacements["{{TARGET_URI}}"] = "<" + req.TargetURI + ">"
		replacements["<TARGET_URI>"] = "<" + req.TargetURI + ">"
	}

	for placeholder, value := range replacements {
		queryText = strings.ReplaceAll(queryText, placeholder, value)
	}

	upper := strings.ToUpper(queryText)
	if strings.Contains(upper, "CONSTRUCT") && !strings.Contains(upper, "SELECT") {
		if fallback := Template(req.ScenarioID, req.SourceURI, req.TargetURI); fallback != "" {
			queryText = fallback
		}
	}

	if shouldApplyTemplate(queryText) {
		if template := Template(req.ScenarioID, req.SourceURI, req.TargetURI); template != "" {
			queryText = template
		}
	}

	if strings.TrimSpace(queryText) == "" {
		queryText = DiagnosticQuery
	}

	return queryText
}

var templateMarkers = []string{
	"{{SOURCE_URI}}",
	"{{TARGET_URI}}",
	"{{CONCEPT_URI}}",
	"<SOURCE_URI>",
	"<TARGET_URI>",
	"<CONCEPT_URI>",
	"__USE_TEMPLATE__",
}

func shouldApplyTemplate(queryText string) bool {
	if strings.TrimSpace(queryText) == "" {
		return true
	}

	for _, marker := range templateMarkers {
		if strings.Contains(queryText, marker) {
			return true
		}
	}

	upper := strings.ToUpper(strings.TrimSpace(queryText))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "ASK") && !strings.HasPrefix(upper, "CONSTRUCT") {
		return true
	}

	return false
}

func (l *Loop) regenerate(ctx context.Context, req Request, previousQuery string, execErr error, attempt int) string {
	sourceURI := req.SourceURI
	if sourceURI == "" {
		sourceURI = "UNKNOWN_SOURCE"
	}
	targetURI := req.TargetURI
	if targetURI == "" {
		targetURI = "UNKNOWN_TARGET"
	}

	errorText := "No details"
	if execErr != nil {
		errorText = execErr.Error()
		if len(errorText) > 500 {
			errorText = errorText[:500]
		}
	}

	if previousQuery == "" {
		previousQuery = "(none)"
	}

	prompt := fmt.Sprintf(`You are debugging a SPARQL query for the scenario "%s" (attempt %d).

User question:
%s

Known URIs:
- Source: <%s>
- Target: <%s>

Previous query that failed:
`+"```sparql\n%s\n```"+`

Error:
%s

Requirements:
- Return ONLY a valid SPARQL SELECT query.
- Use the URIs exactly as provided (replace placeholders like <{{SOURCE_URI}}> with <%s>).
- Try to retrieve paths up to 3 hops between the source and target. Include intermediate nodes and relation predicates.
- Return columns such as ?source ?intermediate ?target and relation variables (?relation1, ?relation2, etc.).
- Prefer limited results (e.g., LIMIT 25).

Respond with the SPARQL query only.`,
		req.ScenarioName, attempt, req.Question, sourceURI, targetURI, previousQuery, errorText, sourceURI)

	content, err := l.llm.Invoke(ctx, prompt)
	if err != nil {
		return ""
	}

	if fenced := oracle.ExtractFenced(content, "sparql"); fenced != "" {
		content = fenced
	}
	content = strings.TrimSpace(content)

	upper := strings.ToUpper(content)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "ASK") {
		return content
	}

	return ""
}

func preview(queryText string) string {
	if len(queryText) > 200 {
		return queryText[:200]
	}

	return queryText
}
