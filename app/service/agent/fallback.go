package agent

import (
	"context"
	"fmt"

	"grapebot/app/service/graph"
	"grapebot/app/service/query"
	"grapebot/app/service/trace"
)

// runFallbackFlow is the hardwired plan used when the oracle's plan cannot
// be parsed: extract entities, resolve the top entity to a concept, pull its
// one-hop neighbourhood, interpret. Each step tolerates the previous one
// coming up empty.
func (s *Service) runFallbackFlow(ctx context.Context, question, kgName string, rec *trace.Recorder) (*Result, error) {
	rec.Log(trace.StepScenarioDetection, "Using default execution flow", trace.StatusInProgress, nil)

	def := s.registry.Default()
	accumulator := graph.NewAccumulator()

	execCtx := &ExecutionContext{
		Question:   question,
		ScenarioID: def.ID,
	}

	execCtx.Entities = s.extractEntities(ctx, question, rec)

	searchText := question
	if len(execCtx.Entities) > 0 {
		searchText = execCtx.Entities[0]
	}

	var queries []string

	candidates, err := s.searcher.Search(ctx, searchText, kgName, 3)
	if err != nil {
		rec.Fail(trace.StepConceptSearch, fmt.Sprintf("Concept search failed for '%s'", searchText), err)
	} else {
		rec.Complete(trace.StepConceptSearch,
			fmt.Sprintf("Found %d similar concepts for '%s'", len(candidates), searchText),
			map[string]any{"query": searchText, "concepts_found": len(candidates)})

		if best := s.resolver.Select(ctx, searchText, candidates); best != nil {
			execCtx.ConceptURIs = append(execCtx.ConceptURIs, best.URI)
		}
		for _, candidate := range candidates {
			accumulator.AddNode(s.resolver.ExpandURI(candidate.URI), candidate.Label, "concept")
		}
	}

	if uri := execCtx.SourceURI(); uri != "" {
		req := query.Request{
			Query:        fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o } LIMIT 20", uri),
			KGName:       kgName,
			ScenarioID:   def.ID,
			ScenarioName: def.Name,
			Question:     question,
			SourceURI:    uri,
		}

		result, finalQuery, runErr := s.loop.Run(ctx, req, rec)
		if runErr != nil {
			rec.Error("Default flow query failed: "+runErr.Error(), runErr)
			return nil, runErr
		}

		execCtx.LastRows = result.Rows
		execCtx.LastQuery = finalQuery
		queries = append(queries, finalQuery)

		rec.Complete(trace.StepQueryExecution,
			fmt.Sprintf("Executed SPARQL query: %d results", len(result.Rows)),
			map[string]any{"query": previewText(finalQuery), "results_count": len(result.Rows)})

		if len(result.Rows) > 0 {
			accumulator.Merge(result.Rows, uri, "")
		}
	}

	rec.Start(trace.StepResultInterpretation, "Generating final summary...")
	rows := execCtx.LastRows
	if len(rows) > 10 {
		rows = rows[:10]
	}
	summary := s.summarizeRows(ctx, question, def.ID, kgName, "", rows, rec)

	rec.Success("Default flow completed")

	return &Result{
		Scenario:      def.ID,
		ScenarioName:  def.Name,
		Question:      question,
		KGName:        kgName,
		Nodes:         accumulator.Nodes(),
		Links:         accumulator.Links(),
		Summary:       summary,
		SparqlQueries: queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}, nil
}
