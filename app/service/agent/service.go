package agent

import (
	"context"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
	"grapebot/app/client/oracle"
	"grapebot/app/client/similarity"
	"grapebot/app/config"
	"grapebot/app/service/concept"
	"grapebot/app/service/graph"
	"grapebot/app/service/query"
	"grapebot/app/service/scenario"
	"grapebot/app/service/trace"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

type Service struct {
	cfg          *config.Config
	registry     *scenario.Registry
	resolver     *concept.Resolver
	searcher     similarity.Searcher
	executor     query.Executor
	loop         *query.Loop
	orchestrator oracle.Invoker
	interpreter  oracle.Invoker
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	orchestrator := oracle.NewClient(cfg.OpenAI.Orchestrator, 0)
	interpreter := oracle.NewClient(cfg.OpenAI.Interpreter, 0.7)

	registry, err := scenario.NewRegistry(orchestrator, cfg.Agent.DefaultScenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build scenario registry: %w", err)
	}

	executor := do.MustInvoke[*graphdb.Client](di)

	return &Service{
		cfg:          cfg,
		registry:     registry,
		resolver:     concept.NewResolver(orchestrator, nil),
		searcher:     do.MustInvoke[*similarity.Client](di),
		executor:     executor,
		loop:         query.NewLoop(orchestrator, executor),
		orchestrator: orchestrator,
		interpreter:  interpreter,
	}, nil
}

func (s *Service) Registry() *scenario.Registry {
	return s.registry
}

// Answer runs the full pipeline for one question: scenario detection (unless
// forced), oracle planning, step execution, final payload assembly.
func (s *Service) Answer(ctx context.Context, question, kgName, forcedScenario string, rec *trace.Recorder) (*Result, error) {
	if kgName == "" {
		kgName = s.cfg.Agent.DefaultGraph
	}

	scenarioID := forcedScenario
	if scenarioID == "" {
		scenarioID = s.registry.Detect(ctx, question, rec)
	}

	def, ok := s.registry.Get(scenarioID)
	if !ok {
		rec.Log(trace.StepScenarioDetection, "Unknown scenario requested, using default", trace.StatusInProgress, map[string]any{
			"requested": scenarioID,
		})
		def = s.registry.Default()
		scenarioID = def.ID
	}

	rec.Complete(trace.StepScenarioDetection, "Executing scenario: "+def.Name, map[string]any{
		"scenario_id": scenarioID,
		"kg_name":     kgName,
	})

	execCtx := &ExecutionContext{
		Question:   question,
		ScenarioID: scenarioID,
	}

	plan, err := s.buildPlan(ctx, def, question, kgName)
	if err != nil {
		rec.Error("Failed to parse execution plan: "+err.Error(), err)
		return s.runFallbackFlow(ctx, question, kgName, rec)
	}

	result, err := s.runPlan(ctx, def, plan, execCtx, kgName, rec)
	if err != nil {
		rec.Error("Scenario execution failed: "+err.Error(), err)
		return nil, err
	}

	return result, nil
}

func (s *Service) runPlan(
	ctx context.Context,
	def *scenario.Definition,
	plan []PlanStep,
	execCtx *ExecutionContext,
	kgName string,
	rec *trace.Recorder,
) (*Result, error) {
	accumulator := graph.NewAccumulator()

	var (
		queries []string
		summary string
	)

	for i, step := range plan {
		if payloadString(step.Payload, "kg_name") == "" {
			step.Payload["kg_name"] = kgName
		}

		rec.Start(stepTraceKind(step.Kind), fmt.Sprintf("Step %d: Calling %s", i+1, step.Tool))

		switch step.Kind {
		case StepEntityExtraction:
			entities := s.extractEntities(ctx, execCtx.Question, rec)
			execCtx.Entities = entities

		case StepConceptSearch:
			s.runConceptSearch(ctx, step, execCtx, accumulator, kgName, rec)

		case StepQueryExecution:
			if err := s.runQueryStep(ctx, def, step, execCtx, accumulator, kgName, &queries, rec); err != nil {
				return nil, err
			}

		case StepNeighbourhood:
			if err := s.runNeighbourhoodStep(ctx, def, step, execCtx, accumulator, kgName, &queries, rec); err != nil {
				return nil, err
			}

		case StepInterpretation:
			summary = s.interpret(ctx, step.Payload, execCtx, kgName, rec)
		}
	}

	// Safety net: interpret collected rows when the plan never did.
	if summary == "" && len(execCtx.LastRows) > 0 {
		rec.Start(trace.StepResultInterpretation, "Generating final summary...")
		rows := execCtx.LastRows
		if len(rows) > 10 {
			rows = rows[:10]
		}
		summary = s.summarizeRows(ctx, execCtx.Question, execCtx.ScenarioID, kgName, "", rows, rec)
	}

	rec.Success(fmt.Sprintf("Scenario '%s' completed successfully", def.Name))

	return &Result{
		Scenario:      def.ID,
		ScenarioName:  def.Name,
		Question:      execCtx.Question,
		KGName:        kgName,
		Nodes:         accumulator.Nodes(),
		Links:         accumulator.Links(),
		Summary:       summary,
		SparqlQueries: queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}, nil
}

func (s *Service) runConceptSearch(
	ctx context.Context,
	step PlanStep,
	execCtx *ExecutionContext,
	accumulator *graph.Accumulator,
	kgName string,
	rec *trace.Recorder,
) {
	queryText := payloadString(step.Payload, "query_text")
	if queryText == "" && len(execCtx.Entities) > 0 {
		queryText = execCtx.Entities[0]
	}
	if queryText == "" {
		queryText = execCtx.Question
	}

	limit := payloadInt(step.Payload, "limit", 5)

	candidates, err := s.searcher.Search(ctx, queryText, kgName, limit)
	if err != nil {
		rec.Fail(trace.StepConceptSearch, fmt.Sprintf("Concept search failed for '%s'", queryText), err)
		return
	}

	rec.Complete(trace.StepConceptSearch,
		fmt.Sprintf("Found %d similar concepts for '%s'", len(candidates), queryText),
		map[string]any{"query": queryText, "concepts_found": len(candidates)})

	if len(candidates) == 0 {
		return
	}

	if best := s.resolver.Select(ctx, queryText, candidates); best != nil {
		if !pie.Contains(execCtx.ConceptURIs, best.URI) {
			execCtx.ConceptURIs = append(execCtx.ConceptURIs, best.URI)
			rec.Complete(trace.StepConceptSearch, fmt.Sprintf("Selected concept for '%s'", queryText), map[string]any{
				"uri":   best.URI,
				"label": best.Label,
			})
		}
	} else {
		rec.Complete(trace.StepConceptSearch, fmt.Sprintf("No confident concept match for '%s'", queryText), map[string]any{
			"candidates": len(candidates),
		})
	}

	for _, candidate := range candidates {
		accumulator.AddNode(s.resolver.ExpandURI(candidate.URI), candidate.Label, "concept")
	}
}

func (s *Service) runQueryStep(
	ctx context.Context,
	def *scenario.Definition,
	step PlanStep,
	execCtx *ExecutionContext,
	accumulator *graph.Accumulator,
	kgName string,
	queries *[]string,
	rec *trace.Recorder,
) error {
	req := query.Request{
		Query:        payloadString(step.Payload, "query"),
		KGName:       kgName,
		ScenarioID:   def.ID,
		ScenarioName: def.Name,
		Question:     execCtx.Question,
		SourceURI:    execCtx.SourceURI(),
		TargetURI:    execCtx.TargetURI(),
	}

	result, finalQuery, err := s.loop.Run(ctx, req, rec)
	if err != nil {
		return err
	}

	execCtx.LastRows = result.Rows
	execCtx.LastQuery = finalQuery
	*queries = append(*queries, finalQuery)

	rec.Complete(trace.StepQueryExecution,
		fmt.Sprintf("Executed SPARQL query: %d results", len(result.Rows)),
		map[string]any{"query": previewText(finalQuery), "results_count": len(result.Rows)})

	if len(result.Rows) > 0 {
		accumulator.Merge(result.Rows, execCtx.SourceURI(), execCtx.TargetURI())
	}

	return nil
}

// runNeighbourhoodStep explores one hop around each requested URI,
// substituting unresolved placeholder tokens from the latest rows or the
// resolved concepts.
func (s *Service) runNeighbourhoodStep(
	ctx context.Context,
	def *scenario.Definition,
	step PlanStep,
	execCtx *ExecutionContext,
	accumulator *graph.Accumulator,
	kgName string,
	queries *[]string,
	rec *trace.Recorder,
) error {
	uris := s.neighbourhoodURIs(step, execCtx, rec)
	if len(uris) == 0 {
		rec.Complete(trace.StepNeighbourhoodExploration, "No URIs available for neighbourhood exploration", nil)
		return nil
	}

	for _, uri := range uris {
		req := query.Request{
			Query:        query.NeighbourhoodTemplate(uri),
			KGName:       kgName,
			ScenarioID:   def.ID,
			ScenarioName: def.Name,
			Question:     execCtx.Question,
			SourceURI:    uri,
			TargetURI:    execCtx.TargetURI(),
		}

		result, finalQuery, err := s.loop.Run(ctx, req, rec)
		if err != nil {
			return err
		}

		execCtx.LastRows = result.Rows
		execCtx.LastQuery = finalQuery
		*queries = append(*queries, finalQuery)

		if len(result.Rows) > 0 {
			accumulator.Merge(result.Rows, uri, execCtx.TargetURI())
		}
	}

	rec.Complete(trace.StepNeighbourhoodExploration,
		fmt.Sprintf("Explored neighbourhood of %d concepts", len(uris)),
		map[string]any{"concept_uris": uris})

	return nil
}

func (s *Service) neighbourhoodURIs(step PlanStep, execCtx *ExecutionContext, rec *trace.Recorder) []string {
	uris := payloadStrings(step.Payload, "concept_uris")
	if len(uris) == 0 {
		return execCtx.ConceptURIs
	}

	unresolved := pie.Any(uris, func(uri string) bool {
		return !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://")
	})
	if !unresolved {
		return pie.Map(uris, s.resolver.ExpandURI)
	}

	var extracted []string
	for _, row := range execCtx.LastRows {
		for _, alias := range []string{"concept1", "source", "subject"} {
			if value := row[alias]; value != "" {
				extracted = append(extracted, value)
				break
			}
		}
		for _, alias := range []string{"concept2", "target", "object"} {
			if value := row[alias]; value != "" {
				extracted = append(extracted, value)
				break
			}
		}
	}

	if len(extracted) > 0 {
		if len(extracted) > len(uris) {
			extracted = extracted[:len(uris)]
		}
		rec.Complete(trace.StepNeighbourhoodExploration, "Filled neighbourhood URIs from SPARQL results", map[string]any{
			"concept_uris": extracted,
		})
		return extracted
	}

	if len(execCtx.ConceptURIs) > 0 {
		limit := len(uris)
		if limit > len(execCtx.ConceptURIs) {
			limit = len(execCtx.ConceptURIs)
		}
		return execCtx.ConceptURIs[:limit]
	}

	return nil
}

func (s *Service) extractEntities(ctx context.Context, question string, rec *trace.Recorder) []string {
	prompt := fmt.Sprintf(`Extract the medical entity mentions from the question below.
Question: %s
Return ONLY a JSON array of strings, most important entity first. No explanation.`, question)

	content, err := s.orchestrator.Invoke(ctx, prompt)
	if err != nil {
		rec.Fail(trace.StepEntityExtraction, "Entity extraction failed", err)
		return nil
	}

	entities := parseEntityList(content)

	rec.Complete(trace.StepEntityExtraction,
		"Extracted entities: "+joinOrNone(entities),
		map[string]any{"entities": entities, "count": len(entities)})

	return entities
}

func previewText(text string) string {
	if len(text) > 200 {
		return text[:200]
	}

	return text
}

func stepTraceKind(kind StepKind) trace.StepKind {
	switch kind {
	case StepEntityExtraction:
		return trace.StepEntityExtraction
	case StepConceptSearch:
		return trace.StepConceptSearch
	case StepQueryExecution:
		return trace.StepQueryExecution
	case StepNeighbourhood:
		return trace.StepNeighbourhoodExploration
	case StepInterpretation:
		return trace.StepResultInterpretation
	}

	return trace.StepConceptSearch
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}

	return strings.Join(items, ", ")
}

func (s *Service) Close() error {
	return nil
}
