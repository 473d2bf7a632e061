package agent

import (
	"context"
	"errors"
	"testing"

	"grapebot/app/client/graphdb"
	"grapebot/app/client/similarity"
	"grapebot/app/config"
	"grapebot/app/service/concept"
	"grapebot/app/service/query"
	"grapebot/app/service/scenario"
	"grapebot/app/service/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedInvoker struct {
	replies []string
	err     error
	calls   int
}

func (f *scriptedInvoker) Invoke(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}

	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type fakeSearcher struct {
	candidates []similarity.Candidate
	byQuery    map[string][]similarity.Candidate
	err        error
}

func (f *fakeSearcher) Search(_ context.Context, text, _ string, _ int) ([]similarity.Candidate, error) {
	if f.byQuery != nil {
		return f.byQuery[text], f.err
	}

	return f.candidates, f.err
}

type fakeExecutor struct {
	rows         []graphdb.Row
	failuresLeft int
	queries      []string
}

func (f *fakeExecutor) Execute(_ context.Context, queryText, _ string) (*graphdb.Result, error) {
	f.queries = append(f.queries, queryText)

	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, &graphdb.StatusError{Code: 400, Body: "MALFORMED QUERY"}
	}

	return &graphdb.Result{Rows: f.rows, RawQuery: queryText}, nil
}

func newTestService(t *testing.T, orchestrator *scriptedInvoker, interpreter *scriptedInvoker, searcher similarity.Searcher, executor query.Executor) *Service {
	t.Helper()

	registry, err := scenario.NewRegistry(orchestrator, "scenario_1_neighbourhood")
	require.NoError(t, err)

	return &Service{
		cfg: &config.Config{
			Agent: config.Agent{
				DefaultGraph:    "grape_hearing",
				DefaultScenario: "scenario_1_neighbourhood",
			},
		},
		registry:     registry,
		resolver:     concept.NewResolver(orchestrator, nil),
		searcher:     searcher,
		executor:     executor,
		loop:         query.NewLoop(orchestrator, executor),
		orchestrator: orchestrator,
		interpreter:  interpreter,
	}
}

func TestAnswerExecutesPlan(t *testing.T) {
	plan := "```json\n" + `[
  {"tool": "/mcp/extract_entities", "payload": {"question": "what is tinnitus?"}},
  {"tool": "/mcp/concepts", "payload": {"query_text": "tinnitus", "limit": 3}},
  {"tool": "/mcp/sparql", "payload": {"query": "SELECT ?source ?relation ?target WHERE { {{SOURCE_URI}} ?relation ?target }"}},
  {"tool": "/mcp/interpret", "payload": {}}
]` + "\n```"

	orchestrator := &scriptedInvoker{replies: []string{
		plan,
		`["tinnitus"]`,
	}}
	interpreter := &scriptedInvoker{replies: []string{"Tinnitus is a ringing perception."}}
	searcher := &fakeSearcher{candidates: []similarity.Candidate{
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
	}}
	executor := &fakeExecutor{rows: []graphdb.Row{
		{"source": "http://example.org/hearing/Tinnitus", "relation": "hasTreatment", "target": "http://example.org/hearing/SoundTherapy"},
	}}

	svc := newTestService(t, orchestrator, interpreter, searcher, executor)

	result, err := svc.Answer(context.Background(), "what is tinnitus?", "", "scenario_1_neighbourhood", trace.NewRecorder())
	require.NoError(t, err)

	assert.Equal(t, "scenario_1_neighbourhood", result.Scenario)
	assert.Equal(t, "grape_hearing", result.KGName)
	assert.Equal(t, "Tinnitus is a ringing perception.", result.Summary)
	require.Len(t, result.SparqlQueries, 1)
	assert.Contains(t, result.SparqlQueries[0], "<http://example.org/hearing/Tinnitus>")
	assert.NotEmpty(t, result.Nodes)
	assert.NotEmpty(t, result.Links)

	lastEntry := result.Trace[len(result.Trace)-1]
	assert.Equal(t, trace.StepSuccess, lastEntry.StepKind)
}

func TestAnswerMultihopRecoversFromQueryFailure(t *testing.T) {
	plan := "```json\n" + `[
  {"tool": "/mcp/extract_entities", "payload": {}},
  {"tool": "/mcp/concepts", "payload": {"query_text": "chronic stress"}},
  {"tool": "/mcp/concepts", "payload": {"query_text": "hearing loss"}},
  {"tool": "/mcp/sparql", "payload": {"query": "__USE_TEMPLATE__"}},
  {"tool": "/mcp/interpret", "payload": {}}
]` + "\n```"

	orchestrator := &scriptedInvoker{replies: []string{
		plan,
		`["chronic stress", "hearing loss"]`,
		"```sparql\nSELECT ?source ?relation1 ?intermediate ?relation2 ?target WHERE { ?source ?relation1 ?intermediate . ?intermediate ?relation2 ?target } LIMIT 25\n```",
	}}
	interpreter := &scriptedInvoker{replies: []string{"Chronic stress aggravates hearing loss via cortisol."}}
	searcher := &fakeSearcher{byQuery: map[string][]similarity.Candidate{
		"chronic stress": {{URI: "http://example.org/psychiatry/ChronicStress", Label: "Chronic Stress"}},
		"hearing loss":   {{URI: "http://example.org/hearing/HearingLoss", Label: "Hearing Loss"}},
	}}
	executor := &fakeExecutor{
		failuresLeft: 1,
		rows: []graphdb.Row{{
			"source":       "http://example.org/psychiatry/ChronicStress",
			"relation1":    "elevates",
			"intermediate": "http://example.org/common/Cortisol",
			"relation2":    "damages",
			"target":       "http://example.org/hearing/HearingLoss",
		}},
	}

	svc := newTestService(t, orchestrator, interpreter, searcher, executor)

	result, err := svc.Answer(context.Background(), "What connects chronic stress and hearing loss?", "grape_unified", "scenario_2_multihop", trace.NewRecorder())
	require.NoError(t, err)

	// First execution failed, one regeneration succeeded.
	assert.Len(t, executor.queries, 2)
	require.Len(t, result.Links, 2)
	assert.Equal(t, "http://example.org/common/Cortisol", result.Links[0].Target)
	assert.Equal(t, "http://example.org/common/Cortisol", result.Links[1].Source)
	assert.Equal(t, "http://example.org/hearing/HearingLoss", result.Links[1].Target)
	assert.Equal(t, "Chronic stress aggravates hearing loss via cortisol.", result.Summary)
}

func TestAnswerUnparsablePlanUsesFallbackFlow(t *testing.T) {
	orchestrator := &scriptedInvoker{replies: []string{
		"I cannot produce a plan right now.",
		`["tinnitus"]`,
	}}
	interpreter := &scriptedInvoker{replies: []string{"Found one treatment relation."}}
	searcher := &fakeSearcher{candidates: []similarity.Candidate{
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
	}}
	executor := &fakeExecutor{rows: []graphdb.Row{
		{"p": "hasTreatment", "o": "http://example.org/hearing/SoundTherapy"},
	}}

	svc := newTestService(t, orchestrator, interpreter, searcher, executor)

	result, err := svc.Answer(context.Background(), "what is tinnitus?", "grape_hearing", "scenario_1_neighbourhood", trace.NewRecorder())
	require.NoError(t, err)

	assert.Equal(t, "Found one treatment relation.", result.Summary)
	require.Len(t, result.SparqlQueries, 1)
	assert.Contains(t, result.SparqlQueries[0], "SELECT ?p ?o WHERE { <http://example.org/hearing/Tinnitus> ?p ?o } LIMIT 20")
}

func TestSummarizeRowsNoDataSkipsOracle(t *testing.T) {
	interpreter := &scriptedInvoker{replies: []string{"should never be used"}}
	svc := &Service{interpreter: interpreter}

	summary := svc.summarizeRows(context.Background(), "q", "scenario_1_neighbourhood", "grape_hearing", "", nil, trace.NewRecorder())

	assert.Equal(t, NoDataMessage, summary)
	assert.Zero(t, interpreter.calls)
}

func TestSummarizeRowsDegradedOnOracleError(t *testing.T) {
	interpreter := &scriptedInvoker{err: errors.New("unavailable")}
	svc := &Service{interpreter: interpreter}

	summary := svc.summarizeRows(context.Background(), "q", "", "grape_hearing", "", []graphdb.Row{
		{"s": "a"}, {"s": "b"},
	}, trace.NewRecorder())

	assert.Contains(t, summary, "Found 2 results")
}

func TestParsePlanRejectsUnknownTool(t *testing.T) {
	_, err := parsePlan(`[{"tool": "/mcp/teleport", "payload": {}}]`)
	assert.Error(t, err)
}

func TestParsePlanRejectsEmpty(t *testing.T) {
	_, err := parsePlan(`[]`)
	assert.Error(t, err)
}

func TestClassifyTool(t *testing.T) {
	cases := map[string]StepKind{
		"/mcp/extract_entities":      StepEntityExtraction,
		"/mcp/neighbourhood":         StepNeighbourhood,
		"/mcp/concepts":              StepConceptSearch,
		"/mcp/sparql":                StepQueryExecution,
		"/mcp/interpret_results":     StepInterpretation,
		"http://tools/mcp/concepts":  StepConceptSearch,
	}

	for tool, expected := range cases {
		kind, err := classifyTool(tool)
		require.NoError(t, err, tool)
		assert.Equal(t, expected, kind, tool)
	}
}

func TestParseEntityList(t *testing.T) {
	assert.Equal(t, []string{"tinnitus", "stress"}, parseEntityList(`["tinnitus", "stress"]`))
	assert.Equal(t, []string{"tinnitus"}, parseEntityList("Here you go:\n```json\n[\"tinnitus\"]\n```"))
	assert.Nil(t, parseEntityList("no entities found"))
	assert.Empty(t, parseEntityList(`[" ", ""]`))
}

func TestRowsToCSV(t *testing.T) {
	csv := rowsToCSV([]graphdb.Row{
		{"b": "2", "a": "1"},
		{"a": "with,comma", "b": "line\nbreak"},
	}, 10)

	assert.Equal(t, "a,b\n1,2\n\"with,comma\",line break", csv)
}

func TestRowsToCSVCapsRows(t *testing.T) {
	rows := make([]graphdb.Row, 5)
	for i := range rows {
		rows[i] = graphdb.Row{"a": "x"}
	}

	csv := rowsToCSV(rows, 2)
	assert.Equal(t, "a\nx\nx", csv)
}
