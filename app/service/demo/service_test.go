package demo

import (
	"context"
	"errors"
	"testing"

	"grapebot/app/client/graphdb"
	"grapebot/app/service/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingExecutor struct{}

func (failingExecutor) Execute(_ context.Context, _, _ string) (*graphdb.Result, error) {
	return nil, errors.New("endpoint unreachable")
}

type fakeInvoker struct {
	reply string
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func offlineService(interpreter *fakeInvoker) *Service {
	return &Service{
		executor:    failingExecutor{},
		interpreter: interpreter,
	}
}

func TestHandleUnknownID(t *testing.T) {
	svc := offlineService(&fakeInvoker{})

	result, handled := svc.Handle(context.Background(), "", "q", "grape_hearing", trace.NewRecorder())
	assert.False(t, handled)
	assert.Nil(t, result)

	result, handled = svc.Handle(context.Background(), "S9_NOPE", "q", "grape_hearing", trace.NewRecorder())
	assert.False(t, handled)
	assert.Nil(t, result)
}

func TestPatientPipelineOffline(t *testing.T) {
	svc := offlineService(&fakeInvoker{err: errors.New("oracle down")})

	result, handled := svc.Handle(context.Background(), IDPatient, "show me the patient", "grape_unified", trace.NewRecorder())
	require.True(t, handled)
	require.NotNil(t, result)

	assert.Equal(t, "DEMO_S1_PATIENT", result.Scenario)
	// Canned summary lists the fallback facts.
	assert.Contains(t, result.Summary, "Diabetes Mellitus")
	assert.Contains(t, result.Summary, "Metamorphine")
	assert.NotEmpty(t, result.Nodes)
	assert.NotEmpty(t, result.Links)
	require.Len(t, result.SparqlQueries, 1)
	assert.Contains(t, result.SparqlQueries[0], "expat:PatientJohn")
}

func TestPathfindingPipelineOffline(t *testing.T) {
	svc := offlineService(&fakeInvoker{err: errors.New("oracle down")})

	result, handled := svc.Handle(context.Background(), IDPathfinding, "why the pain?", "grape_unified", trace.NewRecorder())
	require.True(t, handled)

	assert.Equal(t, "DEMO_S2_PATHFINDING", result.Scenario)
	assert.Contains(t, result.Summary, "causesSymptom")
	assert.Contains(t, result.Summary, "contraindicatedFor")
}

func TestValidationPipelineOffline(t *testing.T) {
	svc := offlineService(&fakeInvoker{err: errors.New("oracle down")})

	result, handled := svc.Handle(context.Background(), IDValidation, "is the drug safe?", "grape_unified", trace.NewRecorder())
	require.True(t, handled)

	assert.Equal(t, "DEMO_S3_VALIDATION", result.Scenario)
	assert.Contains(t, result.Summary, "CONTRAINDICATED")
	assert.Contains(t, result.Summary, "Glucorin")
	assert.Len(t, result.SparqlQueries, 2)
}

func TestAutonomousPipelineOffline(t *testing.T) {
	svc := offlineService(&fakeInvoker{err: errors.New("oracle down")})

	result, handled := svc.Handle(context.Background(), IDAutonomous, "full analysis please", "grape_unified", trace.NewRecorder())
	require.True(t, handled)

	assert.Equal(t, "DEMO_AUTONOMOUS", result.Scenario)
	assert.Contains(t, result.Summary, "Glucorin")
	// Patient, medication, substance, pathfinding, condition family,
	// procedure chain, ASK plus alternative.
	assert.Len(t, result.SparqlQueries, 8)
	assert.NotEmpty(t, result.Nodes)
}

func TestNarratedSummaryPreferred(t *testing.T) {
	svc := offlineService(&fakeInvoker{reply: "A narrated clinical overview."})

	result, handled := svc.Handle(context.Background(), IDPatient, "show me the patient", "grape_unified", trace.NewRecorder())
	require.True(t, handled)
	assert.Equal(t, "A narrated clinical overview.", result.Summary)
}

func TestNormalizeGraph(t *testing.T) {
	assert.Equal(t, "grape_hearing", normalizeGraph("grape_hearing"))
	assert.Equal(t, "unified", normalizeGraph("unified"))
	assert.Equal(t, "unified", normalizeGraph("grape_oncology"))
	assert.Equal(t, "unified", normalizeGraph(""))
}
