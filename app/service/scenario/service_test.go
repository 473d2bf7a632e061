package scenario

import (
	"context"
	"errors"
	"testing"

	"grapebot/app/service/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	reply string
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func TestNewRegistryLoadsDefinitions(t *testing.T) {
	registry, err := NewRegistry(&fakeInvoker{}, "scenario_1_neighbourhood")
	require.NoError(t, err)

	for _, id := range []string{
		"scenario_1_neighbourhood",
		"scenario_2_multihop",
		"scenario_3_federation",
		"scenario_4_validation",
	} {
		def, ok := registry.Get(id)
		require.True(t, ok, id)
		assert.Equal(t, id, def.ID)
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.SystemPrompt)
	}

	assert.Equal(t, "scenario_1_neighbourhood", registry.Default().ID)
	assert.Len(t, registry.All(), 4)
}

func TestNewRegistryRejectsUnknownDefault(t *testing.T) {
	_, err := NewRegistry(&fakeInvoker{}, "scenario_nope")
	assert.Error(t, err)
}

func TestDetectReturnsIdentifiedScenario(t *testing.T) {
	registry, err := NewRegistry(&fakeInvoker{reply: "scenario_2_multihop"}, "scenario_1_neighbourhood")
	require.NoError(t, err)

	detected := registry.Detect(context.Background(), "how is tinnitus connected to stress?", trace.NewRecorder())
	assert.Equal(t, "scenario_2_multihop", detected)
}

func TestDetectTrimsQuotesAndFences(t *testing.T) {
	registry, err := NewRegistry(&fakeInvoker{reply: "\"scenario_4_validation\"\n"}, "scenario_1_neighbourhood")
	require.NoError(t, err)

	detected := registry.Detect(context.Background(), "is sound therapy valid for tinnitus?", trace.NewRecorder())
	assert.Equal(t, "scenario_4_validation", detected)
}

func TestDetectFallsBackOnUnknownReply(t *testing.T) {
	registry, err := NewRegistry(&fakeInvoker{reply: "scenario_99_made_up"}, "scenario_1_neighbourhood")
	require.NoError(t, err)

	detected := registry.Detect(context.Background(), "what is tinnitus?", trace.NewRecorder())
	assert.Equal(t, "scenario_1_neighbourhood", detected)
}

func TestDetectFallsBackOnOracleError(t *testing.T) {
	registry, err := NewRegistry(&fakeInvoker{err: errors.New("timeout")}, "scenario_1_neighbourhood")
	require.NoError(t, err)

	rec := trace.NewRecorder()
	detected := registry.Detect(context.Background(), "what is tinnitus?", rec)

	assert.Equal(t, "scenario_1_neighbourhood", detected)

	entries := rec.Trace()
	require.NotEmpty(t, entries)
	assert.Equal(t, trace.StatusFailed, entries[len(entries)-1].Status)
}
