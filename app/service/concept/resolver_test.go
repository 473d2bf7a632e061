package concept

import (
	"context"
	"errors"
	"testing"

	"grapebot/app/client/similarity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	reply string
	err   error
	calls int
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func TestSelectEmptyCandidates(t *testing.T) {
	resolver := NewResolver(&fakeInvoker{}, nil)

	assert.Nil(t, resolver.Select(context.Background(), "tinnitus", nil))
}

func TestSelectFiltersStructuralVocabulary(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("unavailable")}
	resolver := NewResolver(invoker, nil)

	chosen := resolver.Select(context.Background(), "tinnitus", []similarity.Candidate{
		{URI: "http://www.w3.org/2000/01/rdf-schema#Class", Label: "Class"},
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
	})

	require.NotNil(t, chosen)
	assert.Equal(t, "http://example.org/hearing/Tinnitus", chosen.URI)
}

func TestSelectSingleCandidateSkipsOracle(t *testing.T) {
	invoker := &fakeInvoker{}
	resolver := NewResolver(invoker, nil)

	chosen := resolver.Select(context.Background(), "tinnitus", []similarity.Candidate{
		{URI: "exhear:Tinnitus", Label: "Tinnitus"},
	})

	require.NotNil(t, chosen)
	assert.Equal(t, "http://example.org/hearing/Tinnitus", chosen.URI)
	assert.Zero(t, invoker.calls)
}

func TestSelectOracleChoosesFromShortlist(t *testing.T) {
	invoker := &fakeInvoker{reply: "http://example.org/hearing/Presbycusis"}
	resolver := NewResolver(invoker, nil)

	chosen := resolver.Select(context.Background(), "age-related hearing loss", []similarity.Candidate{
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
		{URI: "http://example.org/hearing/Presbycusis", Label: "Presbycusis"},
	})

	require.NotNil(t, chosen)
	assert.Equal(t, "http://example.org/hearing/Presbycusis", chosen.URI)
	assert.Equal(t, 1, invoker.calls)
}

func TestSelectUnknownFallsBackToFirst(t *testing.T) {
	invoker := &fakeInvoker{reply: "UNKNOWN"}
	resolver := NewResolver(invoker, nil)

	chosen := resolver.Select(context.Background(), "tinnitus", []similarity.Candidate{
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
		{URI: "http://example.org/hearing/Presbycusis", Label: "Presbycusis"},
	})

	require.NotNil(t, chosen)
	assert.Equal(t, "http://example.org/hearing/Tinnitus", chosen.URI)
}

func TestSelectOracleErrorFallsBackToFirst(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("timeout")}
	resolver := NewResolver(invoker, nil)

	chosen := resolver.Select(context.Background(), "tinnitus", []similarity.Candidate{
		{URI: "http://example.org/hearing/Tinnitus", Label: "Tinnitus"},
		{URI: "http://example.org/hearing/Presbycusis", Label: "Presbycusis"},
	})

	require.NotNil(t, chosen)
	assert.Equal(t, "http://example.org/hearing/Tinnitus", chosen.URI)
}

func TestExpandURI(t *testing.T) {
	resolver := NewResolver(&fakeInvoker{}, nil)

	assert.Equal(t, "http://example.org/hearing/Tinnitus", resolver.ExpandURI("exhear:Tinnitus"))
	assert.Equal(t, "http://example.org/drug/E27B", resolver.ExpandURI("exdrug:E27B"))
	assert.Equal(t, "http://example.org/x", resolver.ExpandURI("http://example.org/x"))
	assert.Equal(t, "unknown:Thing", resolver.ExpandURI("unknown:Thing"))
	assert.Empty(t, resolver.ExpandURI(""))
}
