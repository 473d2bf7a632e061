package graphdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"grapebot/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(endpoints map[string]string) *Client {
	return &Client{
		cfg: &config.Config{
			GraphDB: config.GraphDB{Endpoints: endpoints},
		},
		httpClient: http.DefaultClient,
	}
}

func TestExecuteRejectsEmptyQuery(t *testing.T) {
	client := testClient(map[string]string{"unified": "http://localhost:7200/repositories/unified"})

	_, err := client.Execute(context.Background(), "   ", "grape_unified")
	assert.Error(t, err)
}

func TestResolveEndpoint(t *testing.T) {
	client := testClient(map[string]string{
		"hearing": "http://localhost:7200/repositories/hearing",
		"unified": "http://localhost:7200/repositories/unified",
	})

	endpoint, err := client.resolveEndpoint("grape_hearing")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7200/repositories/hearing", endpoint)

	endpoint, err = client.resolveEndpoint("Hearing")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7200/repositories/hearing", endpoint)

	endpoint, err = client.resolveEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7200/repositories/unified", endpoint)

	_, err = client.resolveEndpoint("grape_oncology")
	assert.Error(t, err)
}

func TestExecuteParsesBindings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("query"), "SELECT")

		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["s", "label"]},
			"results": {"bindings": [
				{"s": {"type": "uri", "value": "http://example.org/a"}, "label": {"type": "literal", "value": "A"}},
				{"s": {"type": "uri", "value": "http://example.org/b"}}
			]}
		}`))
	}))
	defer server.Close()

	client := testClient(map[string]string{"unified": server.URL})

	result, err := client.Execute(context.Background(), "SELECT ?s ?label WHERE { ?s rdfs:label ?label }", "unified")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "http://example.org/a", result.Rows[0]["s"])
	assert.Equal(t, "A", result.Rows[0]["label"])
	assert.NotContains(t, result.Rows[1], "label")
	assert.Nil(t, result.Boolean)
}

func TestExecuteParsesAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"head": {}, "boolean": true}`))
	}))
	defer server.Close()

	client := testClient(map[string]string{"unified": server.URL})

	result, err := client.Execute(context.Background(), "ASK WHERE { ?s ?p ?o }", "unified")
	require.NoError(t, err)
	require.NotNil(t, result.Boolean)
	assert.True(t, *result.Boolean)
	assert.Empty(t, result.Rows)
}

func TestExecuteStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("MALFORMED QUERY: Lexical error"))
	}))
	defer server.Close()

	client := testClient(map[string]string{"unified": server.URL})

	_, err := client.Execute(context.Background(), "SELECT bogus", "unified")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "MALFORMED QUERY")
}
