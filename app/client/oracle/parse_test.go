package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFencedByLanguage(t *testing.T) {
	text := "Here is the plan:\n```json\n[{\"tool\": \"/mcp/concepts\"}]\n```\nDone."

	assert.Equal(t, `[{"tool": "/mcp/concepts"}]`, ExtractFenced(text, "json"))
	assert.Empty(t, ExtractFenced(text, "sparql"))
}

func TestExtractFencedAnyBlock(t *testing.T) {
	text := "```\nSELECT ?s WHERE { ?s ?p ?o }\n```"

	assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o }", ExtractFenced(text, ""))
}

func TestExtractFencedPicksFirstMatching(t *testing.T) {
	text := "```sparql\nSELECT ?a WHERE { ?a ?b ?c }\n```\n```sparql\nSELECT ?x WHERE { ?x ?y ?z }\n```"

	assert.Equal(t, "SELECT ?a WHERE { ?a ?b ?c }", ExtractFenced(text, "sparql"))
}

func TestExtractFencedNoBlock(t *testing.T) {
	assert.Empty(t, ExtractFenced("plain text, no fences", "json"))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripFences("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, "SELECT ?s WHERE { ?s ?p ?o }", StripFences("```sparql\nSELECT ?s WHERE { ?s ?p ?o }\n```"))
	assert.Equal(t, `{"a": 1}`, StripFences(`{"a": 1}`))
	assert.Empty(t, StripFences("   "))
}
