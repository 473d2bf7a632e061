package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grapebot/app/client/similarity"
	"grapebot/app/service/query"

	"github.com/tmc/langchaingo/tools"
)

// sparqlTool exposes raw query execution as a langchain tool. Input is either
// a JSON object with query/kg_name or a bare SPARQL string.
type sparqlTool struct {
	executor     query.Executor
	defaultGraph string
}

var _ tools.Tool = (*sparqlTool)(nil)

func (t *sparqlTool) Name() string {
	return "run_sparql"
}

func (t *sparqlTool) Description() string {
	return "Executes a SPARQL query against a knowledge graph repository and returns the bindings as JSON. " +
		`Input: {"query": "...", "kg_name": "grape_hearing"} or a raw SPARQL string.`
}

func (t *sparqlTool) Call(ctx context.Context, input string) (string, error) {
	queryText := input
	kgName := t.defaultGraph

	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		var args struct {
			Query  string `json:"query"`
			KGName string `json:"kg_name"`
		}
		if err := json.Unmarshal([]byte(input), &args); err == nil && args.Query != "" {
			queryText = args.Query
			if args.KGName != "" {
				kgName = args.KGName
			}
		}
	}

	result, err := t.executor.Execute(ctx, queryText, kgName)
	if err != nil {
		return "", fmt.Errorf("sparql tool call failed: %w", err)
	}

	if result.Boolean != nil {
		return fmt.Sprintf(`{"boolean": %t}`, *result.Boolean), nil
	}

	out, err := json.Marshal(result.Rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode sparql results: %w", err)
	}

	return string(out), nil
}

// conceptTool exposes embedding-based concept search as a langchain tool.
type conceptTool struct {
	searcher     similarity.Searcher
	defaultGraph string
}

var _ tools.Tool = (*conceptTool)(nil)

func (t *conceptTool) Name() string {
	return "find_concepts"
}

func (t *conceptTool) Description() string {
	return "Finds knowledge graph concepts similar to a natural language phrase. " +
		`Input: {"query_text": "...", "kg_name": "grape_hearing", "limit": 5} or a bare phrase.`
}

func (t *conceptTool) Call(ctx context.Context, input string) (string, error) {
	text := input
	kgName := t.defaultGraph
	limit := 5

	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		var args struct {
			QueryText string `json:"query_text"`
			KGName    string `json:"kg_name"`
			Limit     int    `json:"limit"`
		}
		if err := json.Unmarshal([]byte(input), &args); err == nil && args.QueryText != "" {
			text = args.QueryText
			if args.KGName != "" {
				kgName = args.KGName
			}
			if args.Limit > 0 {
				limit = args.Limit
			}
		}
	}

	candidates, err := t.searcher.Search(ctx, text, kgName, limit)
	if err != nil {
		return "", fmt.Errorf("concept tool call failed: %w", err)
	}

	out, err := json.Marshal(candidates)
	if err != nil {
		return "", fmt.Errorf("failed to encode concept results: %w", err)
	}

	return string(out), nil
}
