package graphdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grapebot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const queryTimeout = 30 * time.Second

// Row is one SELECT binding, flattened to variable name -> lexical value.
type Row = map[string]string

// Result holds the outcome of one SPARQL request. Boolean is set for ASK
// queries, Rows for SELECT queries.
type Result struct {
	Rows     []Row
	Boolean  *bool
	RawQuery string
}

// StatusError is the only recoverable failure of the execution service: the
// endpoint answered, but with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sparql endpoint returned HTTP %d: %s", e.Code, e.Body)
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: queryTimeout,
		},
	}, nil
}

// Execute runs a SELECT or ASK query against the repository behind kgName.
func (c *Client) Execute(ctx context.Context, query, kgName string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("sparql query cannot be empty")
	}

	endpoint, err := c.resolveEndpoint(kgName)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build sparql request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	if c.cfg.GraphDB.Username != "" && c.cfg.GraphDB.Password != "" {
		req.SetBasicAuth(c.cfg.GraphDB.Username, c.cfg.GraphDB.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read sparql response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(body)
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: excerpt}
	}

	result, err := parseResults(body)
	if err != nil {
		return nil, err
	}

	result.RawQuery = query
	return result, nil
}

func (c *Client) resolveEndpoint(kgName string) (string, error) {
	key := strings.ToLower(kgName)
	key = strings.TrimPrefix(key, "grape_")
	if key == "" {
		key = "unified"
	}

	endpoint, ok := c.cfg.GraphDB.Endpoints[key]
	if !ok {
		return "", oops.With("kg_name", kgName).Errorf("unknown graphdb repository: %s", key)
	}

	return endpoint, nil
}

type sparqlResponse struct {
	Boolean *bool `json:"boolean"`
	Head    struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

func parseResults(body []byte) (*Result, error) {
	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode sparql response: %w", err)
	}

	if parsed.Boolean != nil {
		return &Result{Boolean: parsed.Boolean}, nil
	}

	rows := make([]Row, 0, len(parsed.Results.Bindings))
	for _, binding := range parsed.Results.Bindings {
		row := Row{}
		for _, variable := range parsed.Head.Vars {
			if cell, ok := binding[variable]; ok {
				row[variable] = cell.Value
			}
		}
		rows = append(rows, row)
	}

	return &Result{Rows: rows}, nil
}
