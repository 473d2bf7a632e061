package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"grapebot/app/config"

	"github.com/samber/do"
)

const searchTimeout = 30 * time.Second

// Candidate is one hit from the embedding-based concept search.
type Candidate struct {
	URI         string `json:"uri"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Searcher is the contract consumed by the engine.
type Searcher interface {
	Search(ctx context.Context, text, kgName string, limit int) ([]Candidate, error)
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),
		httpClient: &http.Client{
			Timeout: searchTimeout,
		},
	}, nil
}

type searchRequest struct {
	QueryText string `json:"query_text"`
	KGName    string `json:"kg_name"`
	Limit     int    `json:"limit"`
}

type searchResponse struct {
	Concepts []Candidate `json:"concepts"`
}

func (c *Client) Search(ctx context.Context, text, kgName string, limit int) ([]Candidate, error) {
	payload, err := json.Marshal(searchRequest{
		QueryText: text,
		KGName:    kgName,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := c.cfg.Similarity.BaseURL + "/api/mcp/concepts"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("concept search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("concept search returned HTTP %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return parsed.Concepts, nil
}
