package concept

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"grapebot/app/client/oracle"
	"grapebot/app/client/similarity"

	"github.com/elliotchance/pie/v2"
)

const shortlistSize = 5

// Structural vocabulary namespaces are never eligible while a domain
// candidate exists.
var blacklistPrefixes = []string{
	"http://www.w3.org/",
	"https://www.w3.org/",
}

var preferredPrefixes = []string{
	"http://example.org/",
	"https://example.org/",
}

// DefaultPrefixes expands abbreviated URIs before comparison or storage.
var DefaultPrefixes = map[string]string{
	"exhear":   "http://example.org/hearing/",
	"expsych":  "http://example.org/psychiatry/",
	"exmed":    "http://example.org/medication/",
	"excommon": "http://example.org/common/",
	"expat":    "http://example.org/patient/",
	"exdrug":   "http://example.org/drug/",
	"excond":   "http://example.org/condition/",
}

// Resolver picks the best concept URI for a free-text mention out of a ranked
// candidate list.
type Resolver struct {
	llm      oracle.Invoker
	prefixes map[string]string
}

func NewResolver(llm oracle.Invoker, prefixes map[string]string) *Resolver {
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}

	return &Resolver{
		llm:      llm,
		prefixes: prefixes,
	}
}

// ExpandURI rewrites a prefixed URI (e.g. "exhear:Tinnitus") to its full form
// so equality checks against already-resolved URIs are reliable.
func (r *Resolver) ExpandURI(uri string) string {
	if uri == "" || strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}

	if prefix, local, found := strings.Cut(uri, ":"); found {
		if base, ok := r.prefixes[prefix]; ok {
			return base + local
		}
	}

	return uri
}

func hasAnyPrefix(uri string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(uri, prefix) {
			return true
		}
	}

	return false
}

// Select returns the best candidate for queryText, or nil when the list is
// empty. Never returns an error: oracle failures fall back deterministically
// to the first remaining candidate.
func (r *Resolver) Select(ctx context.Context, queryText string, candidates []similarity.Candidate) *similarity.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	filtered := pie.Filter(candidates, func(c similarity.Candidate) bool {
		return !hasAnyPrefix(c.URI, blacklistPrefixes)
	})
	if len(filtered) > 0 {
		candidates = filtered
	}

	if len(candidates) == 1 {
		chosen := candidates[0]
		chosen.URI = r.ExpandURI(chosen.URI)
		return &chosen
	}

	preferred := pie.Filter(candidates, func(c similarity.Candidate) bool {
		return hasAnyPrefix(c.URI, preferredPrefixes)
	})
	if len(preferred) > 0 {
		candidates = preferred
	}

	if choice := r.chooseWithLLM(ctx, queryText, candidates); choice != nil {
		return choice
	}

	chosen := candidates[0]
	chosen.URI = r.ExpandURI(chosen.URI)
	return &chosen
}

type shortlistEntry struct {
	Rank        int    `json:"rank"`
	URI         string `json:"uri"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (r *Resolver) chooseWithLLM(ctx context.Context, queryText string, candidates []similarity.Candidate) *similarity.Candidate {
	topK := candidates
	if len(topK) > shortlistSize {
		topK = topK[:shortlistSize]
	}

	shortlist := make([]shortlistEntry, 0, len(topK))
	for i, candidate := range topK {
		shortlist = append(shortlist, shortlistEntry{
			Rank:        i + 1,
			URI:         r.ExpandURI(candidate.URI),
			Label:       candidate.Label,
			Description: candidate.Description,
		})
	}

	shortlistJSON, _ := json.MarshalIndent(shortlist, "", "  ")

	prompt := fmt.Sprintf(`You are an assistant that must pick the most relevant concept URI for a query.
User query: %s
Candidates (JSON):
%s
Respond with the exact URI of the best candidate only. If unsure, respond with 'UNKNOWN'.`, queryText, shortlistJSON)

	content, err := r.llm.Invoke(ctx, prompt)
	if err != nil {
		slog.Warn("Concept arbitration unavailable, falling back", "query", queryText, "error", err)
		return nil
	}

	content = strings.TrimSpace(content)
	if content == "" || strings.EqualFold(content, "UNKNOWN") {
		return nil
	}

	for _, candidate := range topK {
		expanded := r.ExpandURI(candidate.URI)
		if content == expanded || content == candidate.URI {
			candidate.URI = expanded
			return &candidate
		}
	}

	return nil
}
