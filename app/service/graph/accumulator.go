package graph

import (
	"strings"

	"grapebot/app/client/graphdb"
)

type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

type linkKey struct {
	source   string
	target   string
	relation string
}

// Accumulator folds tabular query rows into a deduplicated node/link graph.
// It owns per-request state only and performs no I/O.
type Accumulator struct {
	nodeIndex map[string]int
	nodes     []Node
	linkSet   map[linkKey]struct{}
	links     []Link
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		nodeIndex: map[string]int{},
		linkSet:   map[linkKey]struct{}{},
	}
}

func (a *Accumulator) Nodes() []Node {
	return a.nodes
}

func (a *Accumulator) Links() []Link {
	return a.links
}

// AddNode inserts a node or upgrades an empty label on an existing one. A
// non-empty label is never overwritten.
func (a *Accumulator) AddNode(uri, label, nodeType string) {
	if uri == "" {
		return
	}

	if idx, ok := a.nodeIndex[uri]; ok {
		if label != "" && a.nodes[idx].Label == "" {
			a.nodes[idx].Label = label
		}
		return
	}

	if label == "" {
		label = InferLabel(uri)
	}
	if nodeType == "" {
		nodeType = InferNodeType(uri)
	}

	a.nodeIndex[uri] = len(a.nodes)
	a.nodes = append(a.nodes, Node{ID: uri, Label: label, Type: nodeType})
}

// AddLink inserts a link keyed by (source, target, relation) at most once.
func (a *Accumulator) AddLink(source, target, relation string) {
	if source == "" || target == "" || relation == "" {
		return
	}

	key := linkKey{source, target, relation}
	if _, ok := a.linkSet[key]; ok {
		return
	}

	a.linkSet[key] = struct{}{}
	a.links = append(a.links, Link{Source: source, Target: target, Relation: relation})
}

// Alias priority for reconciling the varying column names of query shapes.
func firstValue(row graphdb.Row, aliases ...string) string {
	for _, alias := range aliases {
		if value := row[alias]; value != "" {
			return value
		}
	}

	return ""
}

// Merge folds rows into the graph. sourceDefault and targetDefault back-fill
// endpoints absent from the row, conventionally the first and second resolved
// concept URIs of the request.
func (a *Accumulator) Merge(rows []graphdb.Row, sourceDefault, targetDefault string) {
	for _, row := range rows {
		sourceURI := firstValue(row, "source", "subject", "s", "concept1")
		if sourceURI == "" {
			sourceURI = sourceDefault
		}
		targetURI := firstValue(row, "target", "object", "o", "concept2")
		if targetURI == "" {
			targetURI = targetDefault
		}
		relation := firstValue(row, "relation", "predicate", "p")

		a.AddNode(sourceURI, firstValue(row, "sourceLabel", "label1"), "")
		a.AddNode(targetURI, firstValue(row, "targetLabel", "label2"), "")

		inter1 := firstValue(row, "intermediate", "inter1", "intermediate1", "intermediateNode")
		inter1Label := firstValue(row, "intermediateLabel", "inter1Label", "label1")
		inter2 := firstValue(row, "intermediate2", "inter2")
		inter2Label := firstValue(row, "intermediate2Label", "inter2Label", "label2")

		rel1 := firstValue(row, "relation1", "r1")
		rel2 := firstValue(row, "relation2", "r2")
		rel3 := firstValue(row, "relation3", "r3")

		switch {
		case inter1 != "" && inter2 != "":
			// Three-hop path: one link per hop.
			a.AddNode(inter1, inter1Label, "")
			a.AddNode(inter2, inter2Label, "")
			a.AddLink(sourceURI, inter1, rel1)
			a.AddLink(inter1, inter2, rel2)
			a.AddLink(inter2, targetURI, rel3)

		case inter1 != "":
			a.AddNode(inter1, inter1Label, "")
			a.AddLink(sourceURI, inter1, rel1)
			if rel2 == "" {
				rel2 = rel3
			}
			a.AddLink(inter1, targetURI, rel2)

		default:
			a.AddLink(sourceURI, targetURI, relation)
		}
	}
}

// InferLabel derives a display label from the final path or fragment segment.
func InferLabel(uri string) string {
	if uri == "" {
		return "Unknown"
	}

	for _, separator := range []string{"#", "/"} {
		if idx := strings.LastIndex(uri, separator); idx >= 0 && idx < len(uri)-1 {
			return uri[idx+1:]
		}
	}

	return uri
}

// InferNodeType guesses a coarse node type from URI naming conventions.
func InferNodeType(uri string) string {
	lower := strings.ToLower(uri)

	switch {
	case strings.Contains(lower, "patient"):
		return "patient"
	case strings.Contains(lower, "medication") || strings.Contains(uri, "med:"):
		return "medication"
	case strings.Contains(uri, "drug:") || strings.Contains(lower, "substance"):
		return "substance"
	case strings.Contains(lower, "condition") || strings.Contains(uri, "cond:"):
		return "condition"
	case strings.Contains(lower, "symptom") || strings.Contains(lower, "pain") || strings.Contains(lower, "discomfort"):
		return "symptom"
	case strings.Contains(lower, "procedure") || strings.Contains(lower, "ectomy"):
		return "procedure"
	case strings.Contains(lower, "organ") || strings.Contains(lower, "kidney") || strings.Contains(lower, "liver"):
		return "organ"
	}

	return "concept"
}
