package query

import "fmt"

// Deterministic scenario templates, substituted when an oracle-authored query
// is malformed or keeps failing. Parameterized only by the resolved concept
// URIs.

// DiagnosticQuery is the last-resort query; the loop never sends an empty
// query to the execution service.
const DiagnosticQuery = "SELECT ?s ?p ?o WHERE { ?s ?p ?o } LIMIT 1"

// Predicates a validation query is allowed to traverse.
var validationPredicates = []string{
	"http://example.org/hearing/hasTreatment",
	"http://example.org/hearing/managedBy",
	"http://example.org/hearing/requiresTreatment",
	"http://example.org/hearing/recommendedTreatment",
}

// Template returns the deterministic query for the scenario, or "" when the
// required URIs are not resolved yet.
func Template(scenarioID, sourceURI, targetURI string) string {
	switch scenarioID {
	case "scenario_1_neighbourhood":
		return NeighbourhoodTemplate(sourceURI)
	case "scenario_2_multihop":
		return MultihopTemplate(sourceURI, targetURI)
	case "scenario_3_federation":
		return FederationTemplate(sourceURI, targetURI)
	case "scenario_4_validation":
		return ValidationTemplate(sourceURI, targetURI)
	}

	return ""
}

// NeighbourhoodTemplate collects every outgoing relation of the focus URI.
func NeighbourhoodTemplate(focusURI string) string {
	if focusURI == "" {
		return ""
	}

	return fmt.Sprintf(`PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?source ?relation ?target ?sourceLabel ?targetLabel
WHERE {
  VALUES ?source { <%s> }
  ?source ?relation ?target .
  OPTIONAL { ?source rdfs:label ?sourceLabel }
  OPTIONAL { ?target rdfs:label ?targetLabel }
}
LIMIT 100`, focusURI)
}

// MultihopTemplate unions direct links with one- and two-intermediate paths
// between source and target.
func MultihopTemplate(sourceURI, targetURI string) string {
	if sourceURI == "" || targetURI == "" {
		return ""
	}

	return fmt.Sprintf(`PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?source ?relation1 ?intermediate1 ?relation2 ?intermediate2 ?relation3 ?target ?label1 ?label2
WHERE {
  BIND(<%s> AS ?source)
  BIND(<%s> AS ?target)

  {
    ?source ?relation1 ?target .
    BIND("" AS ?intermediate1)
    BIND("" AS ?relation2)
    BIND("" AS ?intermediate2)
    BIND("" AS ?relation3)
    BIND("" AS ?label1)
    BIND("" AS ?label2)
  }
  UNION
  {
    ?source ?relation1 ?intermediate1 .
    ?intermediate1 ?relation2 ?target .
    OPTIONAL { ?intermediate1 rdfs:label ?label1 }
    BIND("" AS ?intermediate2)
    BIND("" AS ?relation3)
    BIND("" AS ?label2)
  }
  UNION
  {
    ?source ?relation1 ?intermediate1 .
    ?intermediate1 ?relation2 ?intermediate2 .
    ?intermediate2 ?relation3 ?target .
    OPTIONAL { ?intermediate1 rdfs:label ?label1 }
    OPTIONAL { ?intermediate2 rdfs:label ?label2 }
  }
}
LIMIT 50`, sourceURI, targetURI)
}

// FederationTemplate looks for owl:sameAs alignment between two concepts,
// directly or through a shared bridge.
func FederationTemplate(firstURI, secondURI string) string {
	if firstURI == "" || secondURI == "" {
		return ""
	}

	return fmt.Sprintf(`PREFIX owl: <http://www.w3.org/2002/07/owl#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?concept1 ?concept2 ?bridge ?label1 ?label2 ?bridgeLabel
WHERE {
  VALUES ?concept1 { <%s> }
  VALUES ?concept2 { <%s> }

  {
    ?concept1 owl:sameAs ?concept2 .
    BIND(?concept2 AS ?bridge)
  }
  UNION
  {
    ?concept1 owl:sameAs ?bridge .
    ?concept2 owl:sameAs ?bridge .
  }

  OPTIONAL { ?concept1 rdfs:label ?label1 }
  OPTIONAL { ?concept2 rdfs:label ?label2 }
  OPTIONAL { ?bridge rdfs:label ?bridgeLabel }
}
LIMIT 50`, firstURI, secondURI)
}

// ValidationTemplate lists the subject's treatment relations and flags
// whether any of them reaches the asserted object. The filter body names only
// the predicate allowlist, never the object URI.
func ValidationTemplate(subjectURI, objectURI string) string {
	if subjectURI == "" || objectURI == "" {
		return ""
	}

	allowlist := ""
	for i, predicate := range validationPredicates {
		if i > 0 {
			allowlist += ",\n    "
		}
		allowlist += "<" + predicate + ">"
	}

	return fmt.Sprintf(`PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?relation ?target ?targetLabel ?matchesAssertion
WHERE {
  <%s> ?relation ?target .
  FILTER(?relation IN (
    %s
  ))
  OPTIONAL { ?target rdfs:label ?targetLabel }
  BIND((?target = <%s>) AS ?matchesAssertion)
}
LIMIT 50`, subjectURI, allowlist, objectURI)
}
