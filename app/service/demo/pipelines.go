package demo

import (
	"context"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
)

// Fixed URIs of the guided showcase. The pipelines work against live data
// when the endpoint answers and degrade to these canned facts otherwise.
const (
	PatientURI   = "expat:PatientJohn"
	DrugURI      = "exmed:Metamorphine"
	SubstanceURI = "exdrug:E27B"
	SymptomURI   = "excommon:AbdominalPain"
	HistoryURI   = "excond:Nephrectomy2005"
	ConditionURI = "excond:PostNephrectomyStatus"
)

type pipelineResult struct {
	Rows    []graphdb.Row
	Queries []string
}

func patientExploreQuery(patientURI string) string {
	return fmt.Sprintf(`PREFIX expat: <http://example.org/patient/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?prop ?prop_label ?value ?value_label
WHERE {
  %s ?prop ?value .
  ?prop rdfs:label ?prop_label .
  ?value rdfs:label ?value_label .
  FILTER(?prop IN (
    expat:hasCondition,
    expat:hasProcedure,
    expat:hasSymptom,
    expat:takesMedication
  ))
}`, patientURI)
}

var patientExploreFallback = []graphdb.Row{
	{"prop": "expat:hasCondition", "prop_label": "has diagnosed condition", "value": "excond:DiabetesMellitus", "value_label": "Diabetes Mellitus"},
	{"prop": "expat:hasProcedure", "prop_label": "has past procedure", "value": "excond:Nephrectomy2005", "value_label": "Nephrectomy (2005)"},
	{"prop": "expat:hasSymptom", "prop_label": "is currently experiencing", "value": "excommon:AbdominalPain", "value_label": "Abdominal Pain"},
	{"prop": "expat:takesMedication", "prop_label": "is currently taking", "value": "exmed:Metamorphine", "value_label": "Metamorphine"},
}

// patientExplore pulls the clinically relevant one-hop facts around a patient.
func (s *Service) patientExplore(ctx context.Context, patientURI, kgName string) pipelineResult {
	query := patientExploreQuery(patientURI)
	rows := s.rowsOrFallback(ctx, query, kgName, patientExploreFallback)

	return pipelineResult{Rows: rows, Queries: []string{query}}
}

func pathfindingQuery(substanceURI, symptomURI string) string {
	return fmt.Sprintf(`PREFIX exdrug: <http://example.org/drug/>
PREFIX excond: <http://example.org/condition/>
PREFIX excommon: <http://example.org/common/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?path_name (GROUP_CONCAT(?mid_label; SEPARATOR=" -> ") AS ?path_nodes)
WHERE {
  {
    BIND("Symptom similarity link" AS ?path_name)
    %[1]s exdrug:causesSymptom ?mid_node .
    ?mid_node excommon:semanticallySimilarTo %[2]s .
    ?mid_node rdfs:label ?mid_label .
  }
  UNION
  {
    BIND("Contraindication symptom link" AS ?path_name)
    %[1]s exdrug:contraindicatedFor ?mid_node .
    ?mid_node excond:typicalSymptom %[2]s .
    ?mid_node rdfs:label ?mid_label .
  }
}
GROUP BY ?path_name`, substanceURI, symptomURI)
}

var pathfindingFallback = []string{
	"E27B -> causesSymptom -> Stomach Discomfort -> semanticallySimilarTo -> Abdominal Pain",
	"E27B -> contraindicatedFor -> Post-NephrectomyStatus -> typicalSymptom -> Abdominal Pain",
}

// pathfinding discovers the 2-hop chains linking a substance to a symptom.
func (s *Service) pathfinding(ctx context.Context, substanceURI, symptomURI, kgName string) ([]string, []string) {
	query := pathfindingQuery(substanceURI, symptomURI)

	result, err := s.executor.Execute(ctx, query, kgName)
	if err != nil || len(result.Rows) == 0 {
		return pathfindingFallback, []string{query}
	}

	var paths []string
	for _, row := range result.Rows {
		name := row["path_name"]
		nodes := row["path_nodes"]
		if name != "" && nodes != "" {
			paths = append(paths, name+": "+nodes)
		}
	}
	if len(paths) == 0 {
		paths = pathfindingFallback
	}

	return paths, []string{query}
}

// ValidationOutcome is the verdict of the contraindication check.
type ValidationOutcome struct {
	Validation     string   `json:"validation"`
	Reason         string   `json:"reason"`
	Alternative    string   `json:"alternative"`
	InferenceSteps []string `json:"inference_steps"`
}

func validationAskQuery(patientURI, drugURI string) string {
	return fmt.Sprintf(`PREFIX expat: <http://example.org/patient/>
PREFIX exmed: <http://example.org/medication/>
PREFIX excond: <http://example.org/condition/>

ASK WHERE {
  %s expat:hasProcedure ?procedure .
  ?procedure excond:resultsInCondition ?condition_ci .
  %s exmed:contraindicatedFor ?condition_ci .
}`, patientURI, drugURI)
}

const validationAlternativeQuery = `PREFIX exmed: <http://example.org/medication/>
PREFIX excond: <http://example.org/condition/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?alt_drug ?alt_drug_label
WHERE {
  ?alt_drug exmed:indicatedFor excond:DiabetesMellitus .
  FILTER(?alt_drug != exmed:Metamorphine)
  FILTER NOT EXISTS {
    ?alt_drug exmed:contraindicatedFor excond:PostNephrectomyStatus .
  }
  ?alt_drug rdfs:label ?alt_drug_label .
}
LIMIT 1`

// validation runs the ASK contraindication check plus the alternative lookup,
// keeping canned verdict values when the endpoint cannot confirm either way.
func (s *Service) validation(ctx context.Context, patientURI, drugURI, kgName string) (ValidationOutcome, []string) {
	askQuery := validationAskQuery(patientURI, drugURI)

	outcome := ValidationOutcome{
		Validation: "CONTRAINDICATED",
		Reason: "Patient has 'PostNephrectomyStatus' (from 'Nephrectomy2005'), " +
			"drug inherits the same contraindication from substance 'E27B'.",
		Alternative: "Glucorin",
		InferenceSteps: []string{
			"owl:propertyChainAxiom: Metamorphine inherits the contraindications of E27B.",
			"Nephrectomy2005 resultsInCondition PostNephrectomyStatus for PatientJohn.",
			"PostNephrectomyStatus presents the typical symptom AbdominalPain.",
		},
	}

	if askResult, err := s.executor.Execute(ctx, askQuery, kgName); err == nil && askResult.Boolean != nil && !*askResult.Boolean {
		outcome.Validation = "ALLOWED"
		outcome.Reason = "No conflicting post-nephrectomy status detected."
	}

	if altResult, err := s.executor.Execute(ctx, validationAlternativeQuery, kgName); err == nil && len(altResult.Rows) > 0 {
		if label := altResult.Rows[0]["alt_drug_label"]; label != "" {
			outcome.Alternative = label
		}
	}

	return outcome, []string{askQuery, validationAlternativeQuery}
}

func medicationProfileQuery(medicationURI string) string {
	return fmt.Sprintf(`PREFIX exmed: <http://example.org/medication/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?prop ?prop_label ?value ?value_label
WHERE {
  %s ?prop ?value .
  ?prop rdfs:label ?prop_label .
  ?value rdfs:label ?value_label .
  FILTER(?prop IN (exmed:indicatedFor, exmed:hasActiveSubstance, exmed:contraindicatedFor))
}`, medicationURI)
}

var medicationProfileFallback = []graphdb.Row{
	{"prop": "exmed:indicatedFor", "prop_label": "is indicated for", "value": "excond:DiabetesMellitus", "value_label": "Diabetes Mellitus"},
	{"prop": "exmed:hasActiveSubstance", "prop_label": "has active substance", "value": "exdrug:E27B", "value_label": "Substance E27B"},
}

func (s *Service) medicationProfile(ctx context.Context, medicationURI, kgName string) pipelineResult {
	query := medicationProfileQuery(medicationURI)
	rows := s.rowsOrFallback(ctx, query, kgName, medicationProfileFallback)

	return pipelineResult{Rows: rows, Queries: []string{query}}
}

func substanceProfileQuery(substanceURI string) string {
	return fmt.Sprintf(`PREFIX exdrug: <http://example.org/drug/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX excond: <http://example.org/condition/>

SELECT ?prop ?prop_label ?value ?value_label
WHERE {
  %s ?prop ?value .
  ?prop rdfs:label ?prop_label .
  ?value rdfs:label ?value_label .
  FILTER(?prop IN (exdrug:contraindicatedFor, exdrug:causesSymptom))
}`, substanceURI)
}

var substanceProfileFallback = []graphdb.Row{
	{"prop": "exdrug:contraindicatedFor", "prop_label": "is contraindicated for", "value": "excond:PostNephrectomyStatus", "value_label": "Post-Nephrectomy Status"},
	{"prop": "exdrug:causesSymptom", "prop_label": "causes symptom", "value": "excommon:StomachDiscomfort", "value_label": "Stomach Discomfort"},
}

func (s *Service) substanceProfile(ctx context.Context, substanceURI, kgName string) pipelineResult {
	query := substanceProfileQuery(substanceURI)
	rows := s.rowsOrFallback(ctx, query, kgName, substanceProfileFallback)

	return pipelineResult{Rows: rows, Queries: []string{query}}
}

func conditionFamilyQuery(conditionURI string) string {
	return fmt.Sprintf(`PREFIX excond: <http://example.org/condition/>
PREFIX excommon: <http://example.org/common/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?relation_label ?target_label
WHERE {
  {
    %[1]s excond:typicalSymptom ?symptom .
    BIND("typicalSymptom" AS ?relation_label)
    ?symptom rdfs:label ?target_label .
  }
  UNION
  {
    %[1]s excond:affectsOrgan ?organ .
    BIND("affectsOrgan" AS ?relation_label)
    ?organ rdfs:label ?target_label .
  }
}`, conditionURI)
}

var conditionFamilyFallback = []graphdb.Row{
	{"relation_label": "typicalSymptom", "target_label": "Abdominal Pain"},
	{"relation_label": "affectsOrgan", "target_label": "Kidney"},
}

func (s *Service) conditionFamily(ctx context.Context, conditionURI, kgName string) pipelineResult {
	query := conditionFamilyQuery(conditionURI)
	rows := s.rowsOrFallback(ctx, query, kgName, conditionFamilyFallback)

	return pipelineResult{Rows: rows, Queries: []string{query}}
}

func procedureChainQuery(patientURI string) string {
	return fmt.Sprintf(`PREFIX expat: <http://example.org/patient/>
PREFIX excond: <http://example.org/condition/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>

SELECT ?procedure_label ?condition_label
WHERE {
  %s expat:hasProcedure ?procedure .
  ?procedure rdfs:label ?procedure_label .
  OPTIONAL {
    ?procedure excond:resultsInCondition ?condition .
    ?condition rdfs:label ?condition_label .
  }
}`, patientURI)
}

var procedureChainFallback = []graphdb.Row{
	{"procedure_label": "Nephrectomy (2005)", "condition_label": "Post-Nephrectomy Status"},
}

func (s *Service) procedureChain(ctx context.Context, patientURI, kgName string) pipelineResult {
	query := procedureChainQuery(patientURI)
	rows := s.rowsOrFallback(ctx, query, kgName, procedureChainFallback)

	return pipelineResult{Rows: rows, Queries: []string{query}}
}

func (s *Service) rowsOrFallback(ctx context.Context, query, kgName string, fallback []graphdb.Row) []graphdb.Row {
	result, err := s.executor.Execute(ctx, query, kgName)
	if err != nil || result.Boolean != nil || len(result.Rows) == 0 {
		return fallback
	}

	return result.Rows
}

// normalizeGraph restricts demo execution to the graphs it was authored for.
func normalizeGraph(kgName string) string {
	key := strings.TrimPrefix(strings.ToLower(kgName), "grape_")
	switch key {
	case "demo", "hearing", "psychiatry", "unified":
		return kgName
	}

	return "unified"
}
