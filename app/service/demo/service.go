package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"grapebot/app/client/graphdb"
	"grapebot/app/client/oracle"
	"grapebot/app/config"
	"grapebot/app/service/agent"
	"grapebot/app/service/query"
	"grapebot/app/service/trace"

	"github.com/samber/do"
)

// Guided pipeline identifiers accepted in the query request.
const (
	IDPatient     = "S1_PATIENT"
	IDPathfinding = "S2_PATHFINDING"
	IDValidation  = "S3_VALIDATION"
	IDAutonomous  = "AUTONOMOUS_DEMO"
)

// Service runs the guided showcase pipelines without any oracle planning.
// Queries still go through the live endpoint when it answers.
type Service struct {
	executor    query.Executor
	interpreter oracle.Invoker
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		executor:    do.MustInvoke[*graphdb.Client](di),
		interpreter: oracle.NewClient(cfg.OpenAI.Interpreter, 0.7),
	}, nil
}

// Handle dispatches a guided pipeline by id. The second return value is false
// when the id is empty or unknown, in which case the caller should fall back
// to regular orchestration.
func (s *Service) Handle(ctx context.Context, demoID, question, kgName string, rec *trace.Recorder) (*agent.Result, bool) {
	if demoID == "" {
		return nil, false
	}

	kgName = normalizeGraph(kgName)

	switch demoID {
	case IDPatient:
		return s.runPatient(ctx, question, kgName, rec), true
	case IDPathfinding:
		return s.runPathfinding(ctx, question, kgName, rec), true
	case IDValidation:
		return s.runValidation(ctx, question, kgName, rec), true
	case IDAutonomous:
		return s.runAutonomous(ctx, question, kgName, rec), true
	}

	return nil, false
}

func (s *Service) runPatient(ctx context.Context, question, kgName string, rec *trace.Recorder) *agent.Result {
	rec.Log(trace.StepScenarioDetection, "Guided pipeline selected: patient overview", trace.StatusInProgress, map[string]any{
		"demo_id": IDPatient,
	})

	result := s.patientExplore(ctx, PatientURI, kgName)
	nodes, links := patientGraph()

	summary := s.narrate(ctx, rec, narration{
		Title: "Patient overview",
		Instructions: "Structure the response as four numbered bullet points: " +
			"(1) recap who the patient is, " +
			"(2) list the key history and current treatments, " +
			"(3) highlight the present symptom, " +
			"(4) end with the clinical question to investigate. " +
			"Keep the tone concise and professional.",
		Payload:  map[string]any{"patient_uri": PatientURI, "facts": result.Rows},
		Fallback: summarizePatientFacts(result.Rows, PatientURI),
		Question: question,
	})

	rec.Success("Patient overview pipeline completed")

	return &agent.Result{
		Scenario:      "DEMO_S1_PATIENT",
		ScenarioName:  "1. Patient Overview",
		Question:      question,
		KGName:        kgName,
		Nodes:         nodes,
		Links:         links,
		Summary:       summary,
		SparqlQueries: result.Queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}
}

func (s *Service) runPathfinding(ctx context.Context, question, kgName string, rec *trace.Recorder) *agent.Result {
	rec.Log(trace.StepScenarioDetection, "Guided pipeline selected: hidden links", trace.StatusInProgress, map[string]any{
		"demo_id": IDPathfinding,
	})

	paths, queries := s.pathfinding(ctx, SubstanceURI, SymptomURI, kgName)
	nodes, links := pathfindingGraph()

	summary := s.narrate(ctx, rec, narration{
		Title: "Hidden path analysis",
		Instructions: "Begin with a short paragraph describing how substance E27B may lead to abdominal pain. " +
			"Then list both discovered paths as bullet points (format '- Path: node1 → relation → node2 → …'). " +
			"Finish with one sentence identifying which path is most critical for the patient.",
		Payload:  map[string]any{"substance": SubstanceURI, "symptom": SymptomURI, "paths": paths},
		Fallback: summarizePaths(paths, SubstanceURI, SymptomURI),
		Question: question,
	})

	rec.Success("Hidden links pipeline completed")

	return &agent.Result{
		Scenario:      "DEMO_S2_PATHFINDING",
		ScenarioName:  "2. Hidden Links",
		Question:      question,
		KGName:        kgName,
		Nodes:         nodes,
		Links:         links,
		Summary:       summary,
		SparqlQueries: queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}
}

func (s *Service) runValidation(ctx context.Context, question, kgName string, rec *trace.Recorder) *agent.Result {
	rec.Log(trace.StepScenarioDetection, "Guided pipeline selected: validation", trace.StatusInProgress, map[string]any{
		"demo_id": IDValidation,
	})

	outcome, queries := s.validation(ctx, PatientURI, DrugURI, kgName)
	nodes, links := validationGraph()

	summary := s.narrate(ctx, rec, narration{
		Title: "Ontology validation",
		Instructions: "State clearly whether Metamorphine is contraindicated for the patient. " +
			"In no more than two sentences, explain how the propertyChainAxiom propagates the contraindication from substance E27B to the drug. " +
			"Conclude with the recommended alternative and, if relevant, a brief clinical recommendation.",
		Payload:  map[string]any{"patient": PatientURI, "drug": DrugURI, "result": outcome},
		Fallback: summarizeValidation(outcome, DrugURI),
		Question: question,
	})

	rec.Success("Validation pipeline completed")

	return &agent.Result{
		Scenario:      "DEMO_S3_VALIDATION",
		ScenarioName:  "3. Validation",
		Question:      question,
		KGName:        kgName,
		Nodes:         nodes,
		Links:         links,
		Summary:       summary,
		SparqlQueries: queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}
}

// runAutonomous chains every pipeline into the full investigation:
// patient, medication, substance, pathfinding, condition family, procedure
// chain, then validation.
func (s *Service) runAutonomous(ctx context.Context, question, kgName string, rec *trace.Recorder) *agent.Result {
	rec.Log(trace.StepScenarioDetection, "Full autonomous pipeline triggered", trace.StatusInProgress, map[string]any{
		"demo_id": IDAutonomous,
	})

	var queries []string

	rec.Start(trace.StepNeighbourhoodExploration, "Starting semantic analysis. Exploring patient data...")
	patient := s.patientExplore(ctx, PatientURI, kgName)
	queries = append(queries, patient.Queries...)

	rec.Start(trace.StepNeighbourhoodExploration, "Patient exploration complete. Found Nephrectomy (2005) history and current Metamorphine treatment. Active substance: E27B.")
	medication := s.medicationProfile(ctx, DrugURI, kgName)
	queries = append(queries, medication.Queries...)

	rec.Start(trace.StepNeighbourhoodExploration, "Analyzing Metamorphine: indicated for diabetes, active substance E27B.")
	substance := s.substanceProfile(ctx, SubstanceURI, kgName)
	queries = append(queries, substance.Queries...)

	rec.Start(trace.StepQueryExecution, "No direct link found between E27B and abdominal pain. Initiating multi-hop search...")
	paths, pathQueries := s.pathfinding(ctx, SubstanceURI, SymptomURI, kgName)
	queries = append(queries, pathQueries...)

	rec.Start(trace.StepQueryExecution, "Paths found. Mapping renal effects associated with post-nephrectomy status...")
	family := s.conditionFamily(ctx, ConditionURI, kgName)
	queries = append(queries, family.Queries...)

	rec.Start(trace.StepQueryExecution, "Checking procedure to clinical status chain to confirm risk...")
	procedures := s.procedureChain(ctx, PatientURI, kgName)
	queries = append(queries, procedures.Queries...)

	rec.Start(trace.StepQueryExecution, "Launching ontological validator...")
	outcome, validationQueries := s.validation(ctx, PatientURI, DrugURI, kgName)
	queries = append(queries, validationQueries...)

	rec.Log(trace.StepResultInterpretation, "Alert confirmed. Metamorphine is contraindicated for this patient. Generating synthesis...", trace.StatusInProgress, nil)

	storyboard := map[string]any{
		"patient_uri":        PatientURI,
		"patient_history":    HistoryURI,
		"drug":               DrugURI,
		"substance":          SubstanceURI,
		"symptom":            SymptomURI,
		"patient_profile":    patient.Rows,
		"medication_profile": medication.Rows,
		"substance_profile":  substance.Rows,
		"paths":              paths,
		"condition_family":   family.Rows,
		"procedure_chain":    procedures.Rows,
		"validation":         outcome,
		"alternative":        outcome.Alternative,
	}

	summary := s.narrate(ctx, rec, narration{
		Title: "Autonomous analysis",
		Instructions: "Narrate the investigation in three titled sections (e.g. 'Phase 1 – Patient', 'Phase 2 – Substance', 'Phase 3 – Verdict'), each limited to two sentences. " +
			"Highlight the pharmacological conflict and finish with the proposed alternative.",
		Payload:  storyboard,
		Fallback: summarizeAutonomous(outcome),
		Question: question,
	})

	nodes, links := fullGraph()

	rec.Success("Autonomous pipeline completed")

	return &agent.Result{
		Scenario:      "DEMO_AUTONOMOUS",
		ScenarioName:  "Full Analysis",
		Question:      question,
		KGName:        kgName,
		Nodes:         nodes,
		Links:         links,
		Summary:       summary,
		SparqlQueries: queries,
		Trace:         rec.Trace(),
		TraceDisplay:  rec.FormatForDisplay(),
	}
}

type narration struct {
	Title        string
	Instructions string
	Payload      map[string]any
	Fallback     string
	Question     string
}

// narrate asks the interpreter oracle for a rich summary and degrades to the
// deterministic fallback text when it is unavailable.
func (s *Service) narrate(ctx context.Context, rec *trace.Recorder, n narration) string {
	payloadJSON, err := json.MarshalIndent(n.Payload, "", "  ")
	if err != nil {
		payloadJSON = []byte("{}")
	}

	questionLine := n.Question
	if questionLine == "" {
		questionLine = "Not provided"
	}

	prompt := fmt.Sprintf(`You are a semantic medical agent. Follow the instructions exactly.
Expected title: %s.
Instructions: %s
Original question: %s
Language rule: answer in the same language as the question if it is identifiable; otherwise respond in English.
Raw data (JSON follows):
%s`, n.Title, n.Instructions, questionLine, payloadJSON)

	content, err := s.interpreter.Invoke(ctx, prompt)
	if err != nil {
		rec.Log(trace.StepResultInterpretation, "Oracle unavailable for narration, using fallback text", trace.StatusInProgress, map[string]any{
			"error": err.Error(),
		})
		return n.Fallback
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return n.Fallback
	}

	rec.Complete(trace.StepResultInterpretation, "Generated narrated summary", map[string]any{
		"title": n.Title,
	})

	return content
}

func summarizePatientFacts(rows []graphdb.Row, patientURI string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("### Patient view (%s)\nNo facts were retrieved.", patientURI)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Patient view (%s)\n", patientURI)
	for _, row := range rows {
		fmt.Fprintf(&sb, "- **%s**: %s\n", strings.TrimSpace(row["prop_label"]), strings.TrimSpace(row["value_label"]))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func summarizePaths(paths []string, substanceURI, symptomURI string) string {
	if len(paths) == 0 {
		return fmt.Sprintf("No path detected between `%s` and `%s`.", substanceURI, symptomURI)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "### Links detected between `%s` and `%s`\n", substanceURI, symptomURI)
	for _, path := range paths {
		fmt.Fprintf(&sb, "- %s\n", path)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func summarizeValidation(outcome ValidationOutcome, drugURI string) string {
	return fmt.Sprintf(`### Ontological validation for `+"`%s`"+`
- Status: **%s**
- Justification: %s
- Proposed alternative: %s`, drugURI, outcome.Validation, outcome.Reason, outcome.Alternative)
}

func summarizeAutonomous(outcome ValidationOutcome) string {
	return fmt.Sprintf(`**Semantic agent synthesis:**
1. **Patient:** `+"`%s`"+` has the prior procedure `+"`%s`"+`.
2. **Conflict:** The patient takes `+"`%s`"+`, whose active substance (`+"`%s`"+`) is contraindicated for `+"`%s`"+`.
3. **Reasoning:** The agent infers that `+"`%s`"+` is contraindicated for the patient.
4. **Alternative:** `+"`%s`"+` is proposed as a substitute treatment.`,
		PatientURI, HistoryURI, DrugURI, SubstanceURI, HistoryURI, DrugURI, outcome.Alternative)
}
