package scenario

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"grapebot/app/client/oracle"
	"grapebot/app/service/trace"
)

//go:embed scenarios/*.json
var scenarioFS embed.FS

// Registry holds every scenario definition, keyed by identifier. It is
// immutable after construction and safe for concurrent reads.
type Registry struct {
	llm             oracle.Invoker
	defaultScenario string
	scenarios       map[string]*Definition
	orderedIDs      []string
}

func NewRegistry(llm oracle.Invoker, defaultScenario string) (*Registry, error) {
	scenarios, err := loadDefinitions()
	if err != nil {
		return nil, err
	}

	if _, ok := scenarios[defaultScenario]; !ok {
		return nil, fmt.Errorf("default scenario %q is not defined", defaultScenario)
	}

	orderedIDs := make([]string, 0, len(scenarios))
	for id := range scenarios {
		orderedIDs = append(orderedIDs, id)
	}
	sort.Strings(orderedIDs)

	return &Registry{
		llm:             llm,
		defaultScenario: defaultScenario,
		scenarios:       scenarios,
		orderedIDs:      orderedIDs,
	}, nil
}

func loadDefinitions() (map[string]*Definition, error) {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario definitions: %w", err)
	}

	scenarios := map[string]*Definition{}

	for _, entry := range entries {
		data, err := scenarioFS.ReadFile("scenarios/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario %s: %w", entry.Name(), err)
		}

		var definition Definition
		if err = json.Unmarshal(data, &definition); err != nil {
			return nil, fmt.Errorf("failed to parse scenario %s: %w", entry.Name(), err)
		}

		if definition.ID == "" {
			return nil, fmt.Errorf("scenario %s has no scenario_id", entry.Name())
		}

		scenarios[definition.ID] = &definition
	}

	return scenarios, nil
}

func (r *Registry) Get(id string) (*Definition, bool) {
	definition, ok := r.scenarios[id]
	return definition, ok
}

func (r *Registry) Default() *Definition {
	return r.scenarios[r.defaultScenario]
}

func (r *Registry) All() []*Definition {
	result := make([]*Definition, 0, len(r.orderedIDs))
	for _, id := range r.orderedIDs {
		result = append(result, r.scenarios[id])
	}

	return result
}

// Detect classifies the question into a scenario identifier. Detection never
// fails: oracle errors and unknown identifiers resolve to the default
// scenario, recorded in the trace.
func (r *Registry) Detect(ctx context.Context, question string, rec *trace.Recorder) string {
	rec.Start(trace.StepScenarioDetection, "Analyzing question to identify scenario...")

	var descriptions strings.Builder
	for _, definition := range r.All() {
		fmt.Fprintf(&descriptions, "- %s: %s - %s\n", definition.ID, definition.Name, definition.Description)
	}

	prompt := fmt.Sprintf(`You are a medical knowledge graph assistant. Analyze the user's question and identify which scenario fits best.

**Available Scenarios:**
%s
**User Question:** %s

**Instructions:**
Return ONLY the scenario_id (e.g., "scenario_1_neighbourhood"). No explanation needed.

**Scenario ID:**`, descriptions.String(), question)

	content, err := r.llm.Invoke(ctx, prompt)
	if err != nil {
		rec.Fail(trace.StepScenarioDetection, "Scenario detection failed, using default", err)
		return r.defaultScenario
	}

	detected := strings.Trim(strings.TrimSpace(content), "\"`")
	if _, ok := r.scenarios[detected]; !ok {
		detected = r.defaultScenario
	}

	rec.Complete(trace.StepScenarioDetection, "Identified scenario: "+r.scenarios[detected].Name, map[string]any{
		"question": question,
		"scenario": detected,
	})

	return detected
}
