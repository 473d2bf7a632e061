package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"grapebot/app/client/oracle"
	"grapebot/app/service/scenario"
)

// buildPlan asks the oracle for an ordered list of tool calls and validates
// it into the closed step variants. Any parse or validation failure is
// returned to the caller, which switches to the fallback flow.
func (s *Service) buildPlan(ctx context.Context, def *scenario.Definition, question, kgName string) ([]PlanStep, error) {
	prompt := fmt.Sprintf(`%s

**Current Task:**
- Question: %s
- Knowledge Graph: %s
- Scenario: %s

**Instructions:**
Execute this scenario step by step. For each MCP tool call, provide:
1. Tool endpoint (e.g., /mcp/extract_entities)
2. Payload as JSON

Format your response as a JSON array of steps:
`+"```json"+`
[
  {
    "tool": "/mcp/extract_entities",
    "payload": {"question": "%s", "kg_name": "%s"}
  },
  {
    "tool": "/mcp/concepts",
    "payload": {"query_text": "extracted_entity", "kg_name": "%s", "limit": 3}
  }
]
`+"```"+`

Provide the execution plan:`,
		def.SystemPrompt, question, kgName, def.Name, question, kgName, kgName)

	content, err := s.orchestrator.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan request failed: %w", err)
	}

	return parsePlan(content)
}

func parsePlan(content string) ([]PlanStep, error) {
	planText := oracle.ExtractFenced(content, "json")
	if planText == "" {
		planText = oracle.StripFences(content)
	}

	var rawSteps []rawPlanStep
	if err := json.Unmarshal([]byte(planText), &rawSteps); err != nil {
		return nil, fmt.Errorf("failed to parse execution plan: %w", err)
	}

	if len(rawSteps) == 0 {
		return nil, fmt.Errorf("execution plan is empty")
	}

	steps := make([]PlanStep, 0, len(rawSteps))
	for _, raw := range rawSteps {
		kind, err := classifyTool(raw.Tool)
		if err != nil {
			return nil, err
		}

		payload := raw.Payload
		if payload == nil {
			payload = map[string]any{}
		}

		steps = append(steps, PlanStep{
			Kind:    kind,
			Tool:    raw.Tool,
			Payload: payload,
		})
	}

	return steps, nil
}
