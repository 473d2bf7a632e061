package scenario

// Definition is one reasoning scenario, loaded once at startup and shared
// read-only across requests.
type Definition struct {
	ID            string   `json:"scenario_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	SystemPrompt  string   `json:"system_prompt"`
	RequiredTools []string `json:"required_tools"`
}
