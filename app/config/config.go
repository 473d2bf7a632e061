package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        Log        `yaml:"log"`
	Server     Server     `yaml:"server"`
	OpenAI     OpenAI     `yaml:"openai"`
	GraphDB    GraphDB    `yaml:"graphdb"`
	Similarity Similarity `yaml:"similarity"`
	Agent      Agent      `yaml:"agent"`
}

type OpenAI struct {
	Orchestrator ModelConfig `yaml:"orchestrator" validate:"required"`
	Interpreter  ModelConfig `yaml:"interpreter" validate:"required"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"google/gemini-2.5-pro" validate:"required"`
}

type Server struct {
	// Address the HTTP API listens on
	Listen string `yaml:"listen" example:":8000"`
	// Address the MCP tool server listens on, empty disables it
	MCPListen string `yaml:"mcp_listen" example:":8001"`
}

type GraphDB struct {
	// Repository name -> SPARQL endpoint URL
	Endpoints map[string]string `yaml:"endpoints" validate:"required,min=1"`
	// Basic auth username (optional)
	Username string `yaml:"username"`
	// Basic auth password (optional)
	Password string `yaml:"password"`
}

type Similarity struct {
	// Base URL of the concept similarity search service
	BaseURL string `yaml:"base_url" example:"http://localhost:8100" validate:"required"`
}

type Agent struct {
	// Knowledge graph queried when the request does not name one
	DefaultGraph string `yaml:"default_graph" example:"grape_hearing"`
	// Scenario used when detection cannot decide
	DefaultScenario string `yaml:"default_scenario" example:"scenario_1_neighbourhood"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if result.Server.Listen == "" {
		result.Server.Listen = ":8000"
	}
	if result.Agent.DefaultGraph == "" {
		result.Agent.DefaultGraph = "grape_hearing"
	}
	if result.Agent.DefaultScenario == "" {
		result.Agent.DefaultScenario = "scenario_1_neighbourhood"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
