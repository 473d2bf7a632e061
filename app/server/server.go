package server

import (
	"context"
	"errors"
	"log/slog"

	"grapebot/app/client/graphdb"
	"grapebot/app/client/similarity"
	"grapebot/app/config"
	"grapebot/app/service/agent"
	"grapebot/app/service/demo"
	"grapebot/app/service/trace"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
	"github.com/tmc/langchaingo/tools"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	cfg      *config.Config
	agent    *agent.Service
	demo     *demo.Service
	app      *fiber.App
	mcp      *MCPServer
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	toolList := []tools.Tool{
		&sparqlTool{
			executor:     do.MustInvoke[*graphdb.Client](di),
			defaultGraph: cfg.Agent.DefaultGraph,
		},
		&conceptTool{
			searcher:     do.MustInvoke[*similarity.Client](di),
			defaultGraph: cfg.Agent.DefaultGraph,
		},
	}

	s := &Service{
		cfg:      cfg,
		agent:    do.MustInvoke[*agent.Service](di),
		demo:     do.MustInvoke[*demo.Service](di),
		mcp:      newMCPServer(cfg.Server.MCPListen, toolList),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/agent/query", s.handleQuery)
	api.Get("/agent/scenarios", s.handleScenarios)

	return s, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

type queryRequest struct {
	Question   string `json:"question" validate:"required,min=1"`
	KGName     string `json:"kg_name"`
	ScenarioID string `json:"scenario_id"`
	DemoID     string `json:"demo_id"`
}

func (s *Service) handleQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rec := trace.NewRecorder()

	if result, handled := s.demo.Handle(c.UserContext(), req.DemoID, req.Question, req.KGName, rec); handled {
		return c.JSON(result)
	}

	result, err := s.agent.Answer(c.UserContext(), req.Question, req.KGName, req.ScenarioID, rec)
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Query execution failed",
			"question", req.Question,
			"error", err)

		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(result)
}

type scenarioInfo struct {
	ID          string `json:"scenario_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) handleScenarios(c *fiber.Ctx) error {
	defs := s.agent.Registry().All()

	infos := make([]scenarioInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, scenarioInfo{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
		})
	}

	return c.JSON(fiber.Map{
		"scenarios": infos,
		"default":   s.agent.Registry().Default().ID,
	})
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func (s *Service) Run(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.mcp.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		slog.Info("HTTP server listening", "addr", s.cfg.Server.Listen)
		return s.app.Listen(s.cfg.Server.Listen)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		return s.app.Shutdown()
	})

	if err := group.Wait(); err != nil {
		slog.Error("HTTP server stopped", "error", err)
	}
}
