// Package main provides the ChartFlow API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jonboulle/clockwork"

	"github.com/carebridge/chartflow/pkg/cmd"
	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/health"
	"github.com/carebridge/chartflow/pkg/notifier"
	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/scheduler"
	"github.com/carebridge/chartflow/pkg/services"
	"github.com/carebridge/chartflow/pkg/template"
	"github.com/carebridge/chartflow/pkg/web"
)

// Config carries the API runtime options beyond the shared flags.
type Config struct {
	RedisURL        string
	ProcessingDelay time.Duration
	Features        map[string]bool
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	notifier    *notifier.RedisNotifier
	handlers    *web.APIHandlers
}

func NewAPI(
	ctx context.Context,
	logger *slog.Logger,
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	config Config,
) (*API, error) {
	clock := clockwork.NewRealClock()

	loader, err := template.NewLoader()
	if err != nil {
		return nil, err
	}

	var redisNotifier *notifier.RedisNotifier

	var changeNotifier services.ChangeNotifier

	if config.RedisURL != "" {
		redisNotifier, err = notifier.NewRedisNotifier(ctx, config.RedisURL, logger)
		if err != nil {
			return nil, err
		}

		changeNotifier = redisNotifier
	}

	sched := scheduler.NewScheduler(persist, eventBus, clock, logger,
		scheduler.WithDelayUnit(config.ProcessingDelay))

	validator10 := validator.New(validator.WithRequiredStructEnabled())
	complianceValidator := compliance.NewValidator(compliance.DefaultConfig(), clock)

	registry := cmd.NewHealthRegistry(logger, complianceValidator)
	aggregator := health.NewAggregator(registry, logger, clock)

	workflowService := services.NewWorkflowService(persist, sched, loader, eventBus, clock, logger)
	recordService := services.NewRecordService(persist, complianceValidator, eventBus, changeNotifier, clock, logger)
	healthService := services.NewHealthService(persist, aggregator, eventBus, config.Features, logger)

	handlers := web.NewAPIHandlers(workflowService, recordService, healthService, persist, validator10)

	return &API{
		logger:      logger,
		persistence: persist,
		eventBus:    eventBus,
		validate:    validator10,
		notifier:    redisNotifier,
		handlers:    handlers,
	}, nil
}

func (a *API) App() *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ChartFlow API")
	})

	w := app.Group("/workflows")
	w.Get("/", a.handlers.GetWorkflows)
	w.Post("/", a.handlers.CreateWorkflow)
	w.Get("/:id", a.handlers.GetWorkflow)
	w.Put("/:id", a.handlers.ReplaceWorkflow)
	w.Delete("/:id", a.handlers.DeleteWorkflow)
	w.Post("/:id/steps/:stepId/complete", a.handlers.CompleteStep)
	w.Post("/:id/automation", a.handlers.SetAutomation)

	r := app.Group("/records")
	r.Get("/", a.handlers.GetRecords)
	r.Post("/", a.handlers.SubmitRecord)
	r.Post("/validate", a.handlers.ValidateRecord)
	r.Get("/:episodeId", a.handlers.GetRecord)

	app.Get("/health-report", a.handlers.GetHealthReport)
	app.Get("/health", a.handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}

func (a *API) Close() {
	if a.notifier == nil {
		return
	}

	if err := a.notifier.Close(); err != nil {
		a.logger.Error("Failed to close notifier", "error", err)
	}
}
