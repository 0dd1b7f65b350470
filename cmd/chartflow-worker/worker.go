// Package main provides the ChartFlow worker daemon: it consumes workflow and
// compliance events and generates health reports on a cron schedule.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carebridge/chartflow/pkg/cmd"
	"github.com/carebridge/chartflow/pkg/compliance"
	"github.com/carebridge/chartflow/pkg/eventbus"
	"github.com/carebridge/chartflow/pkg/events"
	"github.com/carebridge/chartflow/pkg/health"
	"github.com/carebridge/chartflow/pkg/models"
	"github.com/carebridge/chartflow/pkg/otelhelper"
	"github.com/carebridge/chartflow/pkg/persistence"
	"github.com/carebridge/chartflow/pkg/services"
)

// Config carries the worker runtime options beyond the shared flags.
type Config struct {
	ReportSchedule string
	Features       map[string]bool
}

// scheduleCheckInterval is how often the worker polls the report schedule.
const scheduleCheckInterval = 30 * time.Second

type Worker struct {
	id            string
	eventBus      eventbus.EventBus
	healthService *services.HealthService
	schedule      *models.ReportSchedule
	clock         clockwork.Clock
	tracer        trace.Tracer
	logger        *slog.Logger
}

func NewWorker(
	ctx context.Context,
	id string,
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	config Config,
) (*Worker, error) {
	clock := clockwork.NewRealClock()

	schedule, err := models.NewReportSchedule("health-report", config.ReportSchedule, clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("invalid report schedule: %w", err)
	}

	tracer, err := otelhelper.NewTracer(ctx, "chartflow-worker")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	complianceValidator := compliance.NewValidator(compliance.DefaultConfig(), clock)
	registry := cmd.NewHealthRegistry(logger, complianceValidator)
	aggregator := health.NewAggregator(registry, logger, clock)
	healthService := services.NewHealthService(persist, aggregator, eventBus, config.Features, logger)

	return &Worker{
		id:            id,
		eventBus:      eventBus,
		healthService: healthService,
		schedule:      schedule,
		clock:         clock,
		tracer:        tracer,
		logger:        logger,
	}, nil
}

// Start wires the event subscriptions and the report schedule loop, then
// blocks until a shutdown signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.subscribe(ctx); err != nil {
		return err
	}

	go w.runScheduleLoop(ctx)

	w.logger.InfoContext(ctx, "Worker started",
		"report_schedule", w.schedule.CronExpression,
		"next_report_at", w.schedule.NextDueAt,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker")
	cancel()

	return nil
}

func (w *Worker) subscribe(ctx context.Context) error {
	handlers := map[events.EventType]eventbus.EventHandler{
		events.StepStartedEvent:       w.handleStepStarted,
		events.StepCompletedEvent:     w.handleStepCompleted,
		events.WorkflowCompletedEvent: w.handleWorkflowCompleted,
		events.RecordValidatedEvent:   w.handleRecordValidated,
	}

	for eventType, handler := range handlers {
		if err := w.eventBus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return w.eventBus.Subscribe(ctx)
}

func (w *Worker) runScheduleLoop(ctx context.Context) {
	ticker := w.clock.NewTicker(scheduleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			now := w.clock.Now().UTC()
			if !w.schedule.IsDue(now) {
				continue
			}

			w.generateReport(ctx)

			if err := w.schedule.UpdateNextDueAt(now); err != nil {
				w.logger.ErrorContext(ctx, "Failed to advance report schedule", "error", err)
			}
		}
	}
}

func (w *Worker) generateReport(ctx context.Context) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "generate_health_report",
		attribute.String(otelhelper.WorkerIDKey, w.id))
	defer span.End()

	report, err := w.healthService.GenerateReport(ctx)
	if err != nil {
		otelhelper.SetError(span, err)
		w.logger.ErrorContext(ctx, "Failed to generate health report", "error", err)

		return
	}

	span.SetAttributes(
		attribute.Int(otelhelper.ReportScoreKey, report.OverallScore),
		attribute.Int(otelhelper.ReportIssuesKey, len(report.Issues)),
	)

	w.logger.InfoContext(ctx, "Scheduled health report generated",
		"overall_score", report.OverallScore,
		"issues", len(report.Issues),
	)
}

func (w *Worker) handleStepStarted(ctx context.Context, event interface{}) error {
	stepEvent, ok := event.(*events.StepStarted)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for StepStarted")

		return nil
	}

	_, span := otelhelper.StartSpan(ctx, w.tracer, "step_started",
		attribute.String(otelhelper.WorkflowIDKey, stepEvent.WorkflowID),
		attribute.String(otelhelper.StepIDKey, stepEvent.StepID),
	)
	defer span.End()

	w.logger.InfoContext(ctx, "Step started",
		"workflow_id", stepEvent.WorkflowID,
		"step_id", stepEvent.StepID,
		"auto", stepEvent.Auto,
	)

	return nil
}

func (w *Worker) handleStepCompleted(ctx context.Context, event interface{}) error {
	stepEvent, ok := event.(*events.StepCompleted)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for StepCompleted")

		return nil
	}

	_, span := otelhelper.StartSpan(ctx, w.tracer, "step_completed",
		attribute.String(otelhelper.WorkflowIDKey, stepEvent.WorkflowID),
		attribute.String(otelhelper.StepIDKey, stepEvent.StepID),
	)
	defer span.End()

	w.logger.InfoContext(ctx, "Step completed",
		"workflow_id", stepEvent.WorkflowID,
		"step_id", stepEvent.StepID,
		"auto", stepEvent.Auto,
		"completion_rate", stepEvent.CompletionRate,
	)

	return nil
}

func (w *Worker) handleWorkflowCompleted(ctx context.Context, event interface{}) error {
	workflowEvent, ok := event.(*events.WorkflowCompleted)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowCompleted")

		return nil
	}

	_, span := otelhelper.StartSpan(ctx, w.tracer, "workflow_completed",
		attribute.String(otelhelper.WorkflowIDKey, workflowEvent.WorkflowID))
	defer span.End()

	w.logger.InfoContext(ctx, "Workflow completed",
		"workflow_id", workflowEvent.WorkflowID,
		"completion_rate", workflowEvent.CompletionRate,
	)

	// A finished workflow changes the robustness picture immediately.
	w.generateReport(ctx)

	return nil
}

func (w *Worker) handleRecordValidated(ctx context.Context, event interface{}) error {
	recordEvent, ok := event.(*events.RecordValidated)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RecordValidated")

		return nil
	}

	_, span := otelhelper.StartSpan(ctx, w.tracer, "record_validated",
		attribute.String(otelhelper.EpisodeIDKey, recordEvent.EpisodeID))
	defer span.End()

	w.logger.InfoContext(ctx, "Record validated",
		"episode_id", recordEvent.EpisodeID,
		"passed", recordEvent.Passed,
		"issues", recordEvent.IssueCount,
	)

	return nil
}
