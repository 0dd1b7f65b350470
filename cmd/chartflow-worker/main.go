package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/carebridge/chartflow/pkg/cmd"
	"github.com/carebridge/chartflow/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "chartflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Process workflow events and generate scheduled health reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "report-schedule",
				Usage:   "Cron expression for periodic health report generation",
				Value:   "0 * * * *",
				Sources: cli.EnvVars("REPORT_SCHEDULE"),
			},
			&cli.StringSliceFlag{
				Name:    "features",
				Usage:   "Enabled platform feature flags",
				Sources: cli.EnvVars("FEATURES"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("chartflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing ChartFlow Worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			features := make(map[string]bool)
			for _, feature := range command.StringSlice("features") {
				features[feature] = true
			}

			worker, err := NewWorker(ctx, workerID, persistence, eventBus, logger, Config{
				ReportSchedule: command.String("report-schedule"),
				Features:       features,
			})
			if err != nil {
				return err
			}

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
