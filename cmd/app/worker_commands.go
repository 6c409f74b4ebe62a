package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/allisson/publishq/cmd/app/commands"
	"github.com/allisson/publishq/internal/app"
)

func getWorkerCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "worker",
			Usage: "Claim and process jobs from a queue until interrupted",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "queue",
					Aliases: []string{"q"},
					Usage:   "Queue to drain (defaults to WORKER_QUEUE)",
				},
				&cli.IntFlag{
					Name:    "concurrency",
					Aliases: []string{"c"},
					Usage:   "Number of poll loops (defaults to WORKER_CONCURRENCY)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(context.Background()) }()

				logger := container.Logger()
				concurrency := commands.WorkerConcurrency(cfg, int(cmd.Int("concurrency")), logger)

				worker, err := container.Worker(cmd.String("queue"), concurrency)
				if err != nil {
					return err
				}
				sweeper, err := container.Sweeper()
				if err != nil {
					return err
				}

				metricsServer, err := container.MetricsServer()
				if err != nil {
					return err
				}
				if metricsServer != nil {
					go func() {
						if err := metricsServer.Start(ctx); err != nil {
							logger.Error("metrics server error", slog.Any("error", err))
						}
					}()
				}

				return commands.RunWorker(ctx, worker, sweeper, logger)
			},
		},
		{
			Name:  "reconciler",
			Usage: "Time out publish requests that never received a platform callback",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(context.Background()) }()

				reconciler, err := container.Reconciler()
				if err != nil {
					return err
				}

				return commands.RunReconciler(ctx, reconciler, container.Logger())
			},
		},
	}
}
