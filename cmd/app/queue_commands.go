package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/publishq/cmd/app/commands"
	"github.com/allisson/publishq/internal/app"
)

func getQueueCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "enqueue",
			Usage: "Enqueue a job",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "queue",
					Aliases: []string{"q"},
					Value:   "default",
					Usage:   "Queue name",
				},
				&cli.StringFlag{
					Name:     "type",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Job type (must have a registered handler to succeed)",
				},
				&cli.StringFlag{
					Name:    "payload",
					Aliases: []string{"p"},
					Usage:   "JSON document passed to the handler",
				},
				&cli.StringFlag{
					Name:  "dedup-key",
					Usage: "Reject a second active job with the same key",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queueUseCase, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				return commands.RunEnqueue(
					ctx,
					queueUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("queue"),
					cmd.String("type"),
					cmd.String("payload"),
					cmd.String("dedup-key"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "drain",
			Usage: "Claim and process exactly one job of a queue",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "queue",
					Aliases: []string{"q"},
					Value:   "default",
					Usage:   "Queue name",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				processor, err := container.Processor()
				if err != nil {
					return err
				}

				return commands.RunDrain(
					ctx,
					processor,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("queue"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "stats",
			Usage: "Show job counts per queue, dead-letter counters and publish request counts",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queueUseCase, err := container.QueueUseCase()
				if err != nil {
					return err
				}
				publishUseCase, err := container.PublishUseCase()
				if err != nil {
					return err
				}

				return commands.RunStats(
					ctx,
					queueUseCase,
					publishUseCase,
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "replay",
			Usage: "Move a dead-lettered job back to pending",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Job ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queueUseCase, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				return commands.RunReplay(
					ctx,
					queueUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "dead-letters",
			Usage: "List failed jobs of a queue, most recent first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "queue",
					Aliases: []string{"q"},
					Value:   "default",
					Usage:   "Queue name",
				},
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of jobs to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of jobs to list",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				queueUseCase, err := container.QueueUseCase()
				if err != nil {
					return err
				}

				return commands.RunListDeadLetters(
					ctx,
					queueUseCase,
					commands.DefaultIO().Writer,
					cmd.String("queue"),
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
	}
}
