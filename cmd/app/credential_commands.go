package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/publishq/cmd/app/commands"
	"github.com/allisson/publishq/internal/app"
)

func getCredentialCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "hash-api-token",
			Usage: "Hash an API token for API_TOKEN_HASH (generates one when --token is omitted)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "token",
					Aliases: []string{"t"},
					Usage:   "Token to hash",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)

				return commands.RunHashAPIToken(
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("token"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "seal-account-token",
			Usage: "Encrypt a platform access token with PLATFORM_TOKENS_KMS_KEY_URI",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "account",
					Aliases: []string{"a"},
					Usage:   "Account key (account or platform:account) to prefix the output with",
				},
				&cli.StringFlag{
					Name:     "token",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Plain access token",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keeper, err := container.TokenKeeper(ctx)
				if err != nil {
					return err
				}

				return commands.RunSealAccountToken(
					ctx,
					keeper,
					commands.DefaultIO().Writer,
					cmd.String("account"),
					cmd.String("token"),
				)
			},
		},
	}
}
