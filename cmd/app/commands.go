package main

import (
	"github.com/urfave/cli/v3"

	"github.com/allisson/publishq/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getWorkerCommands()...)
	cmds = append(cmds, getQueueCommands()...)
	cmds = append(cmds, getCredentialCommands()...)
	return cmds
}

// loadConfig loads the environment configuration and rejects unusable values
// before any component is built from it.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}
