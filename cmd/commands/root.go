package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/vigil-agent/vigil/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "vigil",
		Usage: "Operating-mode controller for an autonomous agent",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewStatusCommand(),
			NewModesCommand(),
			NewSwitchCommand(),
			NewReloadCommand(),
		},
	}
}
