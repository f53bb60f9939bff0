package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewReloadCommand returns the reload subcommand.
func NewReloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "reload",
		Usage: "Ask the daemon to re-read its config file",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			base, err := gatewayBase(cmd)
			if err != nil {
				return err
			}

			if err := apiPost(ctx, base, "/api/reload", nil, nil); err != nil {
				return err
			}
			fmt.Println("Config reloaded")
			return nil
		},
	}
}
