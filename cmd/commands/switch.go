package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewSwitchCommand returns the switch subcommand.
func NewSwitchCommand() *cli.Command {
	return &cli.Command{
		Name:      "switch",
		Usage:     "Manually switch the daemon to a mode",
		ArgsUsage: "<mode>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			modeName := cmd.Args().First()
			if modeName == "" {
				return fmt.Errorf("usage: vigil switch <mode>")
			}

			base, err := gatewayBase(cmd)
			if err != nil {
				return err
			}

			var result struct {
				From string `json:"from"`
				To   string `json:"to"`
			}
			if err := apiPost(ctx, base, "/api/switch", map[string]string{"mode": modeName}, &result); err != nil {
				return err
			}

			fmt.Printf("Switched: %s -> %s\n", result.From, result.To)
			return nil
		},
	}
}
