package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// NewModesCommand returns the modes subcommand.
func NewModesCommand() *cli.Command {
	return &cli.Command{
		Name:  "modes",
		Usage: "List configured modes and transition rules",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			base, err := gatewayBase(cmd)
			if err != nil {
				return err
			}

			var modes []struct {
				Name           string  `json:"name"`
				DisplayName    string  `json:"display_name"`
				Hertz          float64 `json:"hertz"`
				TimeoutSeconds int     `json:"timeout_seconds"`
			}
			if err := apiGet(ctx, base, "/api/modes", &modes); err != nil {
				return err
			}

			fmt.Println("Modes:")
			for _, m := range modes {
				line := fmt.Sprintf("  %-16s %s (%.1f Hz", m.Name, m.DisplayName, m.Hertz)
				if m.TimeoutSeconds > 0 {
					line += fmt.Sprintf(", timeout %ds", m.TimeoutSeconds)
				}
				fmt.Println(line + ")")
			}

			var rules []struct {
				FromMode        string   `json:"from_mode"`
				ToMode          string   `json:"to_mode"`
				TransitionType  string   `json:"transition_type"`
				TriggerKeywords []string `json:"trigger_keywords"`
				Priority        int      `json:"priority"`
				CooldownSeconds int      `json:"cooldown_seconds"`
			}
			if err := apiGet(ctx, base, "/api/rules", &rules); err != nil {
				return err
			}

			fmt.Println("\nRules:")
			for i, r := range rules {
				line := fmt.Sprintf("  %2d. %s -> %s [%s, priority %d",
					i, r.FromMode, r.ToMode, r.TransitionType, r.Priority)
				if r.CooldownSeconds > 0 {
					line += fmt.Sprintf(", cooldown %ds", r.CooldownSeconds)
				}
				line += "]"
				if len(r.TriggerKeywords) > 0 {
					line += " keywords: " + strings.Join(r.TriggerKeywords, ", ")
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
