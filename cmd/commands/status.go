package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vigil-agent/vigil/internal/config"
	"github.com/vigil-agent/vigil/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show Vigil daemon status and the active mode",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			status, hb, err := heartbeat.Check(config.HeartbeatPath(), 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Daemon: ALIVE (PID %d, uptime %s)\n", hb.PID, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Daemon: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Daemon: NOT RUNNING")
				return nil
			}

			base, err := gatewayBase(cmd)
			if err != nil {
				return err
			}

			var st struct {
				CurrentMode      string  `json:"current_mode"`
				DisplayName      string  `json:"display_name"`
				PreviousMode     string  `json:"previous_mode"`
				IsTransitioning  bool    `json:"is_transitioning"`
				TimeoutSeconds   int     `json:"timeout_seconds"`
				RemainingSeconds float64 `json:"remaining_seconds"`
			}
			if err := apiGet(ctx, base, "/api/status", &st); err != nil {
				return err
			}

			fmt.Printf("Mode: %s (%s)\n", st.CurrentMode, st.DisplayName)
			if st.PreviousMode != "" {
				fmt.Printf("Previous: %s\n", st.PreviousMode)
			}
			if st.TimeoutSeconds > 0 {
				fmt.Printf("Time remaining: %.0fs\n", st.RemainingSeconds)
			}
			if st.IsTransitioning {
				fmt.Println("Transition in progress")
			}
			return nil
		},
	}
}
