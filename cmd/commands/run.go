package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vigil-agent/vigil/internal/config"
	"github.com/vigil-agent/vigil/internal/events"
	"github.com/vigil-agent/vigil/internal/gateway"
	"github.com/vigil-agent/vigil/internal/heartbeat"
	"github.com/vigil-agent/vigil/internal/mode"
	"github.com/vigil-agent/vigil/internal/modestore"
	"github.com/vigil-agent/vigil/internal/scheduler"
	"github.com/vigil-agent/vigil/internal/storage"
)

// shutdownGrace bounds how long an in-flight transition may run during
// shutdown before the process exits anyway.
const shutdownGrace = 5 * time.Second

// NewRunCommand returns the run subcommand: the mode controller daemon.
func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the Vigil mode controller daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runDaemon,
	}
}

func runDaemon(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = cmd.Int("port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Event bus
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	// Transition audit log
	transitionLog := storage.NewTransitionLogger(cfg.Events.LogDir, bus)
	defer transitionLog.Close()

	// Mode memory store
	var store mode.MemoryStore
	if cfg.ModeMemory.Enabled {
		sqlStore, err := modestore.Open(cfg.ModeMemory.Path)
		if err != nil {
			return fmt.Errorf("open mode memory: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
	}

	// Lifecycle hooks
	registry := mode.NewHookRegistry()
	registerBuiltinHooks(registry, bus)

	// Mode manager
	manager, err := mode.NewManager(mode.ManagerConfig{
		System: cfg.ModeSystem(),
		Hooks:  registry,
		Store:  store,
		Bus:    bus,
	})
	if err != nil {
		return fmt.Errorf("init mode manager: %w", err)
	}

	// Trigger events from the bus feed the manager.
	unsubTriggers := bus.Subscribe(func(e events.Event) {
		if _, err := manager.HandleEvent(ctx, e); err != nil {
			slog.Warn("trigger rejected", "type", e.Type, "error", err)
		}
	}, events.EventTriggerKeyword, events.EventTriggerManual, events.EventTriggerSchedule)
	defer unsubTriggers()

	// Timeout watchdog
	watchdog := mode.NewWatchdog(manager, cfg.Watchdog.Interval.Duration())
	watchdog.Start()
	defer watchdog.Stop()

	// Scheduled switches
	sched := scheduler.New(bus)
	for _, sc := range cfg.Schedules {
		if err := sched.AddEntry(sc.Cron, sc.ToMode); err != nil {
			return fmt.Errorf("schedule entry: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// Heartbeat
	hb := heartbeat.NewWriter(config.HeartbeatPath(), func() string {
		return manager.Status().CurrentMode
	})
	hb.Start()
	defer hb.Stop()

	// Reload re-reads the config file and applies it through the guard.
	reload := func(ctx context.Context) error {
		newCfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return manager.HotReload(newCfg.ModeSystem())
	}

	// Gateway server
	server := gateway.NewServer(bus, manager, reload, cfg.Gateway.Host, cfg.Gateway.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// registerBuiltinHooks installs the hooks shipped with the daemon. External
// integrations register their own before the manager is built.
func registerBuiltinHooks(registry *mode.HookRegistry, bus *events.Bus) {
	registry.Register(mode.HookFunc{
		HookName: "log_transition",
		Fn: func(_ context.Context, modeName string, hctx mode.HookContext) error {
			slog.Info("transition hook", "mode", modeName, "from", hctx.From, "to", hctx.To)
			return nil
		},
	})
	registry.Register(mode.HookFunc{
		HookName: "announce",
		Fn: func(_ context.Context, modeName string, hctx mode.HookContext) error {
			bus.Publish(events.NewEvent(events.EventModeChanged, events.SourceManager, map[string]any{
				"announcement": fmt.Sprintf("now in %s", modeName),
				"from":         hctx.From,
				"to":           hctx.To,
			}))
			return nil
		},
	})
}
