package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/conductor/internal/action"
	"github.com/aristath/conductor/internal/config"
	"github.com/aristath/conductor/internal/dispatch"
	"github.com/aristath/conductor/internal/engine"
	"github.com/aristath/conductor/internal/events"
	"github.com/aristath/conductor/internal/journal"
	"github.com/aristath/conductor/internal/scheduler"
	"github.com/aristath/conductor/internal/tui"
	"github.com/aristath/conductor/internal/workspace"
)

func main() {
	initConfig := flag.Bool("init", false, "write the default config to ~/.conductor/config.json and exit")
	flag.Parse()

	if *initConfig {
		if err := writeDefaultConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeDefaultConfig() error {
	stateDir, err := config.StateDir()
	if err != nil {
		return err
	}
	path := filepath.Join(stateDir, "config.json")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

func run() error {
	// Signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	stateDir, err := config.StateDir()
	if err != nil {
		return err
	}

	procs := engine.NewProcessManager()

	bus := events.NewBus()
	defer bus.Close()

	registry, rolePrompts, roleEngines, err := buildEngines(cfg)
	if err != nil {
		return err
	}

	// Per-session scratch directories
	wsRoot := cfg.Workspace.Root
	if wsRoot == "" {
		wsRoot = filepath.Join(stateDir, "workspaces")
	}
	workspaces := workspace.NewManager(wsRoot)
	if !cfg.Workspace.Keep {
		if err := workspaces.Prune(); err != nil {
			log.Printf("WARNING: failed to prune workspaces: %v", err)
		}
	}

	// Journal observes the run through the bus
	var store journal.Store
	if !cfg.Journal.Disabled {
		dbPath := cfg.Journal.Path
		if dbPath == "" {
			dbPath = filepath.Join(stateDir, "journal.db")
		}
		sqlStore, err := journal.NewSQLiteStore(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		bus.Subscribe(events.Wildcard, journal.NewRecorder(store))
	}

	// The TUI must subscribe before anything publishes
	sub := tui.Subscribe(bus, 256)

	sched := scheduler.NewLocal(registry, scheduler.Options{
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		PollInterval:  time.Duration(cfg.Scheduler.PollIntervalMs) * time.Millisecond,
		GraceTimeout:  time.Duration(cfg.Scheduler.GraceTimeoutSeconds) * time.Second,
		QueueSize:     cfg.Scheduler.QueueSize,
		RolePrompts:   rolePrompts,
		Bus:           bus,
		Workspaces:    workspaces,
		Processes:     procs,
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	// Task-dispatch events become scheduled sessions
	dispatcher := dispatch.NewScheduleAction(sched, dispatch.NewBreakerRegistry(), dispatch.Options{
		RoleEngines:    roleEngines,
		DefaultEngine:  defaultEngine(cfg),
		DefaultTimeout: time.Duration(cfg.Scheduler.DefaultTimeoutSeconds) * time.Second,
	})
	bus.Subscribe(events.TypeTaskDispatch, action.NewRunner(dispatcher))

	model := tui.New(sub, sched)
	p := tea.NewProgram(model, tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		// Normal TUI exit (user pressed 'q')
		shutdown(sched, procs)
		return err

	case <-ctx.Done():
		// Signal received; restore default handling so a second Ctrl+C
		// force-exits
		stop()
		log.Println("Shutdown signal received, cleaning up...")

		shutdown(sched, procs)
		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		select {
		case err := <-errChan:
			if err != nil {
				log.Printf("TUI exit error: %v", err)
			}
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
		}
	}

	log.Println("Shutdown complete")
	return nil
}

// buildEngines constructs the adapter registry plus the role -> system
// prompt and role -> engine maps from configuration.
func buildEngines(cfg *config.Config) (*engine.Registry, map[string]string, map[string]string, error) {
	registry := engine.NewRegistry()
	for name, ec := range cfg.Engines {
		adapter, err := engine.FromConfig(ec.Type, engine.Config{
			Command:  ec.Command,
			Args:     ec.Args,
			Model:    ec.Model,
			Provider: ec.Provider,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("engine %q: %w", name, err)
		}
		registry.RegisterAs(name, adapter)
	}

	rolePrompts := make(map[string]string)
	roleEngines := make(map[string]string)
	for role, ac := range cfg.Agents {
		rolePrompts[role] = ac.SystemPrompt
		engineName := ac.Engine

		// A model override gets its own adapter instance, registered
		// under the role name.
		if ac.Model != "" {
			ec, ok := cfg.Engines[ac.Engine]
			if !ok {
				return nil, nil, nil, fmt.Errorf("agent %q references unknown engine %q", role, ac.Engine)
			}
			adapter, err := engine.FromConfig(ec.Type, engine.Config{
				Command:  ec.Command,
				Args:     ec.Args,
				Model:    ac.Model,
				Provider: ec.Provider,
			})
			if err != nil {
				return nil, nil, nil, fmt.Errorf("agent %q: %w", role, err)
			}
			engineName = "agent:" + role
			registry.RegisterAs(engineName, adapter)
		}
		roleEngines[role] = engineName
	}

	return registry, rolePrompts, roleEngines, nil
}

// defaultEngine picks the fallback for dispatch events that name neither an
// engine nor a known role.
func defaultEngine(cfg *config.Config) string {
	if _, ok := cfg.Engines["claude"]; ok {
		return "claude"
	}
	for name := range cfg.Engines {
		return name
	}
	return ""
}

func shutdown(sched *scheduler.LocalScheduler, procs *engine.ProcessManager) {
	if err := sched.Stop(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}
	if err := procs.KillAll(); err != nil {
		log.Printf("Error killing subprocesses: %v", err)
	}
}
