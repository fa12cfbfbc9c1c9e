package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pitcharena/internal/arena"
	"pitcharena/internal/config"
	"pitcharena/internal/db"
	"pitcharena/internal/health"
	"pitcharena/internal/judge"
	"pitcharena/internal/providers"
	"pitcharena/internal/retry"
	"pitcharena/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", config.ConfigPath(), err)
		os.Exit(1)
	}

	registry := providers.NewRegistry()
	applyProviderConfig(registry, "claude", cfg.Providers.Claude)
	applyProviderConfig(registry, "gpt", cfg.Providers.GPT)
	applyProviderConfig(registry, "gemini", cfg.Providers.Gemini)
	if registry.Count() == 0 {
		fmt.Fprintln(os.Stderr, "Error: all providers are disabled in config")
		os.Exit(1)
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Defaults.RetryAttempts,
		BaseDelay:   time.Duration(cfg.Defaults.RetryDelay) * time.Millisecond,
		Factor:      2,
		MaxDelay:    10 * time.Second,
	}

	arenaCfg := arena.DefaultConfig(cfg.Gateway.BaseURL)
	arenaCfg.Policy = policy
	arenaCfg.RequestTimeout = time.Duration(cfg.Defaults.RequestTimeout) * time.Second
	arenaCfg.Stagger = time.Duration(cfg.Defaults.StaggerDelay) * time.Millisecond
	arenaCfg.RevealInterval = time.Duration(cfg.Defaults.RevealInterval) * time.Millisecond
	arenaCfg.BatchInterval = time.Duration(cfg.Defaults.BatchInterval) * time.Millisecond

	a := arena.New(arenaCfg, registry)

	j := judge.New(judge.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Policy:  policy,
		Timeout: time.Duration(cfg.Defaults.JudgeTimeout) * time.Second,
	}, registry.IDs())

	h := health.NewClient(cfg.Gateway.BaseURL)
	h.SetEnabled(cfg.Defaults.HealthChecks)

	// History and export survive without the database; warn and continue.
	store, err := db.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: round history unavailable: %v\n", err)
		store = nil
	} else {
		defer store.Close()
	}

	exportDir, err := db.DataDir()
	if err != nil {
		exportDir = "."
	}

	app := ui.New(ui.Options{
		Arena:     a,
		Judge:     j,
		Health:    h,
		Store:     store,
		Registry:  registry,
		ExportDir: exportDir,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func applyProviderConfig(registry *providers.Registry, id string, pc config.ProviderConfig) {
	if !pc.Enabled {
		registry.Disable(id)
		return
	}
	if pc.Transport != "" {
		registry.SetTransport(id, providers.ParseTransport(pc.Transport))
	}
}
