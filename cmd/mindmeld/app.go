package main

import (
	"context"
	"fmt"
	"io"
	"mindmeld/internal/cli"
	"mindmeld/internal/config"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"mindmeld/internal/repository/file"
	"mindmeld/internal/repository/postgres"
	"mindmeld/internal/service/chat"
	"mindmeld/internal/service/conversation"
	"mindmeld/internal/service/llm"
	"mindmeld/internal/state"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const flushTimeout = 5 * time.Second

// app holds the wired components shared by every subcommand
type app struct {
	config     *config.AppConfig
	manager    *state.Manager
	theme      *cli.Theme
	closeStore func() error
}

func loadConfig(opts *rootOptions) (*config.AppConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.store != "" {
		cfg.Storage.Backend = opts.store
	}
	if opts.storePath != "" {
		cfg.Storage.Path = opts.storePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStore(cfg *config.AppConfig) (db.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorePostgres:
		pg, err := postgres.NewPostgresDB(cfg.Database, cfg.Storage.Name)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		fs, err := file.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() error { return nil }, nil
	}
}

// newApp opens the store and hydrates a manager from it
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}

	prefersDark := cli.PrefersDark(cfg.UI.PrefersDark)
	theme := cli.NewTheme(prefersDark)

	manager := state.NewManager(
		state.WithStore(store, cfg.Storage.SaveDelay),
		state.WithPrefersDark(prefersDark),
		state.WithTheme(theme),
	)

	if err := manager.Hydrate(ctx); err != nil {
		// Defaults stay in place; the next save overwrites the unreadable snapshot
		logger.Log.WithFields(logrus.Fields{
			"backend": cfg.Storage.Backend,
			"error":   err,
		}).Warn("Failed to restore saved state")
	}

	return &app{
		config:     cfg,
		manager:    manager,
		theme:      theme,
		closeStore: closeStore,
	}, nil
}

// close flushes pending writes and releases the store
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := a.manager.Close(ctx); err != nil {
		logger.Log.WithField("error", err).Warn("Failed to save state on exit")
	}
	if err := a.closeStore(); err != nil {
		logger.Log.WithField("error", err).Warn("Failed to close store")
	}
}

func (a *app) newProvider() (*llm.PlaceholderProvider, error) {
	var responses *config.ResponsesConfig
	if path := a.config.Provider.ResponsesPath; path != "" {
		rc, err := config.NewResponsesConfig(path)
		if err != nil {
			return nil, err
		}
		responses = rc
	}
	return llm.NewPlaceholderProvider(a.config.Provider, responses), nil
}

func (a *app) newShell(provider llm.Provider, out io.Writer) *cli.Shell {
	return cli.NewShell(
		a.manager,
		chat.NewChatService(a.manager, provider),
		conversation.NewConversationService(a.manager),
		a.theme,
		out,
	)
}

func runChat(ctx context.Context, opts *rootOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	provider, err := a.newProvider()
	if err != nil {
		return err
	}

	go func() {
		if err := provider.LoadModel(ctx); err != nil {
			logger.Log.WithField("error", err).Warn("Model loading stopped")
			return
		}
		a.manager.SetModelLoaded(true)
	}()

	shell := a.newShell(provider, os.Stdout)
	defer shell.Close()

	return shell.Run(ctx)
}

func runList(ctx context.Context, opts *rootOptions, out io.Writer) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	shell := a.newShell(nil, out)
	defer shell.Close()

	shell.PrintConversations()
	return nil
}

func runClear(ctx context.Context, opts *rootOptions, out io.Writer) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	count := len(a.manager.Conversations())
	a.manager.ClearAll()
	fmt.Fprintf(out, "Cleared %d conversations\n", count)
	return nil
}
