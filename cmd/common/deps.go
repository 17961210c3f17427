// Package common wires the shared dependencies of the CLI commands:
// configuration, logging, the record store, and the crawl orchestrator.
package common

import (
	"fmt"

	"github.com/jonesrussell/bidwatch/internal/config"
	"github.com/jonesrussell/bidwatch/internal/crawl"
	"github.com/jonesrussell/bidwatch/internal/logger"
	"github.com/jonesrussell/bidwatch/internal/notify"
	"github.com/jonesrussell/bidwatch/internal/source"
	"github.com/jonesrussell/bidwatch/internal/store"
)

// Deps holds the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	Store  store.Interface
}

// Setup loads configuration and builds the logger and record store.
func Setup(cfgPath string) (*Deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	st, err := newStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	return &Deps{
		Config: cfg,
		Logger: log,
		Store:  st,
	}, nil
}

// Close releases the store.
func (d *Deps) Close() error {
	return d.Store.Close()
}

// BuildOrchestrator assembles the crawl orchestrator with the HTML
// source and the email notifier. It fails when the source is not
// configured, so read-only commands should not call it.
func (d *Deps) BuildOrchestrator() (*crawl.Orchestrator, error) {
	src, err := source.NewHTMLSource(d.Config.Source, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	notifier, err := notify.NewEmailNotifier(d.Config.Email, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	return crawl.New(crawl.Config{
		Source:      src,
		Store:       d.Store,
		Notifier:    notifier,
		Logger:      d.Logger,
		MaxArticles: d.Config.Crawl.MaxArticles,
	}), nil
}

func newStore(cfg *config.Config, log logger.Interface) (store.Interface, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return store.NewSQLStore(cfg.Storage.Postgres, log)
	default:
		return store.NewFileStore(cfg.Storage.DataDir, log)
	}
}
