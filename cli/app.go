// ABOUTME: CLI application wiring for the dashboard data layer
// ABOUTME: Constructs store, journal, router, and state manager with explicit DI
package cli

import (
	"fmt"
	"log/slog"

	"github.com/harperreed/backhaul/backend"
	"github.com/harperreed/backhaul/bridge"
	"github.com/harperreed/backhaul/config"
	"github.com/harperreed/backhaul/journal"
	"github.com/harperreed/backhaul/state"
	"github.com/harperreed/backhaul/synthetic"
)

// App bundles the constructed data layer. Everything is built once at
// startup and passed by reference; no package-level singletons.
type App struct {
	Config  *config.Config
	Store   *synthetic.Store
	Journal *journal.Journal
	Router  *bridge.Router
	State   *state.Manager

	logger *slog.Logger
}

// NewApp wires the data layer from config. A live backend or journal that
// fails to come up degrades with a warning instead of aborting: the
// dashboard must stay usable.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := synthetic.Open(synthetic.Config{
		Path:        cfg.SnapshotPath,
		ClientCount: cfg.ClientCount,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open synthetic store: %w", err)
	}

	var jnl *journal.Journal
	if cfg.JournalDir != "" {
		jnl, err = journal.Open(cfg.JournalDir, logger)
		if err != nil {
			logger.Warn("activity journal disabled", "error", err)
			jnl = nil
		}
	}

	var live *bridge.Backend
	if cfg.BackendAddr != "" {
		client, err := backend.New(cfg.BackendAddr)
		if err != nil {
			logger.Warn("live backend disabled", "addr", cfg.BackendAddr, "error", err)
		} else {
			live = client.Bridge()
		}
	}

	var recorder bridge.Recorder
	if jnl != nil {
		recorder = jnl
	}

	router, err := bridge.NewRouter(bridge.RouterConfig{
		Backend:    live,
		Store:      store,
		Dispatcher: bridge.NewDispatcher(cfg.Workers, cfg.CallTimeout, logger),
		Recorder:   recorder,
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   store,
		Journal: jnl,
		Router:  router,
		State:   state.New(logger),
		logger:  logger,
	}, nil
}

// Close flushes the snapshot, closes the journal, and drops subscribers.
func (a *App) Close() {
	a.State.Close()
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.logger.Warn("journal close failed", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		a.logger.Warn("snapshot flush failed", "error", err)
	}
}

// Publish feeds a successful envelope into the state manager under key.
// Returns true when subscribers were notified (the value changed).
func (a *App) Publish(key string, env bridge.Envelope) bool {
	if !env.Success {
		a.logger.Warn("not publishing failed operation", "key", key, "error", env.Error)
		return false
	}
	return a.State.Set(key, env.Data, string(env.Mode))
}
