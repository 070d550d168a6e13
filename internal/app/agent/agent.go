package agent

import (
	"context"
	"time"

	"golang.org/x/exp/slog"

	"careline/internal/config"
	"careline/internal/domain/action"
	"careline/internal/domain/conflict"
	"careline/internal/domain/optimistic"
	"careline/internal/infrastructure/storage/sqlite"
)

// App wires the offline agent together: durable storage, the action queue,
// the optimistic ledger, the conflict resolver, the backend client and the
// sync manager around them.
type App struct {
	config  *config.Config
	log     *slog.Logger
	storage *sqlite.Storage

	queue    *action.Queue
	ledger   *optimistic.Manager
	resolver *conflict.Resolver
	client   *HTTPClient
	monitor  *Monitor
	manager  *Manager
}

// New builds the agent. Storage is sqlite at cfg.DataPath; if it cannot be
// opened the agent falls back to in-memory repositories so the caregiver
// can keep working, at the cost of durability across restarts.
func New(cfg *config.Config, policy conflict.Policy, log *slog.Logger) (*App, error) {
	client := NewHTTPClient(cfg, log)

	var (
		store          *sqlite.Storage
		actionRepo     action.Repository
		optimisticRepo optimistic.Repository
	)
	store, err := sqlite.New(cfg.DataPath, cfg.MigrationsPath, log)
	if err != nil {
		log.Warn("failed to open sqlite storage, falling back to memory", "error", err)
		store = nil
		actionRepo = action.NewMemoryRepository()
		optimisticRepo = optimistic.NewMemoryRepository()
	} else {
		actionRepo = store.Actions()
		optimisticRepo = store.Updates()
	}

	queue := action.NewQueue(actionRepo, log)

	// The core has no view layer; reverting an optimistic write means
	// telling the embedding application which local change to undo. The
	// rollback-required event carries that instruction.
	ledger := optimistic.NewManager(optimisticRepo, func(ctx context.Context, u *optimistic.Update) error {
		log.Info("reverting optimistic local write",
			"update_id", u.ID,
			"record_type", u.RecordType,
			"record_id", u.RecordID,
			"operation", u.Operation,
		)
		return nil
	}, log)

	resolver := conflict.NewResolver(policy, log)

	manager := NewManager(queue, ledger, resolver, client, ManagerConfig{
		ActionTimeout: time.Duration(cfg.ActionTimeout) * time.Second,
		MaxRetries:    cfg.MaxRetries,
		SyncInterval:  time.Duration(cfg.SyncInterval) * time.Second,
		BackoffBase:   5 * time.Second,
		BackoffCap:    5 * time.Minute,
		HistoryLimit:  cfg.HistoryLimit,
	}, log)

	monitor := NewMonitor(client, time.Duration(cfg.ProbeInterval)*time.Second, log)
	monitor.OnChange(manager.HandleConnectivityChange)

	return &App{
		config:   cfg,
		log:      log,
		storage:  store,
		queue:    queue,
		ledger:   ledger,
		resolver: resolver,
		client:   client,
		monitor:  monitor,
		manager:  manager,
	}, nil
}

// SubmitAction applies the optimistic-write flow for a typed payload: the
// caller has already shown the change locally, so a ledger entry is
// recorded and the action queued against it. The payload is validated
// first; an invalid payload touches neither store.
func (a *App) SubmitAction(ctx context.Context, p action.Payload, recordID string, op optimistic.Operation) (*action.QueuedAction, error) {
	data, err := action.Marshal(p)
	if err != nil {
		return nil, err
	}

	u, err := a.ledger.Record(ctx, string(p.ActionType()), recordID, op)
	if err != nil {
		return nil, err
	}

	qa := &action.QueuedAction{
		Type:     p.ActionType(),
		Payload:  data,
		Priority: p.ActionType().DefaultPriority(),
		UpdateID: u.ID,
	}
	if err := a.queue.EnqueueAction(ctx, qa); err != nil {
		// Don't leave an orphaned ledger entry behind a failed enqueue.
		if cerr := a.ledger.Confirm(ctx, u.ID); cerr != nil {
			a.log.Error("failed to discard orphaned optimistic update", "id", u.ID, "error", cerr)
		}
		return nil, err
	}
	return qa, nil
}

// Start launches the connectivity monitor and the periodic sync loop.
func (a *App) Start(ctx context.Context) {
	a.manager.Start(ctx)
	a.monitor.Start(ctx)
	a.log.Info("agent started",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
	)
}

// Stop shuts the background loops down and closes storage.
func (a *App) Stop() {
	a.monitor.Stop()
	a.manager.Stop()
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Error("failed to close storage", "error", err)
		}
	}
	a.log.Info("agent stopped")
}

func (a *App) Queue() *action.Queue         { return a.queue }
func (a *App) Ledger() *optimistic.Manager  { return a.ledger }
func (a *App) Resolver() *conflict.Resolver { return a.resolver }
func (a *App) Manager() *Manager            { return a.manager }
func (a *App) Client() *HTTPClient          { return a.client }
