package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"careline/internal/domain/action"
	"careline/internal/domain/conflict"
	"careline/internal/domain/optimistic"
)

var (
	ErrOffline           = errors.New("device is offline")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrNoPendingConflict = errors.New("no pending conflict for action")
)

// ManagerConfig tunes the sync manager.
type ManagerConfig struct {
	// ActionTimeout bounds a single submission attempt; a timeout is
	// treated identically to a network failure.
	ActionTimeout time.Duration
	// MaxRetries caps automatic re-attempts per action. Exhausted actions
	// stay queued and are only re-attempted through RetryFailed.
	MaxRetries int
	// SyncInterval is the cadence of automatic cycles while healthy.
	SyncInterval time.Duration
	// BackoffBase/BackoffCap shape the bounded exponential backoff applied
	// to automatic cycles after consecutive failures.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// HistoryLimit caps the retained sync history entries.
	HistoryLimit int
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ActionTimeout: 15 * time.Second,
		MaxRetries:    5,
		SyncInterval:  30 * time.Second,
		BackoffBase:   5 * time.Second,
		BackoffCap:    5 * time.Minute,
		HistoryLimit:  50,
	}
}

// PendingConflict pairs a blocked queued action with the detected
// divergence awaiting a caregiver decision.
type PendingConflict struct {
	ActionID   string               `json:"action_id"`
	Resolution *conflict.Resolution `json:"resolution"`
}

// Manager orchestrates sync cycles: it drains the action queue against the
// backend in priority order, reconciles the optimistic ledger, routes
// version conflicts through the resolver and keeps the sync history. At
// most one cycle runs at a time; concurrent triggers collapse into the
// running cycle.
type Manager struct {
	queue     *action.Queue
	ledger    *optimistic.Manager
	resolver  *conflict.Resolver
	submitter Submitter
	cfg       ManagerConfig
	log       *slog.Logger

	mu         sync.Mutex
	syncing    bool
	online     bool
	lastSync   time.Time
	failStreak int
	pending    map[string]*conflict.Resolution

	history   *historyRing
	observers *observerList

	runMu  sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(
	queue *action.Queue,
	ledger *optimistic.Manager,
	resolver *conflict.Resolver,
	submitter Submitter,
	cfg ManagerConfig,
	log *slog.Logger,
) *Manager {
	return &Manager{
		queue:     queue,
		ledger:    ledger,
		resolver:  resolver,
		submitter: submitter,
		cfg:       cfg,
		log:       log.With(slog.String("component", "sync_manager")),
		online:    true,
		pending:   make(map[string]*conflict.Resolution),
		history:   newHistoryRing(cfg.HistoryLimit),
		observers: newObserverList(),
	}
}

// Start launches the periodic sync loop. The loop applies bounded
// exponential backoff after failed cycles and resets on success.
func (m *Manager) Start(ctx context.Context) {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		timer := time.NewTimer(m.nextInterval())
		defer timer.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
				if err := m.ProcessQueue(runCtx); err != nil &&
					!errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrOffline) {
					m.log.Error("periodic sync cycle failed", "error", err)
				}
				timer.Reset(m.nextInterval())
			}
		}
	}()

	m.log.Info("sync manager started", "interval", m.cfg.SyncInterval)
}

// Stop halts the periodic loop and waits for it to exit. An in-flight
// submission completes or times out on its own.
func (m *Manager) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.log.Info("sync manager stopped")
}

// HandleConnectivityChange is wired to the connectivity monitor. A
// restored connection triggers an immediate drain; flapping reconnects
// collapse into the single in-flight cycle.
func (m *Manager) HandleConnectivityChange(online bool) {
	m.mu.Lock()
	m.online = online
	ctx := m.runCtx
	m.mu.Unlock()

	if !online {
		m.log.Info("connectivity lost, queueing actions locally")
		return
	}

	m.log.Info("connectivity restored, draining action queue")
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		if err := m.ProcessQueue(ctx); err != nil &&
			!errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrOffline) {
			m.log.Error("reconnect sync cycle failed", "error", err)
		}
	}()
}

// InProgress reports whether a sync cycle is currently running.
func (m *Manager) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// Online reports the last known connectivity state.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastSync returns when the last cycle finished.
func (m *Manager) LastSync() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync
}

// History returns the bounded sync history, most recent first.
func (m *Manager) History() []HistoryEntry {
	return m.history.list()
}

// Subscribe registers an observer for sync events and returns an
// unsubscribe function.
func (m *Manager) Subscribe(fn func(Event)) func() {
	return m.observers.subscribe(fn)
}

// PendingConflicts returns the actions blocked on a caregiver decision.
func (m *Manager) PendingConflicts() []PendingConflict {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingConflict, 0, len(m.pending))
	for id, res := range m.pending {
		out = append(out, PendingConflict{ActionID: id, Resolution: res})
	}
	return out
}

// ManualSync forces an immediate cycle. It no-ops with ErrSyncInProgress
// when a cycle is already running and with ErrOffline when disconnected.
func (m *Manager) ManualSync(ctx context.Context) error {
	return m.ProcessQueue(ctx)
}

// ProcessQueue drains the queue once: every pending action is attempted in
// send order, one at a time. A failed action does not abort the cycle, and
// an action blocked on manual resolution does not block those behind it.
func (m *Manager) ProcessQueue(ctx context.Context) error {
	return m.drain(ctx, false)
}

// RetryFailed re-attempts only actions with at least one failed attempt,
// including those past the automatic retry cap.
func (m *Manager) RetryFailed(ctx context.Context) error {
	return m.drain(ctx, true)
}

func (m *Manager) drain(ctx context.Context, failedOnly bool) error {
	m.mu.Lock()
	if !m.online {
		m.mu.Unlock()
		return ErrOffline
	}
	if m.syncing {
		m.mu.Unlock()
		return ErrSyncInProgress
	}
	m.syncing = true
	m.mu.Unlock()

	m.observers.notify(Event{Kind: EventSyncStarted})
	var synced, failures int

	defer func() {
		m.history.append(HistoryEntry{
			Timestamp:    time.Now().UTC(),
			Success:      failures == 0,
			ChangesCount: synced,
		})

		m.mu.Lock()
		m.syncing = false
		m.lastSync = time.Now().UTC()
		if failures > 0 {
			m.failStreak++
		} else {
			m.failStreak = 0
		}
		m.mu.Unlock()

		m.observers.notify(Event{Kind: EventSyncFinished})
	}()

	var (
		items []*action.QueuedAction
		err   error
	)
	if failedOnly {
		items, err = m.queue.FailedItems(ctx)
	} else {
		items, err = m.queue.Items(ctx)
	}
	if err != nil {
		failures++
		return fmt.Errorf("load queue items: %w", err)
	}

	m.log.Debug("sync cycle started", "pending", len(items), "failed_only", failedOnly)

	for _, a := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.mu.Lock()
		_, blocked := m.pending[a.ID]
		m.mu.Unlock()
		if blocked {
			continue
		}
		if !failedOnly && a.Retries >= m.cfg.MaxRetries {
			continue
		}

		out, err := m.submitOne(ctx, a)
		if err != nil {
			failures++
			m.log.Error("action submission bookkeeping failed", "id", a.ID, "error", err)
			continue
		}
		switch out {
		case outcomeSynced:
			synced++
		case outcomeFailed:
			failures++
		case outcomeParked:
			// Awaiting a caregiver decision; the backend is healthy, so the
			// cycle is not failed and no backoff applies.
		}
	}

	m.log.Debug("sync cycle finished", "synced", synced, "failures", failures)
	return nil
}

// submitOutcome classifies what one submission attempt did to the cycle:
// the action synced, failed (and counts toward the backoff streak), or
// was parked on a conflict awaiting a caregiver decision.
type submitOutcome int

const (
	outcomeSynced submitOutcome = iota
	outcomeFailed
	outcomeParked
)

// submitOne attempts a single action to completion: success, recoverable
// failure, outright rejection, or conflict routing. The error covers
// structural bookkeeping failures only.
func (m *Manager) submitOne(ctx context.Context, a *action.QueuedAction) (submitOutcome, error) {
	sctx, cancel := context.WithTimeout(ctx, m.cfg.ActionTimeout)
	res := m.submitter.Submit(sctx, a)
	cancel()

	switch res.Status {
	case SubmitOK:
		return outcomeSynced, m.finalize(ctx, a)

	case SubmitConflict:
		return m.handleConflict(ctx, a, res.ServerRecord)

	case SubmitRetryable:
		if err := m.queue.IncrementRetry(ctx, a); err != nil {
			return outcomeFailed, err
		}
		m.appendActionEntry(a, false, res.Err)
		m.observers.notify(Event{Kind: EventActionFailed, ActionID: a.ID, Err: res.Err})
		m.log.Warn("submission failed, will retry",
			"id", a.ID, "type", a.Type, "retries", a.Retries, "error", res.Err)
		return outcomeFailed, nil

	case SubmitRejected:
		return outcomeFailed, m.reject(ctx, a, res.Err)
	}

	return outcomeFailed, fmt.Errorf("unexpected submit status %d", res.Status)
}

// finalize clears a confirmed action from the queue and the ledger and
// records the success.
func (m *Manager) finalize(ctx context.Context, a *action.QueuedAction) error {
	if err := m.queue.Remove(ctx, a.ID); err != nil {
		return err
	}
	if err := m.ledger.Confirm(ctx, a.UpdateID); err != nil {
		return err
	}
	m.appendActionEntry(a, true, nil)
	m.observers.notify(Event{Kind: EventActionSynced, ActionID: a.ID})
	return nil
}

// reject handles an outright (non-conflict) backend rejection: the action
// is dropped and the optimistic local write is rolled back. A rollback
// failure is structural and keeps the ledger entry.
func (m *Manager) reject(ctx context.Context, a *action.QueuedAction, cause error) error {
	m.appendActionEntry(a, false, cause)

	if err := m.ledger.Rollback(ctx, a.UpdateID); err != nil {
		m.observers.notify(Event{Kind: EventRollbackRequired, ActionID: a.ID, Err: err})
		return err
	}
	if err := m.queue.Remove(ctx, a.ID); err != nil {
		return err
	}

	m.observers.notify(Event{Kind: EventRollbackRequired, ActionID: a.ID, Err: cause})
	m.log.Warn("action rejected by backend, local write rolled back",
		"id", a.ID, "type", a.Type, "error", cause)
	return nil
}

// handleConflict routes a version mismatch through the resolver. An
// auto-resolvable conflict is merged and re-submitted within the cycle;
// anything else parks the action until a caregiver decides. Conflicts are
// never counted against the retry budget.
func (m *Manager) handleConflict(ctx context.Context, a *action.QueuedAction, serverRecord map[string]any) (submitOutcome, error) {
	clientRecord, err := a.Record()
	if err != nil {
		return outcomeFailed, fmt.Errorf("decode payload of %s: %w", a.ID, err)
	}
	// The stale version number is the trigger of the conflict, not part of
	// its content; without this it would flag on every conflict.
	delete(clientRecord, "record_version")

	det := m.resolver.Detect(recordID(a, clientRecord), string(a.Type), clientRecord, serverRecord)
	if det.Empty() {
		// The records do not actually diverge; proceed as if synced.
		return outcomeSynced, m.finalize(ctx, a)
	}

	if merged, ok := m.resolver.ResolveAutomatic(det); ok {
		return m.resubmitMerged(ctx, a, det, merged)
	}

	m.park(a, det)
	return outcomeParked, nil
}

// park blocks an action on a caregiver decision.
func (m *Manager) park(a *action.QueuedAction, det *conflict.Resolution) {
	m.mu.Lock()
	m.pending[a.ID] = det
	m.mu.Unlock()

	m.appendActionEntry(a, false, errors.New("version conflict awaiting manual resolution"))
	m.observers.notify(Event{Kind: EventConflictDetected, ActionID: a.ID, Conflict: det})
	m.log.Info("conflict requires manual resolution",
		"id", a.ID, "type", a.Type, "fields", det.Fields())
}

// resubmitMerged persists the merged record into the action (keeping its
// original priority and timestamp) and re-submits it once.
func (m *Manager) resubmitMerged(ctx context.Context, a *action.QueuedAction, det *conflict.Resolution, merged map[string]any) (submitOutcome, error) {
	carryVersion(merged, det.ServerRecord)
	if err := a.SetRecord(merged); err != nil {
		return outcomeFailed, fmt.Errorf("encode merged record for %s: %w", a.ID, err)
	}
	if err := m.queue.Update(ctx, a); err != nil {
		return outcomeFailed, err
	}

	sctx, cancel := context.WithTimeout(ctx, m.cfg.ActionTimeout)
	res := m.submitter.Submit(sctx, a)
	cancel()

	switch res.Status {
	case SubmitOK:
		m.observers.notify(Event{Kind: EventConflictResolved, ActionID: a.ID, Conflict: det})
		return outcomeSynced, m.finalize(ctx, a)
	case SubmitRetryable:
		if err := m.queue.IncrementRetry(ctx, a); err != nil {
			return outcomeFailed, err
		}
		m.appendActionEntry(a, false, res.Err)
		return outcomeFailed, nil
	case SubmitConflict:
		// The record moved again underneath us; park for a decision.
		m.park(a, det)
		return outcomeParked, nil
	case SubmitRejected:
		return outcomeFailed, m.reject(ctx, a, res.Err)
	}
	return outcomeFailed, fmt.Errorf("unexpected submit status %d", res.Status)
}

// Resolve consumes a caregiver decision for a parked action. The merged
// record replaces the pending payload and is submitted immediately; a
// decision for the server's state rolls the local write back instead. A
// validation failure leaves queue and ledger untouched.
func (m *Manager) Resolve(ctx context.Context, actionID string, manual *conflict.ManualResolution) error {
	m.mu.Lock()
	det, ok := m.pending[actionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPendingConflict, actionID)
	}

	merged, err := m.resolver.ApplyManual(det, manual)
	if err != nil {
		return err
	}

	a, err := m.queue.Get(ctx, actionID)
	if err != nil {
		return fmt.Errorf("load parked action %s: %w", actionID, err)
	}

	if manual.SelectedStrategy == conflict.StrategyServer {
		// The server's state stands: discard the pending mutation and
		// revert the optimistic local write.
		if err := m.ledger.Rollback(ctx, a.UpdateID); err != nil {
			return err
		}
		if err := m.queue.Remove(ctx, actionID); err != nil {
			return err
		}
		m.clearPending(actionID)
		m.appendActionEntry(a, true, nil)
		m.observers.notify(Event{Kind: EventConflictResolved, ActionID: actionID, Conflict: det})
		m.log.Info("conflict resolved with server state",
			"id", actionID, "user_id", manual.UserID)
		return nil
	}

	carryVersion(merged, det.ServerRecord)
	if err := a.SetRecord(merged); err != nil {
		return fmt.Errorf("encode resolved record for %s: %w", actionID, err)
	}
	if err := m.queue.Update(ctx, a); err != nil {
		return err
	}
	m.clearPending(actionID)
	m.observers.notify(Event{Kind: EventConflictResolved, ActionID: actionID, Conflict: det})
	m.log.Info("conflict resolved, re-submitting merged record",
		"id", actionID, "strategy", manual.SelectedStrategy, "user_id", manual.UserID)

	if out, err := m.submitOne(ctx, a); err != nil {
		return err
	} else if out != outcomeSynced {
		// Transient failure or a fresh conflict; the unblocked action
		// drains on a later cycle.
		m.log.Warn("resolved action did not confirm yet", "id", actionID)
	}
	return nil
}

func (m *Manager) clearPending(actionID string) {
	m.mu.Lock()
	delete(m.pending, actionID)
	m.mu.Unlock()
}

func (m *Manager) appendActionEntry(a *action.QueuedAction, success bool, cause error) {
	e := HistoryEntry{
		Timestamp:  time.Now().UTC(),
		Success:    success,
		ActionID:   a.ID,
		ActionType: string(a.Type),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	m.history.append(e)
}

func (m *Manager) nextInterval() time.Duration {
	m.mu.Lock()
	streak := m.failStreak
	m.mu.Unlock()

	if streak == 0 {
		return m.cfg.SyncInterval
	}
	backoff := m.cfg.BackoffBase
	for i := 1; i < streak; i++ {
		backoff *= 2
		if backoff >= m.cfg.BackoffCap {
			return m.cfg.BackoffCap
		}
	}
	if backoff > m.cfg.BackoffCap {
		backoff = m.cfg.BackoffCap
	}
	return backoff
}

// recordID extracts the logical record identity from a payload for
// conflict reporting, falling back to the action id.
func recordID(a *action.QueuedAction, rec map[string]any) string {
	for _, key := range []string{"note_id", "task_id", "visit_id"} {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return a.ID
}

// carryVersion stamps the merged record with the server's current version
// so the re-submission passes the backend's precondition check.
func carryVersion(merged, server map[string]any) {
	if v, ok := server["record_version"]; ok {
		merged["record_version"] = v
	}
}
