package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"careline/internal/domain/conflict"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestMonitor_StartsOfflineUntilFirstProbe(t *testing.T) {
	pinger := &fakePinger{err: errors.New("unreachable")}
	m := NewMonitor(pinger, time.Millisecond, slog.Default())

	assert.False(t, m.Online())
}

func TestMonitor_FirstProbeReportsOfflineStart(t *testing.T) {
	pinger := &fakePinger{err: errors.New("no network")}
	m := NewMonitor(pinger, time.Millisecond, slog.Default())

	got := make(chan bool, 1)
	m.OnChange(func(online bool) {
		select {
		case got <- online:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	// A failed first probe is not a transition, but it still must be
	// delivered: the consumer would otherwise assume connectivity.
	select {
	case online := <-got:
		assert.False(t, online)
	case <-time.After(time.Second):
		t.Fatal("no connectivity callback after the first probe")
	}
}

func TestMonitor_OfflineStartReachesManager(t *testing.T) {
	fx := newFixture(t, conflict.Policy{})
	ctx := context.Background()

	a := fx.enqueueNote(t, "written without signal")

	pinger := &fakePinger{err: errors.New("airplane mode")}
	mon := NewMonitor(pinger, time.Millisecond, slog.Default())
	mon.OnChange(fx.manager.HandleConnectivityChange)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	mon.Start(runCtx)
	defer mon.Stop()

	// The manager must learn it is offline before any automatic cycle can
	// burn the action's retries against an unreachable backend.
	require.Eventually(t, func() bool { return !fx.manager.Online() }, time.Second, time.Millisecond)
	require.ErrorIs(t, fx.manager.ProcessQueue(ctx), ErrOffline)

	got, err := fx.queue.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Retries)

	// Connectivity returns; the queued action drains.
	pinger.setErr(nil)
	require.Eventually(t, func() bool {
		size, err := fx.queue.Size(ctx)
		return err == nil && size == 0
	}, time.Second, time.Millisecond)
}

func TestMonitor_EdgeTriggeredTransitions(t *testing.T) {
	pinger := &fakePinger{}
	m := NewMonitor(pinger, time.Millisecond, slog.Default())

	var mu sync.Mutex
	var transitions []bool
	m.OnChange(func(online bool) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, online)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	require.Eventually(t, m.Online, time.Second, time.Millisecond)

	pinger.setErr(errors.New("timeout"))
	require.Eventually(t, func() bool { return !m.Online() }, time.Second, time.Millisecond)

	pinger.setErr(nil)
	require.Eventually(t, m.Online, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// Only transitions fire, never repeats of the same state.
	require.GreaterOrEqual(t, len(transitions), 3)
	assert.Equal(t, []bool{true, false, true}, transitions[:3])
	for i := 1; i < len(transitions); i++ {
		assert.NotEqual(t, transitions[i-1], transitions[i])
	}
}

func TestMonitor_StopHaltsProbing(t *testing.T) {
	pinger := &fakePinger{}
	m := NewMonitor(pinger, time.Millisecond, slog.Default())

	m.Start(context.Background())
	require.Eventually(t, m.Online, time.Second, time.Millisecond)
	m.Stop()

	// A second Stop is harmless.
	m.Stop()
}
