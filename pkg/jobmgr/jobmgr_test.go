package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) report(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestStartAsync_RunsAndReports(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	require.NoError(t, m.StartAsync("ok", func(ctx context.Context) error { return nil }))
	require.NoError(t, m.StartAsync("bad", func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Contains(t, rec.all(), "done:ok")
	assert.Contains(t, rec.all(), "error:bad:boom")
	assert.Empty(t, m.List())
}

func TestStartAsync_RejectsDuplicateNames(t *testing.T) {
	m := NewManager(context.Background(), nil)
	release := make(chan struct{})

	require.NoError(t, m.StartAsync("job", func(ctx context.Context) error {
		<-release
		return nil
	}))
	err := m.StartAsync("job", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, []string{"job"}, m.List())
	assert.Equal(t, "Running jobs: job", m.Status())

	close(release)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, "No jobs are running.", m.Status())
}

func TestStartAsync_RecoversPanics(t *testing.T) {
	rec := &recorder{}
	m := NewManager(context.Background(), rec.report)

	require.NoError(t, m.StartAsync("p", func(ctx context.Context) error { panic("kaboom") }))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Contains(t, rec.all(), "panic:p:kaboom")
}

func TestShutdown_CancelsPendingJobs(t *testing.T) {
	m := NewManager(context.Background(), nil)
	started := make(chan struct{})

	require.NoError(t, m.StartAsync("sleeper", func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Minute):
			return nil
		}
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	assert.ErrorIs(t, m.StartAsync("late", func(ctx context.Context) error { return nil }), ErrClosed)
}

func TestStop_CancelsOneJob(t *testing.T) {
	m := NewManager(context.Background(), nil)
	stopped := make(chan error, 1)

	require.NoError(t, m.StartAsync("one", func(ctx context.Context) error {
		<-ctx.Done()
		stopped <- ctx.Err()
		return nil
	}))
	require.NoError(t, m.Stop("one"))
	assert.ErrorIs(t, <-stopped, context.Canceled)
	assert.ErrorIs(t, m.Stop("one"), ErrNotFound)

	require.NoError(t, m.Shutdown(context.Background()))
}
