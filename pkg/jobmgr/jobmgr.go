// Package jobmgr runs named, cancellable units of work in their own
// goroutines and keeps track of them until they finish.
//
// All jobs derive their context from the manager's root context, so a single
// Shutdown cancels every pending job and waits for them to return.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	err := jm.StartAsync("reply:123", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// on exit
//	_ = jm.Shutdown(shutdownCtx)
//
// No retries and no persistence. A panic inside a job is recovered and
// reported; it never takes down the process.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicate = errors.New("job is already running")
	ErrNotFound  = errors.New("job not running")
	ErrClosed    = errors.New("job manager is shut down")
)

// Job represents a running unit of work.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:reply:123
//	error:reply:123:send failed
//	panic:reply:123:runtime error: index out of range
//	done:reply:123
type StatusReporter func(string)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	wg       sync.WaitGroup
	root     context.Context
	cancel   context.CancelFunc
	closed   bool
	Reporter StatusReporter
}

// NewManager creates a Manager whose jobs are children of parent.
// The reporter callback may be nil.
func NewManager(parent context.Context, reporter StatusReporter) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	root, cancel := context.WithCancel(parent)
	return &Manager{
		jobs:     make(map[string]*Job),
		root:     root,
		cancel:   cancel,
		Reporter: reporter,
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// Jobs are removed automatically after completion (success, error or panic).
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	ctx, cancel := context.WithCancel(m.root)
	job := &Job{Name: name, Cancel: cancel}
	m.jobs[name] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			if m.jobs[name] == job {
				delete(m.jobs, name)
			}
			m.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				m.report(fmt.Sprintf("panic:%s:%v", name, r))
			}
		}()

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
			return
		}
		m.report("done:" + name)
	}()

	return nil
}

// Stop cancels a running job by name. The job is forgotten immediately; its
// goroutine still counts towards Shutdown until it returns.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

// Shutdown refuses new jobs, cancels every running one and waits for them to
// return or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
