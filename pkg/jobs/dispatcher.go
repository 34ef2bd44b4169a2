// Package jobs runs background work on a fixed pool of goroutines.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotRunning is returned when submitting to a dispatcher that is not started or already shut down.
	ErrNotRunning = errors.New("jobs: dispatcher not running")
	// ErrFull is returned when the inbox has no free slot.
	ErrFull = errors.New("jobs: dispatcher inbox full")
)

const maxBackoff = 30 * time.Second

// Job is one delivery. Kind labels it for logs; Payload is opaque.
type Job struct {
	ID       string
	Kind     string
	Payload  []byte
	Attempt  int
	QueuedAt time.Time
}

// Handler delivers a job. A non-nil error schedules a retry.
type Handler func(context.Context, Job) error

// Config sizes a dispatcher.
type Config struct {
	Workers     int
	Capacity    int
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
	// OnDiscard sees every job given up on, after its last attempt or at shutdown.
	OnDiscard func(Job, error)
}

type state int

const (
	idle state = iota
	running
	closed
)

// Dispatcher feeds jobs to its workers. Failed jobs come back after an
// exponential backoff until MaxAttempts is reached. Shutdown delivers what is
// already in the inbox and discards pending retries.
type Dispatcher struct {
	name    string
	handler Handler
	cfg     Config

	mu      sync.RWMutex
	state   state
	inbox   chan Job
	base    context.Context
	workers sync.WaitGroup
	timers  map[*time.Timer]Job
}

// NewDispatcher builds a dispatcher; call Run before Submit.
func NewDispatcher(name string, handler Handler, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 64 * cfg.Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.OnDiscard == nil {
		cfg.OnDiscard = func(Job, error) {}
	}
	return &Dispatcher{
		name:    name,
		handler: handler,
		cfg:     cfg,
		inbox:   make(chan Job, cfg.Capacity),
		timers:  make(map[*time.Timer]Job),
	}
}

// Run starts the workers. Handlers receive ctx values but not its cancellation.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != idle {
		return
	}
	d.base = context.WithoutCancel(ctx)
	d.state = running
	d.workers.Add(d.cfg.Workers)
	for i := 0; i < d.cfg.Workers; i++ {
		go d.work()
	}
	d.cfg.Logger.Info("dispatcher running", zap.String("dispatcher", d.name), zap.Int("workers", d.cfg.Workers))
}

// Submit hands a job to the workers without blocking.
func (d *Dispatcher) Submit(job Job) error {
	if job.QueuedAt.IsZero() {
		job.QueuedAt = time.Now().UTC()
	}
	return d.push(job)
}

func (d *Dispatcher) push(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.state != running {
		return ErrNotRunning
	}
	select {
	case d.inbox <- job:
		return nil
	default:
		return ErrFull
	}
}

// Shutdown stops intake, discards scheduled retries and waits for the
// workers to empty the inbox.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.state != running {
		d.state = closed
		d.mu.Unlock()
		return
	}
	d.state = closed
	pending := make([]Job, 0, len(d.timers))
	for timer, job := range d.timers {
		timer.Stop()
		pending = append(pending, job)
		delete(d.timers, timer)
	}
	close(d.inbox)
	d.mu.Unlock()

	for _, job := range pending {
		d.cfg.OnDiscard(job, ErrNotRunning)
	}
	d.workers.Wait()
	d.cfg.Logger.Info("dispatcher stopped", zap.String("dispatcher", d.name), zap.Int("discarded_retries", len(pending)))
}

func (d *Dispatcher) work() {
	defer d.workers.Done()
	for job := range d.inbox {
		job.Attempt++
		err := d.handler(d.base, job)
		if err == nil {
			continue
		}
		if job.Attempt >= d.cfg.MaxAttempts {
			d.cfg.Logger.Error("job discarded",
				zap.String("dispatcher", d.name), zap.String("job_id", job.ID), zap.String("kind", job.Kind),
				zap.Int("attempts", job.Attempt), zap.Error(err))
			d.cfg.OnDiscard(job, err)
			continue
		}
		d.retryLater(job, err)
	}
}

// backoff doubles per attempt starting from cfg.Backoff, capped at maxBackoff.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.cfg.Backoff
	for i := 1; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (d *Dispatcher) retryLater(job Job, cause error) {
	delay := d.backoff(job.Attempt)
	d.cfg.Logger.Warn("job failed, retry scheduled",
		zap.String("dispatcher", d.name), zap.String("job_id", job.ID), zap.String("kind", job.Kind),
		zap.Int("attempt", job.Attempt), zap.Duration("delay", delay), zap.Error(cause))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != running {
		d.cfg.OnDiscard(job, ErrNotRunning)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		_, live := d.timers[timer]
		delete(d.timers, timer)
		d.mu.Unlock()
		if !live {
			return
		}
		if err := d.push(job); err != nil {
			d.cfg.OnDiscard(job, err)
		}
	})
	d.timers[timer] = job
}
