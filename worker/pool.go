package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const tracerName = "vusen/worker"

// Option configures a Pool.
type Option func(*Pool)

// WithPoster routes every notification through p. Without a Poster,
// notifications are called on the worker goroutine.
func WithPoster(p Poster) Option { return func(pl *Pool) { pl.poster = p } }

// WithLogger sets the logger used for task failures.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pool) {
		if l != nil {
			pl.log = l
		}
	}
}

// WithRegisterer registers the pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(pl *Pool) { pl.reg = reg }
}

// WithTracer sets the tracer used for task spans.
func WithTracer(t trace.Tracer) Option {
	return func(pl *Pool) {
		if t != nil {
			pl.tracer = t
		}
	}
}

// Pool runs submitted functions on at most MaxThreads goroutines at a time.
type Pool struct {
	cfg    Config
	sem    *semaphore.Weighted
	poster Poster
	log    *slog.Logger
	reg    prometheus.Registerer
	tracer trace.Tracer
	m      *metrics

	base    context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
	queued int
	active int

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
}

// NewPool returns a pool configured by cfg.
func NewPool(cfg Config, opts ...Option) (*Pool, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxThreads)),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.m = newMetrics(p.reg)
	p.base, p.stopAll = context.WithCancel(context.Background())
	return p, nil
}

// MaxThreads returns the effective thread cap.
func (p *Pool) MaxThreads() int { return p.cfg.MaxThreads }

// Active returns the number of running tasks.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Queued returns the number of tasks waiting for a thread.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	active, queued := p.active, p.queued
	p.mu.Unlock()
	return Stats{
		MaxThreads: p.cfg.MaxThreads,
		Active:     active,
		Queued:     queued,
		Submitted:  p.submitted.Load(),
		Succeeded:  p.succeeded.Load(),
		Failed:     p.failed.Load(),
		Cancelled:  p.cancelled.Load(),
	}
}

// Submit schedules fn and returns immediately. Cancelling ctx cancels the
// task. Notifications for the task go to sig.
func (p *Pool) Submit(ctx context.Context, fn Func, sig Signals) (*Future, error) {
	if fn == nil {
		return nil, errors.New("worker: nil func")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.m.rejected.WithLabelValues("closed").Inc()
		return nil, ErrPoolClosed
	}
	// A task counts as queued only when no thread is free for it now.
	acquired := p.sem.TryAcquire(1)
	if !acquired && p.cfg.MaxQueued > 0 && p.queued >= p.cfg.MaxQueued {
		p.mu.Unlock()
		p.m.rejected.WithLabelValues("queue_full").Inc()
		return nil, ErrQueueFull
	}
	if acquired {
		p.active++
	} else {
		p.queued++
	}
	p.wg.Add(1)
	p.mu.Unlock()
	if !acquired {
		p.m.queued.Inc()
	}

	id := NewID()
	tctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.base, cancel)
	if p.cfg.TaskTimeout > 0 {
		var cancelTimeout context.CancelFunc
		tctx, cancelTimeout = context.WithTimeout(tctx, p.cfg.TaskTimeout)
		prev := cancel
		cancel = func() { cancelTimeout(); prev() }
	}
	release := cancel
	cancel = func() { stop(); release() }

	t := &task{
		pool:   p,
		id:     id,
		fn:     fn,
		sig:    sig,
		future: newFuture(id, cancel),
	}
	p.submitted.Add(1)
	p.m.submitted.Inc()

	go p.run(tctx, t, acquired)
	return t.future, nil
}

// Shutdown stops accepting tasks and waits for submitted ones to finish.
// If ctx ends first, running tasks are cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stopAll()
		return nil
	case <-ctx.Done():
		p.stopAll()
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, t *task, acquired bool) {
	defer p.wg.Done()

	if !acquired {
		err := p.sem.Acquire(ctx, 1)

		p.mu.Lock()
		p.queued--
		if err == nil {
			p.active++
		}
		p.mu.Unlock()
		p.m.queued.Dec()

		if err != nil {
			t.finish(nil, errorFromReturn(context.Cause(ctx)))
			return
		}
	}

	p.m.active.Inc()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		p.m.active.Dec()
		p.sem.Release(1)
	}()

	t.execute(ctx)
}

// deliver runs fn on the owner goroutine, or inline without a Poster.
func (p *Pool) deliver(fn func()) {
	if p.poster == nil {
		fn()
		return
	}
	p.poster.Post(fn)
}

func (p *Pool) record(id ID, st Status, err *TaskError) {
	p.m.outcomes.WithLabelValues(st.String()).Inc()
	switch st {
	case StatusSucceeded:
		p.succeeded.Add(1)
	case StatusCancelled:
		p.cancelled.Add(1)
		p.log.Warn("task cancelled", "id", string(id), "error", err.Error())
	default:
		p.failed.Add(1)
		p.log.Error("task failed",
			"id", string(id),
			"type", err.Type,
			"value", err.Value,
			"panic", err.Panicked,
			"trace", err.Trace)
	}
}

type task struct {
	pool   *Pool
	id     ID
	fn     Func
	sig    Signals
	future *Future

	mu       sync.Mutex
	last     int
	reported bool
	done     bool
}

func (t *task) execute(ctx context.Context) {
	ctx, span := t.pool.tracer.Start(ctx, "worker.task",
		trace.WithAttributes(attribute.String("task.id", string(t.id))))
	defer span.End()

	t.future.setRunning()
	start := time.Now()
	result, terr := t.call(ctx)
	t.pool.m.duration.Observe(time.Since(start).Seconds())

	if terr != nil {
		span.RecordError(terr)
		span.SetStatus(codes.Error, terr.Error())
	}
	t.finish(result, terr)
}

func (t *task) call(ctx context.Context) (result any, terr *TaskError) {
	defer func() {
		if r := recover(); r != nil {
			terr = errorFromPanic(r, debug.Stack())
		}
	}()
	v, err := t.fn(ctx, t.progress)
	if err != nil {
		return nil, errorFromReturn(err)
	}
	return v, nil
}

// progress clamps to 0..100 and forwards only strictly increasing values
// reported before the task finished. Delivery happens under t.mu so a
// progress callback can never be queued behind the terminal ones.
func (t *task) progress(percent int) {
	percent = min(max(percent, 0), 100)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || (t.reported && percent <= t.last) {
		return
	}
	t.last = percent
	t.reported = true

	if cb := t.sig.Progress; cb != nil {
		id := t.id
		t.pool.deliver(func() { cb(id, percent) })
	}
}

// finish marks the task terminal and delivers Result or Error, then
// Finished. With a Poster the callbacks are queued before the future
// resolves, so an Await followed by a drain sees all of them. Inline
// callbacks run after the future resolves and outside t.mu, so they may
// Await the task themselves.
func (t *task) finish(result any, terr *TaskError) {
	t.mu.Lock()
	t.done = true
	t.mu.Unlock()

	id, sig := t.id, t.sig
	var calls []func()
	if terr == nil {
		if sig.Result != nil {
			calls = append(calls, func() { sig.Result(id, result) })
		}
	} else if sig.Error != nil {
		calls = append(calls, func() { sig.Error(id, terr) })
	}
	if sig.Finished != nil {
		calls = append(calls, func() { sig.Finished(id) })
	}

	t.pool.record(id, statusOf(terr), terr)

	if poster := t.pool.poster; poster != nil {
		for _, fn := range calls {
			poster.Post(fn)
		}
		t.future.resolve(result, terr)
		return
	}
	t.future.resolve(result, terr)
	for _, fn := range calls {
		fn()
	}
}
