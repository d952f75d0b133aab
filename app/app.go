// Package app is the Vusen window: a timer that paints onto an offscreen
// bitmap, a button that starts background jobs, and a console that shows
// what those jobs report.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"vusen/canvas"
	"vusen/hal"
	"vusen/loop"
	"vusen/worker"
)

// Config controls the window behaviour.
type Config struct {
	BitmapWidth   int
	BitmapHeight  int
	Renderer      canvas.Kind
	PaintInterval time.Duration

	// PressEvery presses the button after every N painter ticks. Zero
	// disables it.
	PressEvery int

	Job     SimulatedJob
	Pool    worker.Config
	Version string
}

// DefaultConfig returns the stock window configuration.
func DefaultConfig() Config {
	return Config{
		BitmapWidth:   800,
		BitmapHeight:  600,
		Renderer:      canvas.KindRaster,
		PaintInterval: time.Second,
		Job:           DefaultJob(),
		Pool:          worker.DefaultConfig(),
		Version:       "dev",
	}
}

// Option configures an App.
type Option func(*options)

type options struct {
	log    *slog.Logger
	reg    prometheus.Registerer
	tracer trace.Tracer
}

// WithLogger sets the logger for the app and its worker pool.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// WithRegisterer registers worker pool metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option { return func(o *options) { o.reg = reg } }

// WithTracer sets the tracer for job spans.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

// Status is a snapshot that is safe to take from any goroutine.
type Status struct {
	Counter    int    `json:"counter"`
	Active     int    `json:"active"`
	Queued     int    `json:"queued"`
	MaxThreads int    `json:"max_threads"`
	Submitted  uint64 `json:"submitted"`
	Finished   uint64 `json:"finished"`
	Failed     uint64 `json:"failed"`
	Version    string `json:"version"`
}

// App owns all UI state. Every method except Status and Close must be called
// from the goroutine that calls Step.
type App struct {
	h   hal.HAL
	cfg Config
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	loop     *loop.Loop
	pool     *worker.Pool
	painter  *Painter
	interval *loop.Interval

	fb      hal.Framebuffer
	screen  *screen
	console *Console

	keys  <-chan hal.KeyEvent
	ptr   <-chan hal.PointerEvent
	ticks <-chan uint64
	now   uint64
	timed bool

	held   bool
	dirty  bool
	redraw bool

	counter  atomic.Int64
	panicErr *PanicError
}

// New builds the window on h and starts the worker pool.
func New(h hal.HAL, cfg Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fb := framebufferOf(h)
	if fb == nil {
		return nil, errors.New("app: no framebuffer")
	}
	view := canvas.FromFramebuffer(fb)
	if view == nil {
		return nil, fmt.Errorf("app: unsupported pixel format %d", fb.Format())
	}

	bitmap, err := canvas.New(cfg.Renderer, cfg.BitmapWidth, cfg.BitmapHeight)
	if err != nil {
		return nil, fmt.Errorf("app: bitmap: %w", err)
	}

	l := loop.New()
	poolOpts := []worker.Option{
		worker.WithPoster(l),
		worker.WithLogger(o.log.With("component", "worker")),
		worker.WithRegisterer(o.reg),
	}
	if o.tracer != nil {
		poolOpts = append(poolOpts, worker.WithTracer(o.tracer))
	}
	pool, err := worker.NewPool(cfg.Pool, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		h:        h,
		cfg:      cfg,
		log:      o.log,
		ctx:      ctx,
		cancel:   cancel,
		loop:     l,
		pool:     pool,
		painter:  NewPainter(bitmap),
		interval: loop.NewInterval(cfg.PaintInterval),
		fb:       fb,
		screen:   newScreen(view),
		console:  NewConsole(view, ConsoleArea),
		dirty:    true,
		redraw:   true,
	}
	if in := h.Input(); in != nil {
		if k := in.Keyboard(); k != nil {
			a.keys = k.Events()
		}
		if p := in.Pointer(); p != nil {
			a.ptr = p.Events()
		}
	}
	if t := h.Time(); t != nil {
		a.ticks = t.Ticks()
	}

	msg := fmt.Sprintf("Multithreading with maximum %d threads", pool.MaxThreads())
	a.console.Println(msg)
	a.log.Info(msg, "version", cfg.Version, "renderer", string(cfg.Renderer))
	return a, nil
}

func framebufferOf(h hal.HAL) hal.Framebuffer {
	d := h.Display()
	if d == nil {
		return nil
	}
	return d.Framebuffer()
}

// Step runs one frame: input, queued notifications, timer, redraw.
//
// A panic inside Step freezes the app on a panic screen; Step then keeps
// returning nil and Err reports the panic.
func (a *App) Step() error {
	if a.panicErr != nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			a.panicErr = &PanicError{Value: r, Stack: debug.Stack()}
			showPanic(a.h, a.panicErr)
		}
	}()

	a.pollInput()
	a.loop.Drain()
	a.advanceTimer()

	if a.dirty {
		a.compose()
		if err := a.fb.Present(); err != nil {
			return fmt.Errorf("app: present: %w", err)
		}
		a.dirty = false
	}
	return nil
}

// Err returns the panic that froze the app, if any.
func (a *App) Err() error {
	if a.panicErr == nil {
		return nil
	}
	return a.panicErr
}

// Press submits one simulated job, as if the button was clicked.
func (a *App) Press() {
	f, err := a.pool.Submit(a.ctx, a.cfg.Job.Run, a.signals())
	if err != nil {
		a.println(fmt.Sprintf("press rejected: %v", err))
		a.log.Warn("press rejected", "error", err)
		return
	}
	a.println(fmt.Sprintf("[%s] started", f.ID().Short()))
}

func (a *App) signals() worker.Signals {
	return worker.Signals{
		Progress: func(id worker.ID, percent int) {
			a.println(fmt.Sprintf("[%s] progress %d%%", id.Short(), percent))
		},
		Result: func(id worker.ID, result any) {
			a.println(fmt.Sprintf("[%s] result: %v", id.Short(), result))
		},
		Error: func(id worker.ID, err *worker.TaskError) {
			a.println(fmt.Sprintf("[%s] error: %s: %v", id.Short(), err.Type, err.Value))
		},
		Finished: func(id worker.ID) {
			a.println(fmt.Sprintf("[%s] finished", id.Short()))
		},
	}
}

func (a *App) println(s string) {
	a.console.Println(s)
	a.log.Debug("console", "line", s)
	a.dirty = true
}

// Highlight reports the button rectangle while the mouse is held on it.
func (a *App) Highlight() (image.Rectangle, bool) {
	return ButtonArea, a.held
}

// Painter returns the bitmap painter.
func (a *App) Painter() *Painter { return a.painter }

// Console returns the console pane.
func (a *App) Console() *Console { return a.console }

// Pool returns the worker pool.
func (a *App) Pool() *worker.Pool { return a.pool }

// Status may be called from any goroutine.
func (a *App) Status() Status {
	st := a.pool.Stats()
	return Status{
		Counter:    int(a.counter.Load()),
		Active:     st.Active,
		Queued:     st.Queued,
		MaxThreads: st.MaxThreads,
		Submitted:  st.Submitted,
		Finished:   st.Finished(),
		Failed:     st.Failed,
		Version:    a.cfg.Version,
	}
}

// Close cancels running jobs and waits for the pool to drain or ctx to end.
func (a *App) Close(ctx context.Context) error {
	a.cancel()
	err := a.pool.Shutdown(ctx)
	a.loop.Close()
	return err
}

func (a *App) pollInput() {
	for {
		select {
		case ev := <-a.keys:
			if ev.Press && (ev.Code == hal.KeyEnter || ev.Code == hal.KeySpace) {
				a.Press()
			}
			continue
		case ev := <-a.ptr:
			a.pointer(ev)
			continue
		default:
		}
		return
	}
}

// pointer implements click-on-release: the press and the release must both
// land on the button.
func (a *App) pointer(ev hal.PointerEvent) {
	if ev.Button != hal.PointerLeft {
		return
	}
	inside := image.Pt(ev.X, ev.Y).In(ButtonArea)
	switch {
	case ev.Press:
		if inside && !a.held {
			a.held = true
			a.redraw = true
			a.dirty = true
		}
	case a.held:
		a.held = false
		a.redraw = true
		a.dirty = true
		if inside {
			a.Press()
		}
	}
}

func (a *App) advanceTimer() {
drain:
	for {
		select {
		case seq := <-a.ticks:
			a.now = seq
			a.timed = true
		default:
			break drain
		}
	}
	if !a.timed {
		return
	}

	for n := a.interval.Advance(a.now); n > 0; n-- {
		count := a.painter.Tick()
		a.counter.Store(int64(count))
		a.redraw = true
		a.dirty = true
		if a.cfg.PressEvery > 0 && count%a.cfg.PressEvery == 0 {
			a.Press()
		}
	}
}

func (a *App) compose() {
	if !a.redraw {
		return
	}
	a.screen.drawBitmap(a.painter.Surface().Image())
	a.screen.drawLabel(a.painter.Label())
	a.screen.drawButton(a.held)
	a.redraw = false
}
