package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"vusen/canvas"
	"vusen/hal"
	"vusen/worker"
)

type fakeLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *fakeLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *fakeLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

type fakeFramebuffer struct {
	w, h     int
	buf      []byte
	presents int
}

func (f *fakeFramebuffer) Width() int              { return f.w }
func (f *fakeFramebuffer) Height() int             { return f.h }
func (f *fakeFramebuffer) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *fakeFramebuffer) StrideBytes() int        { return f.w * 2 }
func (f *fakeFramebuffer) Buffer() []byte          { return f.buf }
func (f *fakeFramebuffer) Present() error          { f.presents++; return nil }

func (f *fakeFramebuffer) ClearRGB(r, g, b uint8) {
	p := hal.RGB565(r, g, b)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i] = byte(p)
		f.buf[i+1] = byte(p >> 8)
	}
}

type fakeKeyboard struct{ ch chan hal.KeyEvent }

func (k fakeKeyboard) Events() <-chan hal.KeyEvent { return k.ch }

type fakePointer struct{ ch chan hal.PointerEvent }

func (p fakePointer) Events() <-chan hal.PointerEvent { return p.ch }

type fakeTime struct{ ch chan uint64 }

func (t fakeTime) Ticks() <-chan uint64 { return t.ch }

type fakeHAL struct {
	log   *fakeLogger
	fb    *fakeFramebuffer
	keys  chan hal.KeyEvent
	ptr   chan hal.PointerEvent
	ticks chan uint64
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{
		log:   &fakeLogger{},
		fb:    &fakeFramebuffer{w: ScreenWidth, h: ScreenHeight, buf: make([]byte, ScreenWidth*ScreenHeight*2)},
		keys:  make(chan hal.KeyEvent, 8),
		ptr:   make(chan hal.PointerEvent, 8),
		ticks: make(chan uint64, 8),
	}
}

func (h *fakeHAL) Logger() hal.Logger   { return h.log }
func (h *fakeHAL) Display() hal.Display { return h }
func (h *fakeHAL) Input() hal.Input     { return h }
func (h *fakeHAL) Time() hal.Time       { return fakeTime{ch: h.ticks} }

func (h *fakeHAL) Framebuffer() hal.Framebuffer { return h.fb }
func (h *fakeHAL) Keyboard() hal.Keyboard       { return fakeKeyboard{ch: h.keys} }
func (h *fakeHAL) Pointer() hal.Pointer         { return fakePointer{ch: h.ptr} }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BitmapWidth = 80
	cfg.BitmapHeight = 60
	cfg.PaintInterval = 100 * time.Millisecond
	cfg.Job = SimulatedJob{Steps: 3, FailAt: -1}
	cfg.Pool = worker.Config{MaxThreads: 2}
	return cfg
}

func newTestApp(t *testing.T, h *fakeHAL, cfg Config) *App {
	t.Helper()
	a, err := New(h, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.Close(ctx)
	})
	return a
}

func step(t *testing.T, a *App) {
	t.Helper()
	if err := a.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
}

// stepUntil steps the app until the console has a line containing want.
func stepUntil(t *testing.T, a *App, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		step(t, a)
		for _, line := range a.Console().Lines() {
			if strings.Contains(line, want) {
				return
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("console never showed %q; lines=%q", want, a.Console().Lines())
}

// jobLines returns the console lines after the startup banner, with the
// "[id] " prefix removed.
func jobLines(a *App) []string {
	var out []string
	for _, line := range a.Console().Lines() {
		if !strings.HasPrefix(line, "[") {
			continue
		}
		if i := strings.Index(line, "] "); i >= 0 {
			out = append(out, line[i+2:])
		}
	}
	return out
}

func TestPainterTickAddsOneLine(t *testing.T) {
	bmp := canvas.NewRGB565(200, 200)
	p := NewPainter(bmp)
	if got := p.Label(); got != "Start" {
		t.Fatalf("label=%q, want Start", got)
	}
	if bmp.RGBAAt(20, 20) != white {
		t.Fatalf("bitmap not cleared to white")
	}

	for i := 1; i <= 3; i++ {
		if got := p.Tick(); got != i {
			t.Fatalf("Tick()=%d, want %d", got, i)
		}
		if p.Scene().Len() != i {
			t.Fatalf("scene len=%d, want %d", p.Scene().Len(), i)
		}
	}
	if got := p.Label(); got != "Counter: 3" {
		t.Fatalf("label=%q", got)
	}
	for _, pt := range [][2]int{{20, 20}, {100, 101}, {100, 102}, {100, 103}} {
		if bmp.RGBAAt(pt[0], pt[1]) != black {
			t.Fatalf("pixel %v not black", pt)
		}
	}
	if bmp.RGBAAt(100, 105) != white {
		t.Fatalf("pixel past the last line is painted")
	}
}

func TestSimulatedJobProgress(t *testing.T) {
	var got []int
	v, err := SimulatedJob{Steps: 5, FailAt: -1}.Run(context.Background(), func(p int) { got = append(got, p) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != "Done." {
		t.Fatalf("result=%v", v)
	}
	want := []int{0, 25, 50, 75, 100}
	if len(got) != len(want) {
		t.Fatalf("progress=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("progress=%v, want %v", got, want)
		}
	}
}

func TestSimulatedJobFailAtPanics(t *testing.T) {
	defer func() {
		r := recover()
		fe, ok := r.(FailureError)
		if !ok || fe.Step != 2 {
			t.Fatalf("recovered %#v, want FailureError{Step: 2}", r)
		}
	}()
	_, _ = SimulatedJob{Steps: 5, FailAt: 2}.Run(context.Background(), func(int) {})
	t.Fatalf("Run returned without panicking")
}

func TestSimulatedJobHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SimulatedJob{Steps: 5, StepDelay: time.Hour, FailAt: -1}.Run(ctx, func(int) {})
	if err != context.Canceled {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestNewShowsThreadBanner(t *testing.T) {
	h := newFakeHAL()
	a := newTestApp(t, h, testConfig())
	step(t, a)

	lines := a.Console().Lines()
	if len(lines) != 1 || lines[0] != "Multithreading with maximum 2 threads" {
		t.Fatalf("console=%q", lines)
	}
	if h.fb.presents != 1 {
		t.Fatalf("presents=%d, want 1", h.fb.presents)
	}

	view := canvas.FromFramebuffer(h.fb)
	bg := view.RGBAAt(1, ButtonArea.Min.Y+2)
	if got := view.RGBAAt(ButtonArea.Min.X+2, ButtonArea.Min.Y+2); got == bg {
		t.Fatalf("button face not drawn")
	}

	step(t, a)
	if h.fb.presents != 1 {
		t.Fatalf("idle frame presented again")
	}
}

func TestTimerTicksPainter(t *testing.T) {
	h := newFakeHAL()
	a := newTestApp(t, h, testConfig())

	h.ticks <- 0
	step(t, a)
	if a.Status().Counter != 0 {
		t.Fatalf("counter advanced on the first tick")
	}

	h.ticks <- 99
	step(t, a)
	if a.Status().Counter != 0 {
		t.Fatalf("counter advanced before the interval")
	}

	h.ticks <- 100
	step(t, a)
	if got := a.Status().Counter; got != 1 {
		t.Fatalf("counter=%d, want 1", got)
	}

	h.ticks <- 350
	step(t, a)
	if got := a.Painter().Counter(); got != 3 {
		t.Fatalf("counter=%d after catch-up, want 3", got)
	}
	if a.Painter().Scene().Len() != 3 {
		t.Fatalf("scene len=%d, want 3", a.Painter().Scene().Len())
	}
}

func TestKeyPressRunsJob(t *testing.T) {
	h := newFakeHAL()
	a := newTestApp(t, h, testConfig())

	h.keys <- hal.KeyEvent{Code: hal.KeyEnter, Press: true}
	stepUntil(t, a, "finished")

	want := []string{"started", "progress 0%", "progress 50%", "progress 100%", "result: Done.", "finished"}
	got := jobLines(a)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("job lines=%q, want %q", got, want)
	}
	if st := a.Status(); st.Submitted != 1 || st.Finished != 1 || st.Failed != 0 {
		t.Fatalf("status=%+v", st)
	}
}

func TestFailingJobReportsError(t *testing.T) {
	h := newFakeHAL()
	cfg := testConfig()
	cfg.Job.FailAt = 1
	a := newTestApp(t, h, cfg)

	a.Press()
	stepUntil(t, a, "finished")

	got := jobLines(a)
	want := []string{"started", "progress 0%", "error: app.FailureError: simulated failure at step 1", "finished"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("job lines=%q, want %q", got, want)
	}
	if st := a.Status(); st.Failed != 1 {
		t.Fatalf("failed=%d, want 1", st.Failed)
	}
}

func TestPointerClickOnButton(t *testing.T) {
	h := newFakeHAL()
	a := newTestApp(t, h, testConfig())
	in := ButtonArea.Min.Add(ButtonArea.Size().Div(2))

	// Released outside: no press.
	h.ptr <- hal.PointerEvent{X: in.X, Y: in.Y, Button: hal.PointerLeft, Press: true}
	step(t, a)
	if _, held := a.Highlight(); !held {
		t.Fatalf("button not highlighted while held")
	}
	h.ptr <- hal.PointerEvent{X: 5, Y: 5, Button: hal.PointerLeft}
	step(t, a)
	if _, held := a.Highlight(); held {
		t.Fatalf("button still highlighted after release")
	}
	if a.Status().Submitted != 0 {
		t.Fatalf("release outside the button submitted a job")
	}

	h.ptr <- hal.PointerEvent{X: in.X, Y: in.Y, Button: hal.PointerLeft, Press: true}
	h.ptr <- hal.PointerEvent{X: in.X, Y: in.Y, Button: hal.PointerLeft}
	step(t, a)
	if a.Status().Submitted != 1 {
		t.Fatalf("click on the button did not submit a job")
	}
	stepUntil(t, a, "finished")
}

func TestPressEvery(t *testing.T) {
	h := newFakeHAL()
	cfg := testConfig()
	cfg.PressEvery = 2
	a := newTestApp(t, h, cfg)

	h.ticks <- 0
	step(t, a)
	h.ticks <- 400
	step(t, a)
	if got := a.Status().Submitted; got != 2 {
		t.Fatalf("submitted=%d after 4 ticks, want 2", got)
	}
}

func TestPanicFreezesOnPanicScreen(t *testing.T) {
	h := newFakeHAL()
	a := newTestApp(t, h, testConfig())
	step(t, a)

	a.loop.Post(func() { panic("kaboom") })
	step(t, a)

	err := a.Err()
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Err()=%v", err)
	}
	if len(h.log.lines) == 0 || h.log.lines[0] != "Vusen Panic: panic=kaboom" {
		t.Fatalf("log=%q", h.log.lines)
	}

	view := canvas.FromFramebuffer(h.fb)
	if view.RGBAAt(ScreenWidth-1, 0) != white {
		t.Fatalf("panic screen not cleared to white")
	}
	dark := 0
	for y := 0; y < canvas.LineHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if view.RGBAAt(x, y) == black {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatalf("panic text not drawn")
	}

	presents := h.fb.presents
	h.keys <- hal.KeyEvent{Code: hal.KeyEnter, Press: true}
	step(t, a)
	if h.fb.presents != presents || a.Status().Submitted != 0 {
		t.Fatalf("app kept running after panic")
	}
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s, prefix, rest string
		n               int
	}{
		{"hello", "hel", "lo", 3},
		{"hi", "hi", "", 3},
		{"ñandú", "ña", "ndú", 2},
		{"x", "", "x", 0},
	}
	for _, tt := range tests {
		p, r := takeRunes(tt.s, tt.n)
		if p != tt.prefix || r != tt.rest {
			t.Fatalf("takeRunes(%q, %d)=(%q, %q), want (%q, %q)", tt.s, tt.n, p, r, tt.prefix, tt.rest)
		}
	}
}

// consoleRow returns the pixels of one text row of the console pane.
func consoleRow(dst *canvas.RGB565, row int) []byte {
	var out []byte
	y0 := ConsoleArea.Min.Y + row*canvas.LineHeight
	for y := y0; y < y0+canvas.LineHeight; y++ {
		for x := ConsoleArea.Min.X; x < ConsoleArea.Max.X; x++ {
			c := dst.RGBAAt(x, y)
			out = append(out, c.R, c.G, c.B)
		}
	}
	return out
}

func TestConsoleScrollsNewestToBottom(t *testing.T) {
	dst := canvas.NewRGB565(ScreenWidth, ScreenHeight)
	c := NewConsole(dst, ConsoleArea)
	rows := c.Rows()
	if rows != ConsoleArea.Dy()/canvas.LineHeight {
		t.Fatalf("rows=%d, want %d", rows, ConsoleArea.Dy()/canvas.LineHeight)
	}

	n := rows + 4
	for i := 0; i < n; i++ {
		c.Println(fmt.Sprintf("line %02d", i))
	}

	for back := 0; back < 2; back++ {
		ref := canvas.NewRGB565(ScreenWidth, ScreenHeight)
		NewConsole(ref, ConsoleArea).Println(fmt.Sprintf("line %02d", n-1-back))

		got := consoleRow(dst, rows-1-back)
		want := consoleRow(ref, 0)
		if !bytes.Equal(got, want) {
			t.Fatalf("row %d does not show %q", rows-1-back, fmt.Sprintf("line %02d", n-1-back))
		}
	}

	blank := consoleRow(canvas.NewRGB565(ScreenWidth, ScreenHeight), 0)
	if bytes.Equal(consoleRow(dst, rows-1), blank) {
		t.Fatalf("bottom row is empty")
	}
	if got := c.Lines(); len(got) != n || got[n-1] != fmt.Sprintf("line %02d", n-1) {
		t.Fatalf("history=%q", got)
	}
}

func TestConsoleCutsLongLines(t *testing.T) {
	dst := canvas.NewRGB565(ScreenWidth, ScreenHeight)
	c := NewConsole(dst, ConsoleArea)
	c.Println(strings.Repeat("x", 500))
	c.Println("tail")

	ref := canvas.NewRGB565(ScreenWidth, ScreenHeight)
	rc := NewConsole(ref, ConsoleArea)
	rc.Println("head")
	rc.Println("tail")
	if !bytes.Equal(consoleRow(dst, 1), consoleRow(ref, 1)) {
		t.Fatalf("long line wrapped into the next row")
	}
}
