// Package config holds the runtime settings: defaults, an optional YAML file
// and command-line flags, applied in that order.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vusen/app"
	"vusen/canvas"
	"vusen/worker"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full set of runtime settings.
type Config struct {
	Headless bool   `yaml:"headless"`
	Hz       int    `yaml:"hz"`
	Ticks    uint64 `yaml:"ticks"`

	PaintInterval time.Duration `yaml:"paint_interval"`
	Renderer      string        `yaml:"renderer"`
	BitmapWidth   int           `yaml:"bitmap_width"`
	BitmapHeight  int           `yaml:"bitmap_height"`
	WindowScale   int           `yaml:"window_scale"`

	MaxThreads  int           `yaml:"max_threads"`
	MaxQueued   int           `yaml:"max_queued"`
	TaskTimeout time.Duration `yaml:"task_timeout"`

	JobSteps     int           `yaml:"job_steps"`
	JobStepDelay time.Duration `yaml:"job_step_delay"`
	JobFailAt    int           `yaml:"job_fail_at"`
	PressEvery   int           `yaml:"press_every"`

	DebugAddr string `yaml:"debug_addr"`
	Trace     bool   `yaml:"trace"`
	LogLevel  string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	job := app.DefaultJob()
	return &Config{
		Hz:            60,
		PaintInterval: time.Second,
		Renderer:      string(canvas.KindRaster),
		BitmapWidth:   800,
		BitmapHeight:  600,
		WindowScale:   2,
		JobSteps:      job.Steps,
		JobStepDelay:  job.StepDelay,
		JobFailAt:     job.FailAt,
		LogLevel:      "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// BindFlags registers one flag per setting, writing into c.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.Headless, "headless", c.Headless, "Run without a window.")
	fs.IntVar(&c.Hz, "hz", c.Hz, "Frame rate (window TPS or headless tick rate).")
	fs.Uint64Var(&c.Ticks, "ticks", c.Ticks, "Stop after N frames in headless mode (0 = run forever).")

	fs.DurationVar(&c.PaintInterval, "paint-interval", c.PaintInterval, "Time between painter ticks.")
	fs.StringVar(&c.Renderer, "renderer", c.Renderer, "Bitmap renderer: raster or vector.")
	fs.IntVar(&c.BitmapWidth, "bitmap-width", c.BitmapWidth, "Offscreen bitmap width.")
	fs.IntVar(&c.BitmapHeight, "bitmap-height", c.BitmapHeight, "Offscreen bitmap height.")
	fs.IntVar(&c.WindowScale, "window-scale", c.WindowScale, "Window pixels per framebuffer pixel.")

	fs.IntVar(&c.MaxThreads, "max-threads", c.MaxThreads, "Worker threads (0 = number of CPUs).")
	fs.IntVar(&c.MaxQueued, "max-queued", c.MaxQueued, "Jobs allowed to wait for a thread (0 = unlimited).")
	fs.DurationVar(&c.TaskTimeout, "task-timeout", c.TaskTimeout, "Cancel jobs running longer than this (0 = never).")

	fs.IntVar(&c.JobSteps, "job-steps", c.JobSteps, "Steps per simulated job.")
	fs.DurationVar(&c.JobStepDelay, "job-step-delay", c.JobStepDelay, "Sleep per simulated job step.")
	fs.IntVar(&c.JobFailAt, "job-fail-at", c.JobFailAt, "Panic at this job step (-1 = never).")
	fs.IntVar(&c.PressEvery, "press-every", c.PressEvery, "Press the button every N painter ticks (0 = never).")

	fs.StringVar(&c.DebugAddr, "debug-addr", c.DebugAddr, "Serve /metrics and /status on this address.")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "Print job spans to stderr.")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error.")
}

// Parse builds a Config from defaults, the file named by -config (if any)
// and the remaining flags. Flags given on the command line win over the
// file.
func Parse(name string, args []string) (*Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file.")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *path != "" {
		set := map[string]string{}
		fs.Visit(func(f *flag.Flag) {
			if f.Name != "config" {
				set[f.Name] = f.Value.String()
			}
		})
		if err := cfg.loadFile(*path); err != nil {
			return nil, err
		}
		for name, value := range set {
			if err := fs.Set(name, value); err != nil {
				return nil, fmt.Errorf("flag -%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	var problems []string
	if c.Hz <= 0 {
		problems = append(problems, fmt.Sprintf("hz must be > 0, got %d", c.Hz))
	}
	if c.PaintInterval < time.Millisecond {
		problems = append(problems, fmt.Sprintf("paint_interval must be >= 1ms, got %s", c.PaintInterval))
	}
	if _, err := canvas.ParseKind(c.Renderer); err != nil {
		problems = append(problems, err.Error())
	}
	if c.BitmapWidth <= 0 || c.BitmapHeight <= 0 {
		problems = append(problems, fmt.Sprintf("bitmap size must be positive, got %dx%d", c.BitmapWidth, c.BitmapHeight))
	}
	if c.WindowScale <= 0 {
		problems = append(problems, fmt.Sprintf("window_scale must be > 0, got %d", c.WindowScale))
	}
	if c.MaxQueued < 0 {
		problems = append(problems, "max_queued must be >= 0")
	}
	if c.TaskTimeout < 0 {
		problems = append(problems, "task_timeout must be >= 0")
	}
	if c.JobSteps <= 0 {
		problems = append(problems, fmt.Sprintf("job_steps must be > 0, got %d", c.JobSteps))
	}
	if c.JobStepDelay < 0 {
		problems = append(problems, "job_step_delay must be >= 0")
	}
	if c.PressEvery < 0 {
		problems = append(problems, "press_every must be >= 0")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

// PoolConfig returns the worker pool settings.
func (c *Config) PoolConfig() worker.Config {
	return worker.Config{
		MaxThreads:  c.MaxThreads,
		MaxQueued:   c.MaxQueued,
		TaskTimeout: c.TaskTimeout,
	}
}

// AppConfig returns the window settings.
func (c *Config) AppConfig(version string) app.Config {
	kind, _ := canvas.ParseKind(c.Renderer)
	return app.Config{
		BitmapWidth:   c.BitmapWidth,
		BitmapHeight:  c.BitmapHeight,
		Renderer:      kind,
		PaintInterval: c.PaintInterval,
		PressEvery:    c.PressEvery,
		Job: app.SimulatedJob{
			Steps:     c.JobSteps,
			StepDelay: c.JobStepDelay,
			FailAt:    c.JobFailAt,
		},
		Pool:    c.PoolConfig(),
		Version: version,
	}
}
