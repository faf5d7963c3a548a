// Package main implements the tzclock CLI, a terminal world clock backed by a
// time service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/tzclock/pkg/clockwidget"
	"github.com/codeGROOVE-dev/tzclock/pkg/config"
	"github.com/codeGROOVE-dev/tzclock/pkg/httpcache"
	"github.com/codeGROOVE-dev/tzclock/pkg/picker"
	"github.com/codeGROOVE-dev/tzclock/pkg/screen"
	"github.com/codeGROOVE-dev/tzclock/pkg/timeapi"
)

const cacheSaveInterval = 5 * time.Minute

var (
	apiURL     = flag.String("api", "", "Time service base URL (or set TZCLOCK_API)")
	target     = flag.String("target", "", "Timezone to compare with (or set TZCLOCK_TARGET)")
	timezone   = flag.String("timezone", "", "Override the detected local timezone")
	offset     = flag.Float64("offset", 0, "Initial hour offset")
	configPath = flag.String("config", "", "YAML config file")
	cacheDir   = flag.String("cache-dir", "", "Cache the timezone list in this directory (or set CACHE_DIR)")
	interval   = flag.Duration("interval", 0, "Refresh interval (default 1s)")
	timeout    = flag.Duration("timeout", 0, "Per-request timeout (default 10s)")
	attempts   = flag.Uint("attempts", 0, "Attempts per request; 1 disables retries")
	sequenced  = flag.Bool("sequenced", false, "Ignore responses older than the one on screen")
	noColor    = flag.Bool("no-color", false, "Disable colored output")
	pick       = flag.Bool("pick", false, "Choose timezones interactively before starting")
	once       = flag.Bool("once", false, "Render once and exit")
	check      = flag.Bool("check", false, "Check the time service health and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	logFile    = flag.String("log-file", "", "Write logs to this file instead of stderr")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("tzclock v1.0.0")
		return
	}

	os.Exit(start())
}

func start() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, closeLog, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tzclock failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// loadConfig merges defaults, the config file, environment and flags, in
// increasing precedence.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api":
			cfg.API = *apiURL
		case "target":
			cfg.Target = *target
		case "timezone":
			cfg.Timezone = *timezone
		case "offset":
			cfg.Offset = *offset
		case "cache-dir":
			cfg.CacheDir = *cacheDir
		case "interval":
			cfg.Interval = *interval
		case "timeout":
			cfg.Timeout = *timeout
		case "attempts":
			cfg.Attempts = *attempts
		case "sequenced":
			cfg.Sequenced = *sequenced
		case "no-color":
			cfg.NoColor = *noColor
		}
	})

	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger() (*slog.Logger, func(), error) {
	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = func() {
			_ = f.Close() //nolint:errcheck // best effort on exit
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closeFn, nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	opts := []timeapi.Option{
		timeapi.WithHTTPClient(httpClient),
		timeapi.WithAttempts(cfg.Attempts),
		timeapi.WithRetryDelay(cfg.RetryDelay),
	}

	if cfg.CacheDir != "" {
		cache, err := httpcache.NewDiskCache(ctx, cfg.CacheDir, cfg.CacheTTL, cacheSaveInterval, logger)
		if err != nil {
			logger.Warn("timezone cache unavailable", "dir", cfg.CacheDir, "error", err)
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Error("failed to close cache", "error", err)
				}
			}()
			opts = append(opts, timeapi.WithCatalogClient(httpcache.NewCachedClient(cache, httpClient, logger)))
		}
	}

	client, err := timeapi.New(cfg.API, logger, opts...)
	if err != nil {
		return err
	}

	if *check {
		if err := client.Health(ctx); err != nil {
			return err
		}
		fmt.Printf("%s is healthy\n", client.BaseURL())
		return nil
	}

	if cfg.NoColor {
		color.NoColor = true
	}
	screenOpts := []screen.Option{screen.WithHelp()}
	if cfg.NoColor {
		screenOpts = append(screenOpts, screen.WithoutColor())
	}
	if !*once {
		screenOpts = append(screenOpts, screen.WithClear())
	}
	scr := screen.New(os.Stdout, screenOpts...)

	widgetOpts := []clockwidget.Option{
		clockwidget.WithDetectedTimezone(cfg.Timezone),
		clockwidget.WithSlider(cfg.Slider),
		clockwidget.WithInterval(cfg.Interval),
		clockwidget.WithTarget(cfg.Target),
		clockwidget.WithOffset(cfg.Offset),
	}
	if cfg.Sequenced {
		widgetOpts = append(widgetOpts, clockwidget.WithSequencedRegions())
	}

	if *once {
		w := clockwidget.New(client, logger, widgetOpts...)
		w.Start(ctx)
		scr.Paint(w.View())
		return nil
	}

	// Paint only after the picker is done so prompts are not overdrawn.
	painting := make(chan struct{})
	widgetOpts = append(widgetOpts, clockwidget.WithOnChange(func(v clockwidget.View) {
		select {
		case <-painting:
			scr.Paint(v)
		default:
		}
	}))
	w := clockwidget.New(client, logger, widgetOpts...)
	w.Start(ctx)

	if *pick {
		if err := picker.Pick(ctx, picker.NewSurveyDriver(), w); err != nil {
			if errors.Is(err, picker.ErrAborted) {
				return nil
			}
			return err
		}
	}
	close(painting)
	scr.Paint(w.View())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx)
	}()

	s := &session{widget: w, remote: client.SearchTimezones, out: os.Stdout, logger: logger}
	quit, err := s.serve(ctx, os.Stdin)
	if err != nil {
		logger.Warn("command input stopped", "error", err)
	}
	if !quit {
		// Without a terminal the clock keeps ticking until a signal arrives.
		<-ctx.Done()
	}
	cancel()

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
