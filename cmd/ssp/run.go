package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sspkit/ssp-go/internal/capture"
	"github.com/sspkit/ssp-go/internal/metrics"
	"github.com/sspkit/ssp-go/internal/plugin"
	"github.com/sspkit/ssp-go/internal/tailer"
	"github.com/sspkit/ssp-go/pkg/ssp"
	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

// runOptions holds the resolved settings of the run command.
type runOptions struct {
	Tree          string
	Input         string
	Follow        bool
	FromStart     bool
	InputDir      string
	Glob          string
	Format        string
	Types         []string
	Plugins       []string
	PluginTimeout time.Duration
	MaxCollect    int
	MetricsAddr   string
	Trace         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a tree over an input stream and output events",
	Long: `Run a search tree over a byte stream and output an event for every
matched branch and every emitted capture.

Events are output as JSON Lines by default (one JSON object per line).

Built-in actions available to tree files:
  collect  (deliver) append the byte to the capture buffer
  clear    (match)   empty the capture buffer
  emit     (match)   output a capture event with the buffer
  none               do nothing

Plugin exports are referred to as plugin:<export>.

Examples:
  # Parse a recorded session
  ssp run --tree modem.yaml --input session.log

  # Read from stdin, human-readable output
  cat session.log | ssp run --tree modem.yaml --format pretty

  # Follow the newest capture in a directory
  ssp run --tree modem.yaml --input-dir /var/log/modem --glob '*.cap'

  # Only captures, piped to jq
  ssp run --tree modem.yaml --input session.log --types capture | jq -r .data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOptions{
			Tree:          viper.GetString("tree"),
			Input:         viper.GetString("input"),
			Follow:        viper.GetBool("follow"),
			FromStart:     viper.GetBool("from-start"),
			InputDir:      viper.GetString("input-dir"),
			Glob:          viper.GetString("glob"),
			Format:        viper.GetString("format"),
			Types:         viper.GetStringSlice("types"),
			Plugins:       viper.GetStringSlice("plugin"),
			PluginTimeout: viper.GetDuration("plugin-timeout"),
			MaxCollect:    viper.GetInt("max-collect"),
			MetricsAddr:   viper.GetString("metrics-addr"),
			Trace:         viper.GetBool("trace"),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := newLogger(cmd.ErrOrStderr(), viper.GetBool("verbose") || opts.Trace)
		return runTree(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
	},
}

func init() {
	flags := runCmd.Flags()

	flags.String("tree", "", "Tree description file (YAML)")
	mustBindPFlag("tree", flags.Lookup("tree"))
	mustBindEnv("tree", "SSP_TREE", "SSP_TREE_FILE")

	flags.StringP("input", "i", "-", "Input file, - for stdin")
	mustBindPFlag("input", flags.Lookup("input"))

	flags.Bool("follow", false, "Keep reading the input file as it grows")
	mustBindPFlag("follow", flags.Lookup("follow"))

	flags.Bool("from-start", false, "With --follow or --input-dir, read existing content first")
	mustBindPFlag("from-start", flags.Lookup("from-start"))

	flags.StringP("input-dir", "d", "", "Follow the newest capture file in this directory")
	mustBindPFlag("input-dir", flags.Lookup("input-dir"))

	flags.String("glob", capture.DefaultGlob, "Capture file name pattern for --input-dir")
	mustBindPFlag("glob", flags.Lookup("glob"))

	flags.StringP("format", "f", "jsonl", "Output format: jsonl, pretty")
	mustBindPFlag("format", flags.Lookup("format"))

	flags.StringSliceP("types", "t", nil, "Event types to show (comma-separated: match,capture)")
	mustBindPFlag("types", flags.Lookup("types"))

	flags.StringSlice("plugin", nil, "Wasm plugin providing plugin:<export> actions (repeatable)")
	mustBindPFlag("plugin", flags.Lookup("plugin"))

	flags.Duration("plugin-timeout", plugin.DefaultTimeout, "Timeout for a single plugin action call")
	mustBindPFlag("plugin-timeout", flags.Lookup("plugin-timeout"))

	flags.Int("max-collect", DefaultMaxCollect, "Capacity of the capture buffer in bytes")
	mustBindPFlag("max-collect", flags.Lookup("max-collect"))

	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	mustBindPFlag("metrics-addr", flags.Lookup("metrics-addr"))

	flags.Bool("trace", false, "Log every parser step at debug level")
	mustBindPFlag("trace", flags.Lookup("trace"))

	rootCmd.AddCommand(runCmd)
}

func (o *runOptions) validate() error {
	if o.Tree == "" {
		return errors.New("--tree is required")
	}
	if !validFormats[o.Format] {
		return fmt.Errorf("invalid --format %q (valid: jsonl, pretty)", o.Format)
	}
	if o.MaxCollect <= 0 {
		return fmt.Errorf("--max-collect must be positive, got %d", o.MaxCollect)
	}
	if o.InputDir != "" && o.Input != "" && o.Input != "-" {
		return errors.New("--input and --input-dir are mutually exclusive")
	}
	if o.Follow && (o.Input == "" || o.Input == "-") && o.InputDir == "" {
		return errors.New("--follow needs an --input file")
	}
	return nil
}

// runTree compiles the tree, feeds the selected input through it and writes
// events to stdout. It returns nil when the input ends or ctx is done.
func runTree(ctx context.Context, opts runOptions, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	if err := opts.validate(); err != nil {
		return err
	}
	types, err := NormalizeEventTypes(opts.Types)
	if err != nil {
		return fmt.Errorf("invalid --types: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		format: opts.Format,
		types:  make(map[string]bool, len(types)),
		out:    stdout,
		cancel: cancel,
	}
	for _, t := range types {
		s.types[t] = true
	}

	coll := newCollector(opts.MaxCollect, s.capture)
	resolver, cleanup, err := buildResolver(ctx, coll, opts.Plugins, opts.PluginTimeout, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tree, err := treefile.CompileFile(opts.Tree, resolver)
	if err != nil {
		return fmt.Errorf("tree file: %w", err)
	}
	logger.Debug("tree compiled", "nodes", tree.Len(), "root", tree.Root().Name())

	parserOpts := []ssp.Option{ssp.WithObserver(s.hooks())}
	if opts.Trace {
		parserOpts = append(parserOpts, ssp.WithLogger(logger))
	}
	if opts.MetricsAddr != "" {
		obs, shutdown, err := serveMetrics(opts.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		parserOpts = append(parserOpts, ssp.WithObserver(obs))
	}

	s.parser, err = ssp.New(tree.Root(), parserOpts...)
	if err != nil {
		return err
	}

	tcfg := tailer.DefaultConfig()
	tcfg.FromStart = opts.FromStart
	tcfg.Logger = logger

	switch {
	case opts.InputDir != "":
		dir, err := capture.ResolveDir(opts.InputDir)
		if err != nil {
			return err
		}
		err = tailer.FollowDir(ctx, dir, opts.Glob, tcfg, s)
		return firstErr(s.err, err)
	case opts.Follow:
		err := tailer.Follow(ctx, opts.Input, tcfg, s)
		return firstErr(s.err, err)
	case opts.Input == "" || opts.Input == "-":
		return ignoreCanceled(s.feed(ctx, stdin))
	default:
		f, err := os.Open(opts.Input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return ignoreCanceled(s.feed(ctx, f))
	}
}

// buildResolver chains the built-in actions with the actions of each plugin.
// The returned cleanup function is always non-nil.
func buildResolver(ctx context.Context, coll *collector, pluginFiles []string, timeout time.Duration, logger *slog.Logger) (treefile.ActionResolver, func(), error) {
	chain := treefile.ChainResolver{coll.actions()}
	var plugins []*plugin.Plugin
	cleanup := func() {
		for _, p := range plugins {
			_ = p.Close(context.Background())
		}
	}

	if len(pluginFiles) == 0 {
		return chain, cleanup, nil
	}

	cacheDir, err := plugin.DefaultCacheDir()
	if err != nil {
		logger.Warn("wasm compilation cache unavailable", "err", err)
		cacheDir = ""
	}
	for i, path := range pluginFiles {
		p, err := plugin.Load(ctx, path, plugin.Config{
			Logger:   logger,
			CacheDir: cacheDir,
			Timeout:  timeout,
		})
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("plugin file %d: %w", i+1, err)
		}
		plugins = append(plugins, p)
		chain = append(chain, p.Resolver())
		logger.Debug("plugin loaded", "name", p.Name())
	}
	return chain, cleanup, nil
}

// serveMetrics starts a /metrics endpoint and returns the observer feeding it.
func serveMetrics(addr string, logger *slog.Logger) (ssp.Observer, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs, err := metrics.NewObserver(reg)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return obs, shutdown, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ignoreCanceled treats an interrupted read as a normal end of input.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
