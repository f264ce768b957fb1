package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sspkit/ssp-go/internal/safefile"
	"github.com/sspkit/ssp-go/pkg/ssp"
)

const (
	// MaxWasmFileSize is the maximum size of a Wasm file (10MB).
	MaxWasmFileSize = 10 * 1024 * 1024

	// ExpectedABIVersion is the value an optional abi_version export must return.
	ExpectedABIVersion = 1

	// DefaultTimeout bounds a single action call.
	DefaultTimeout = 50 * time.Millisecond
)

// Config configures how a plugin is loaded.
type Config struct {
	// Logger receives plugin log output and call failures. Nil discards them.
	Logger *slog.Logger

	// CacheDir enables the wazero compilation cache in that directory.
	CacheDir string

	// Timeout bounds each action call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Plugin is an instantiated Wasm module whose exports serve as actions.
// Calls into the module are serialized.
type Plugin struct {
	name    string
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled wazero.CompiledModule
	mod      api.Module
}

// Load reads the Wasm file at path and instantiates it.
// The module is named after the file without its extension.
func Load(ctx context.Context, path string, cfg Config) (*Plugin, error) {
	wasmBytes, err := safefile.ReadRegular(path, MaxWasmFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadBytes(ctx, name, wasmBytes, cfg)
}

// LoadBytes compiles and instantiates a Wasm module held in memory.
func LoadBytes(ctx context.Context, name string, wasmBytes []byte, cfg Config) (*Plugin, error) {
	p := &Plugin{
		name:    name,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err == nil {
			p.cache = cache
			rtConfig = rtConfig.WithCompilationCache(cache)
			p.debug("using wasm compilation cache", "dir", cfg.CacheDir)
		} else if p.logger != nil {
			p.logger.Warn("failed to create compilation cache, continuing without cache", "err", err)
		}
	}
	p.runtime = wazero.NewRuntimeWithConfig(ctx, rtConfig)

	if err := p.init(ctx, wasmBytes); err != nil {
		_ = p.Close(context.Background())
		return nil, err
	}
	return p, nil
}

func (p *Plugin) init(ctx context.Context, wasmBytes []byte) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, p.runtime); err != nil {
		return &RuntimeError{Operation: "wasi instantiation", Err: err}
	}
	if err := newHostFunctions(p.logger).register(ctx, p.runtime); err != nil {
		return &RuntimeError{Operation: "host functions registration", Err: err}
	}

	compiled, err := p.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return &RuntimeError{Operation: "wasm compilation", Err: err}
	}
	p.compiled = compiled

	modConfig := wazero.NewModuleConfig().
		WithName(p.name).
		WithStartFunctions("_initialize")
	mod, err := p.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return &RuntimeError{Operation: "module instantiation", Err: err}
	}
	p.mod = mod

	return p.checkABIVersion(ctx)
}

// checkABIVersion validates the abi_version export when the module has one.
func (p *Plugin) checkABIVersion(ctx context.Context) error {
	fn := p.mod.ExportedFunction("abi_version")
	if fn == nil {
		return nil
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return &RuntimeError{Operation: "abi_version call", Err: err}
	}
	if len(results) == 0 {
		return &ABIError{Function: "abi_version", Reason: "no return value"}
	}
	if v := uint32(results[0]); v != ExpectedABIVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrABIVersionMismatch, v, ExpectedABIVersion)
	}
	return nil
}

// Name returns the module name.
func (p *Plugin) Name() string {
	return p.name
}

// MatchAction returns a match action calling export with the match length.
func (p *Plugin) MatchAction(export string) (ssp.MatchFunc, error) {
	fn, err := p.lookup(export)
	if err != nil {
		return nil, err
	}
	return func(n int) { p.call(fn, export, uint64(n)) }, nil
}

// DeliverAction returns a deliver action calling export with the byte.
func (p *Plugin) DeliverAction(export string) (ssp.DeliverFunc, error) {
	fn, err := p.lookup(export)
	if err != nil {
		return nil, err
	}
	return func(c byte) { p.call(fn, export, uint64(c)) }, nil
}

// lookup finds export and checks that its type is (i32) -> ().
func (p *Plugin) lookup(export string) (api.Function, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mod == nil {
		return nil, ErrClosed
	}
	fn := p.mod.ExportedFunction(export)
	if fn == nil {
		return nil, &ABIError{Function: export, Reason: "not exported", Err: ErrMissingExport}
	}
	def := fn.Definition()
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) != 1 || params[0] != api.ValueTypeI32 || len(results) != 0 {
		return nil, &ABIError{
			Function: export,
			Reason:   fmt.Sprintf("signature is %s, want (i32) -> ()", signature(params, results)),
		}
	}
	return fn, nil
}

// call invokes fn. Actions have no error return, so failures are logged.
func (p *Plugin) call(fn api.Function, export string, arg uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mod == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if _, err := fn.Call(ctx, arg); err != nil && p.logger != nil {
		p.logger.Warn("plugin call failed",
			"module", p.name,
			"export", export,
			"err", err)
	}
}

func (p *Plugin) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

// Close releases the module, the compiled code, the runtime and the cache,
// in that order. Safe to call multiple times.
func (p *Plugin) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if p.mod != nil {
		keep(p.mod.Close(ctx))
		p.mod = nil
	}
	if p.compiled != nil {
		keep(p.compiled.Close(ctx))
		p.compiled = nil
	}
	if p.runtime != nil {
		keep(p.runtime.Close(ctx))
		p.runtime = nil
	}
	if p.cache != nil {
		keep(p.cache.Close(ctx))
		p.cache = nil
	}
	return firstErr
}

// DefaultCacheDir returns the compilation cache directory following the
// XDG base directory layout, creating it if needed.
func DefaultCacheDir() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(cacheHome, "ssp", "wasm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func signature(params, results []api.ValueType) string {
	name := func(ts []api.ValueType) string {
		s := make([]string, len(ts))
		for i, t := range ts {
			s[i] = api.ValueTypeName(t)
		}
		return "(" + strings.Join(s, ", ") + ")"
	}
	return name(params) + " -> " + name(results)
}
