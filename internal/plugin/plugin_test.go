package plugin

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sspkit/ssp-go/internal/safefile"
	"github.com/sspkit/ssp-go/pkg/ssp"
	"github.com/sspkit/ssp-go/pkg/ssp/treefile"
)

// counterWasm exports on_match and on_byte (both the same (i32) -> ()
// function adding its argument to the mutable global "total") and noop
// of type () -> ().
var counterWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32) -> (), () -> ()
	0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00,
	// function section
	0x03, 0x03, 0x02, 0x00, 0x01,
	// global section: mut i32 = 0
	0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x00, 0x0b,
	// export section
	0x07, 0x25, 0x04,
	0x08, 'o', 'n', '_', 'm', 'a', 't', 'c', 'h', 0x00, 0x00,
	0x07, 'o', 'n', '_', 'b', 'y', 't', 'e', 0x00, 0x00,
	0x04, 'n', 'o', 'o', 'p', 0x00, 0x01,
	0x05, 't', 'o', 't', 'a', 'l', 0x03, 0x00,
	// code section
	0x0a, 0x0e, 0x02,
	0x09, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	0x02, 0x00, 0x0b,
}

// loggerWasm imports env.log and exports on_match, which logs "hello"
// at info level.
var loggerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (i32, i32, i32) -> (), (i32) -> ()
	0x01, 0x0b, 0x02, 0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00, 0x60, 0x01, 0x7f, 0x00,
	// import section: env.log
	0x02, 0x0b, 0x01, 0x03, 'e', 'n', 'v', 0x03, 'l', 'o', 'g', 0x00, 0x00,
	// function section
	0x03, 0x02, 0x01, 0x01,
	// memory section: 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export section
	0x07, 0x0c, 0x01, 0x08, 'o', 'n', '_', 'm', 'a', 't', 'c', 'h', 0x00, 0x01,
	// code section: log(1, 0, 5)
	0x0a, 0x0c, 0x01, 0x0a, 0x00, 0x41, 0x01, 0x41, 0x00, 0x41, 0x05, 0x10, 0x00, 0x0b,
	// data section: "hello" at 0
	0x0b, 0x0b, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x05, 'h', 'e', 'l', 'l', 'o',
}

func loadCounter(t *testing.T, cfg Config) *Plugin {
	t.Helper()
	p, err := LoadBytes(context.Background(), "counter", counterWasm, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func total(t *testing.T, p *Plugin) uint32 {
	t.Helper()
	g := p.mod.ExportedGlobal("total")
	require.NotNil(t, g)
	return uint32(g.Get())
}

func TestLoadBytes_Actions(t *testing.T) {
	p := loadCounter(t, Config{})
	assert.Equal(t, "counter", p.Name())

	onMatch, err := p.MatchAction("on_match")
	require.NoError(t, err)
	onByte, err := p.DeliverAction("on_byte")
	require.NoError(t, err)

	onMatch(3)
	onByte('a')
	assert.Equal(t, uint32(3+'a'), total(t, p))
}

func TestLookup_Errors(t *testing.T) {
	p := loadCounter(t, Config{})

	_, err := p.MatchAction("missing")
	assert.ErrorIs(t, err, ErrMissingExport)
	var abiErr *ABIError
	require.ErrorAs(t, err, &abiErr)
	assert.Equal(t, "missing", abiErr.Function)

	_, err = p.DeliverAction("noop")
	require.ErrorAs(t, err, &abiErr)
	assert.Equal(t, "signature is () -> (), want (i32) -> ()", abiErr.Reason)
	assert.NotErrorIs(t, err, ErrMissingExport)
}

func TestLoadBytes_Invalid(t *testing.T) {
	_, err := LoadBytes(context.Background(), "bad", []byte("not a wasm file"), Config{})
	var rtErr *RuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "wasm compilation", rtErr.Operation)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.wasm")
	require.NoError(t, os.WriteFile(path, counterWasm, 0o644))

	p, err := Load(context.Background(), path, Config{})
	require.NoError(t, err)
	defer p.Close(context.Background())
	assert.Equal(t, "counter", p.Name())
}

func TestLoad_NotRegular(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir(), Config{})
	assert.ErrorIs(t, err, safefile.ErrNotRegularFile)
}

func TestLoadBytes_CompilationCache(t *testing.T) {
	dir := t.TempDir()
	for range 2 {
		p, err := LoadBytes(context.Background(), "counter", counterWasm, Config{CacheDir: dir})
		require.NoError(t, err)
		require.NoError(t, p.Close(context.Background()))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestHostLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := LoadBytes(context.Background(), "greeter", loggerWasm, Config{Logger: logger})
	require.NoError(t, err)
	defer p.Close(context.Background())

	fn, err := p.MatchAction("on_match")
	require.NoError(t, err)
	fn(1)

	assert.Contains(t, buf.String(), "[plugin] hello")
	assert.Contains(t, buf.String(), "module=greeter")
}

func TestHostLog_RateLimited(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p, err := LoadBytes(context.Background(), "greeter", loggerWasm, Config{Logger: logger})
	require.NoError(t, err)
	defer p.Close(context.Background())

	fn, err := p.MatchAction("on_match")
	require.NoError(t, err)
	for range LogRateLimit * 3 {
		fn(1)
	}
	assert.LessOrEqual(t, bytes.Count(buf.Bytes(), []byte("[plugin] hello")), LogRateLimit+1)
}

func TestClose(t *testing.T) {
	p, err := LoadBytes(context.Background(), "counter", counterWasm, Config{})
	require.NoError(t, err)

	fn, err := p.MatchAction("on_match")
	require.NoError(t, err)

	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()), "second close is a no-op")

	assert.NotPanics(t, func() { fn(1) })
	_, err = p.MatchAction("on_match")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestResolver(t *testing.T) {
	p := loadCounter(t, Config{})
	r := p.Resolver()

	_, err := r.MatchAction("emit")
	assert.ErrorIs(t, err, treefile.ErrUnknownAction, "names without the prefix are not served")

	_, err = r.MatchAction("plugin:missing")
	assert.ErrorIs(t, err, treefile.ErrUnknownAction)
	assert.ErrorIs(t, err, ErrMissingExport)

	_, err = r.DeliverAction("plugin:noop")
	var abiErr *ABIError
	assert.ErrorAs(t, err, &abiErr)
	assert.NotErrorIs(t, err, treefile.ErrUnknownAction)
}

func TestResolver_CompiledTree(t *testing.T) {
	p := loadCounter(t, Config{})

	tf, err := treefile.LoadBytes([]byte(`version: 1
nodes:
  - name: root
    branches:
      - {pattern: "go", target: body}
  - name: body
    kind: transparent
    deliver: plugin:on_byte
    branches:
      - {pattern: "end", action: plugin:on_match, target: root}
`))
	require.NoError(t, err)

	tree, err := treefile.Compile(tf, treefile.ChainResolver{treefile.Actions{}, p.Resolver()})
	require.NoError(t, err)

	parser, err := ssp.New(tree.Root())
	require.NoError(t, err)
	_, err = parser.Write([]byte("go\x01\x02end"))
	require.NoError(t, err)

	// 1 + 2 + 'e' + 'n' + 'd' delivered, then the match length 3.
	assert.Equal(t, uint32(1+2+'e'+'n'+'d'+3), total(t, p))
	assert.Equal(t, "root", parser.Node().Name())
}
