package tailer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sspkit/ssp-go/internal/capture"
)

// syncBuffer is a bytes.Buffer safe for the tailer goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func appendFile(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func testConfig() Config {
	return Config{FromStart: true, Poll: true, PollInterval: 50 * time.Millisecond}
}

func TestNew_MissingFile(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing.log"), testConfig())
	assert.Error(t, err)
}

func TestTailer_Lines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modem.log")
	appendFile(t, path, "OK\nRING\n")

	tl, err := New(context.Background(), path, testConfig())
	require.NoError(t, err)
	defer tl.Stop()

	var got []string
	for len(got) < 2 {
		select {
		case line := <-tl.Lines():
			got = append(got, line)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %q", got)
		}
	}
	assert.Equal(t, []string{"OK", "RING"}, got)

	require.NoError(t, tl.Stop())
	assert.NoError(t, tl.Stop(), "second stop is a no-op")
	_, open := <-tl.Lines()
	assert.False(t, open)
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modem.log")
	appendFile(t, path, "okfrm")
	appendFile(t, path, "12\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	errCh := make(chan error, 1)
	go func() { errCh <- Follow(ctx, path, testConfig(), &out) }()

	assert.Eventually(t, func() bool { return out.String() == "okfrm12\n" }, 5*time.Second, 20*time.Millisecond)

	appendFile(t, path, "ok\n")
	assert.Eventually(t, func() bool { return out.String() == "okfrm12\nok\n" }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestFollow_PartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modem.log")
	appendFile(t, path, "AT+CMGS=1\r\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	errCh := make(chan error, 1)
	go func() { errCh <- Follow(ctx, path, testConfig(), &out) }()

	assert.Eventually(t, func() bool { return out.String() == "AT+CMGS=1\r\n" }, 5*time.Second, 20*time.Millisecond)

	appendFile(t, path, "> ")
	assert.Never(t, func() bool { return out.String() != "AT+CMGS=1\r\n" }, 600*time.Millisecond, 20*time.Millisecond,
		"prompt without newline must be held back")

	appendFile(t, path, "hi\r\n")
	want, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return out.String() == string(want) }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "AT+CMGS=1\r\n> hi\r\n", out.String())

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestTailer_ClosedReportsQueuedError(t *testing.T) {
	boom := errors.New("read failed")
	tl := &Tailer{lines: make(chan string), errs: make(chan error, 1)}
	close(tl.lines)

	assert.NoError(t, tl.closed())

	tl.errs <- boom
	assert.ErrorIs(t, tl.closed(), boom)
	assert.NoError(t, tl.closed(), "error is reported once")
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestFollow_WriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modem.log")
	appendFile(t, path, "ok\n")

	boom := errors.New("not initialized")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Follow(ctx, path, testConfig(), failingWriter{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestFollowDir_Rotation(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	appendFile(t, first, "one\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	errCh := make(chan error, 1)
	go func() { errCh <- FollowDir(ctx, dir, "*.log", testConfig(), &out) }()

	assert.Eventually(t, func() bool { return out.String() == "one\n" }, 5*time.Second, 20*time.Millisecond)

	second := filepath.Join(dir, "b.log")
	appendFile(t, second, "two\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(second, future, future))

	assert.Eventually(t, func() bool { return out.String() == "one\ntwo\n" }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("FollowDir did not return after cancel")
	}
}

func TestFollowDir_NoFiles(t *testing.T) {
	err := FollowDir(context.Background(), t.TempDir(), "", testConfig(), &syncBuffer{})
	assert.ErrorIs(t, err, capture.ErrNoCaptureFiles)
}
