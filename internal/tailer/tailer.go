// Package tailer follows growing capture files and hands their bytes to a
// writer, normally a parser.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nxadm/tail"

	"github.com/sspkit/ssp-go/internal/capture"
)

// DefaultPollInterval is how often FollowDir checks for a newer capture file.
const DefaultPollInterval = 2 * time.Second

// Config configures a Tailer.
type Config struct {
	// FromStart reads the file from the beginning instead of the end.
	FromStart bool

	// Poll uses stat polling instead of file system notifications.
	Poll bool

	// PollInterval is the rotation check interval used by FollowDir.
	PollInterval time.Duration

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{PollInterval: DefaultPollInterval}
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Tailer follows one file line by line.
type Tailer struct {
	t     *tail.Tail
	lines chan string
	errs  chan error
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// New starts following path. The file must exist.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	tcfg := tail.Config{
		Follow:        true,
		ReOpen:        true,
		MustExist:     true,
		CompleteLines: true,
		Poll:          cfg.Poll,
		Logger:        tail.DiscardingLogger,
	}
	if !cfg.FromStart {
		tcfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, tcfg)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}

	tl := &Tailer{
		t:     t,
		lines: make(chan string),
		errs:  make(chan error, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go tl.run(ctx)
	return tl, nil
}

func (tl *Tailer) run(ctx context.Context) {
	defer close(tl.done)
	defer close(tl.lines)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tl.stop:
			return
		case line, ok := <-tl.t.Lines:
			if !ok {
				if err := tl.t.Err(); err != nil {
					tl.sendError(err)
				}
				return
			}
			if line.Err != nil {
				tl.sendError(line.Err)
				continue
			}
			select {
			case tl.lines <- line.Text:
			case <-ctx.Done():
				return
			case <-tl.stop:
				return
			}
		}
	}
}

func (tl *Tailer) sendError(err error) {
	select {
	case tl.errs <- err:
	default:
	}
}

// Lines returns the lines read, without their trailing newline.
// A line is only sent once its newline has been written, so a write that
// stops mid-line is held back until the rest arrives.
// The channel is closed when the tailer stops.
func (tl *Tailer) Lines() <-chan string {
	return tl.lines
}

// Errors returns read errors. It is never closed.
func (tl *Tailer) Errors() <-chan error {
	return tl.errs
}

// closed reports why Lines was closed: the read error queued just before
// closing, or nil.
func (tl *Tailer) closed() error {
	select {
	case err := <-tl.errs:
		return err
	default:
		return nil
	}
}

// Stop stops following and waits for the reader goroutine to exit.
// Safe to call multiple times.
func (tl *Tailer) Stop() error {
	var err error
	tl.once.Do(func() {
		close(tl.stop)
		err = tl.t.Stop()
		tl.t.Cleanup()
		<-tl.done
	})
	return err
}

// Follow writes every line appended to path, with its newline restored, to
// w until ctx is done. The bytes written are those of the file: a partial
// last line is held back until its newline arrives. It returns nil when ctx
// ends and the first write or read error otherwise.
func Follow(ctx context.Context, path string, cfg Config, w io.Writer) error {
	t, err := New(ctx, path, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = t.Stop() }()
	cfg.logger().Debug("started tailing", "path", path, "from_start", cfg.FromStart)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines():
			if !ok {
				return t.closed()
			}
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		case err := <-t.Errors():
			return err
		}
	}
}

// FollowDir follows the newest capture file in dir matching glob and
// switches to a newer one when it appears, reading the new file from its
// start. It returns nil when ctx ends.
func FollowDir(ctx context.Context, dir, glob string, cfg Config, w io.Writer) error {
	log := cfg.logger()
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	current, err := capture.FindLatest(dir, glob)
	if err != nil {
		return err
	}
	log.Debug("found latest capture file", "path", current)

	t, err := New(ctx, current, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = t.Stop() }()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines():
			if !ok {
				return t.closed()
			}
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		case err := <-t.Errors():
			return err
		case <-ticker.C:
			next, err := capture.FindLatest(dir, glob)
			if err != nil {
				if errors.Is(err, capture.ErrNoCaptureFiles) {
					continue
				}
				return err
			}
			if next == current {
				continue
			}
			log.Debug("capture rotation detected", "from", current, "to", next)
			_ = t.Stop()
			ncfg := cfg
			ncfg.FromStart = true
			nt, err := New(ctx, next, ncfg)
			if err != nil {
				return err
			}
			t = nt
			current = next
		}
	}
}
