package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/time/rate"
)

const (
	// MaxLogSize is the maximum size of a single plugin log message.
	MaxLogSize = 256

	// LogRateLimit is the maximum number of plugin log calls per second.
	LogRateLimit = 10
)

// hostFunctions implements the "env" module offered to plugins.
type hostFunctions struct {
	logger      *slog.Logger
	rateLimiter *rate.Limiter
}

func newHostFunctions(logger *slog.Logger) *hostFunctions {
	return &hostFunctions{
		logger:      logger,
		rateLimiter: rate.NewLimiter(LogRateLimit, LogRateLimit),
	}
}

// register instantiates the "env" host module in rt.
func (h *hostFunctions) register(ctx context.Context, rt wazero.Runtime) error {
	// log: (level, ptr, len) -> void
	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, level, ptr, msgLen uint32) {
			h.log(ctx, m, level, ptr, msgLen)
		}).
		Export("log").
		Instantiate(ctx)
	return err
}

// log implements the log host function.
// Levels: 0=debug, 1=info, 2=warn, 3=error.
func (h *hostFunctions) log(_ context.Context, m api.Module, level, ptr, msgLen uint32) {
	if h.logger == nil || !h.rateLimiter.Allow() {
		return
	}

	truncated := false
	if msgLen > MaxLogSize {
		truncated = true
		msgLen = MaxLogSize
	}

	msgBytes, ok := m.Memory().Read(ptr, msgLen)
	if !ok {
		return
	}
	msg := strings.ToValidUTF8(string(msgBytes), "\ufffd")
	if truncated {
		msg += " [truncated]"
	}

	switch level {
	case 0:
		h.logger.Debug("[plugin] "+msg, "module", m.Name())
	case 1:
		h.logger.Info("[plugin] "+msg, "module", m.Name())
	case 2:
		h.logger.Warn("[plugin] "+msg, "module", m.Name())
	case 3:
		h.logger.Error("[plugin] "+msg, "module", m.Name())
	default:
		h.logger.Info(fmt.Sprintf("[plugin] (level=%d) %s", level, msg), "module", m.Name())
	}
}
