// Package logging hands out per-subsystem loggers sharing one backend.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/decred/slog"
)

const (
	SubsystemSession   = "SESS"
	SubsystemLedger    = "LDGR"
	SubsystemMessaging = "MSGS"
	SubsystemFaucet    = "FCET"
	SubsystemIdentity  = "IDNT"
	SubsystemHTTP      = "HTTP"
)

type Backend struct {
	mu      sync.Mutex
	backend *slog.Backend
	level   slog.Level
	loggers map[string]slog.Logger
}

// New creates a backend writing to w at the named level ("trace", "debug",
// "info", "warn", "error", "critical", "off").
func New(w io.Writer, level string) (*Backend, error) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level: %s", level)
	}
	if w == nil {
		w = os.Stderr
	}
	return &Backend{
		backend: slog.NewBackend(w),
		level:   lvl,
		loggers: make(map[string]slog.Logger),
	}, nil
}

func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	b.loggers[subsystem] = l
	return l
}

func (b *Backend) SetLevel(level slog.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = level
	for _, l := range b.loggers {
		l.SetLevel(level)
	}
}
