// Package audit records access and application events to append-only log files.
//
// The access channel (access.log) is shared by everyone and records authentication and lifecycle events together
// with the client address, location and headers. The application channel is split per identity: events of a known
// identity go to app_<identity>.log and everything else to app.log.
package audit

import (
	"context"
	"github.com/myrjola/tutorai/internal/errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config configures an Auditor.
type Config struct {
	// Dir is the directory holding the log files. It is created if missing.
	Dir string
	// Debug lowers the application channel level so that per-chunk feedback events are recorded.
	Debug bool
}

type Auditor struct {
	access       *slog.Logger
	accessCloser io.Closer
	registry     *Registry
	locator      *Locator
}

// New opens the access log and the default application log in cfg.Dir.
func New(cfg Config, locator *Locator, logger *slog.Logger) (*Auditor, error) {
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil { //nolint:mnd // rwx for owner, rx for group
		return nil, errors.Wrap(err, "create log directory", slog.String("dir", cfg.Dir))
	}
	access, closer, err := openFileLogger(filepath.Join(cfg.Dir, accessLogName), slog.LevelInfo)
	if err != nil {
		return nil, errors.Wrap(err, "open access log")
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	registry, err := NewRegistry(cfg.Dir, level, logger)
	if err != nil {
		_ = closer.Close()
		return nil, errors.Wrap(err, "create stream registry")
	}
	return &Auditor{
		access:       access,
		accessCloser: closer,
		registry:     registry,
		locator:      locator,
	}, nil
}

// Access records an event on the shared access channel. It resolves the client address and location from md on a
// best-effort basis and never fails.
func (a *Auditor) Access(ctx context.Context, kind EventKind, details string, identity string, md Metadata) {
	if identity == "" {
		identity = UnknownIdentity
	}
	ip := ResolveIP(md)
	a.access.LogAttrs(ctx, slog.LevelInfo, string(kind),
		slog.String("username", identity),
		slog.String("ip", ip),
		slog.String("location", a.locator.Locate(ctx, ip)),
		slog.String("details", details),
		slog.String("headers", FlattenHeaders(md.Headers)),
	)
}

// App returns the application stream for identity.
func (a *Auditor) App(identity string) *Stream {
	return a.registry.GetOrCreate(identity)
}

// Close closes all log files.
func (a *Auditor) Close() error {
	return errors.Join(a.registry.Close(), a.accessCloser.Close())
}
