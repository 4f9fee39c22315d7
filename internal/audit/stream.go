package audit

import (
	"context"
	"github.com/myrjola/tutorai/internal/errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	accessLogName     = "access.log"
	defaultAppLogName = "app.log"
	timeFormat        = "2006-01-02 15:04:05"
)

// Stream is an append-only application event destination. Each call writes exactly one line.
type Stream struct {
	name   string
	logger *slog.Logger
}

// Name is the file name the stream writes to.
func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) Debug(ctx context.Context, kind EventKind, details string) {
	s.write(ctx, slog.LevelDebug, kind, details)
}

func (s *Stream) Info(ctx context.Context, kind EventKind, details string) {
	s.write(ctx, slog.LevelInfo, kind, details)
}

func (s *Stream) Warn(ctx context.Context, kind EventKind, details string) {
	s.write(ctx, slog.LevelWarn, kind, details)
}

func (s *Stream) Error(ctx context.Context, kind EventKind, details string) {
	s.write(ctx, slog.LevelError, kind, details)
}

func (s *Stream) write(ctx context.Context, level slog.Level, kind EventKind, details string) {
	s.logger.LogAttrs(ctx, level, string(kind), slog.String("details", details))
}

// Sanitize keeps only ASCII letters, digits, underscores and hyphens of identity.
func Sanitize(identity string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, identity)
}

// Registry hands out one [Stream] per sanitized identity and keeps them open until Close.
type Registry struct {
	dir      string
	level    slog.Leveler
	logger   *slog.Logger
	fallback *Stream

	mu      sync.Mutex
	streams map[string]*Stream
	closers []io.Closer
}

// NewRegistry opens the default application stream in dir.
func NewRegistry(dir string, level slog.Leveler, logger *slog.Logger) (*Registry, error) {
	r := &Registry{ //nolint:exhaustruct // fallback and closers are set below
		dir:     dir,
		level:   level,
		logger:  logger,
		streams: map[string]*Stream{},
	}
	fallback, err := r.open(defaultAppLogName, "")
	if err != nil {
		return nil, errors.Wrap(err, "open default application log")
	}
	r.fallback = fallback
	return r, nil
}

// Default returns the stream used for events without an identity.
func (r *Registry) Default() *Stream {
	return r.fallback
}

// GetOrCreate returns the stream for identity. Identities that are empty or sanitize to nothing share the default
// stream. A stream that cannot be opened is logged and replaced by the default stream.
func (r *Registry) GetOrCreate(identity string) *Stream {
	safe := Sanitize(identity)
	if safe == "" {
		return r.fallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[safe]; ok {
		return s
	}
	s, err := r.open("app_"+safe+".log", safe)
	if err != nil {
		r.logger.Error("open identity log, using default", slog.String("identity", safe), errors.SlogError(err))
		return r.fallback
	}
	r.streams[safe] = s
	return s
}

// open must be called with mu held unless the registry is still being constructed.
func (r *Registry) open(name string, identity string) (*Stream, error) {
	logger, closer, err := openFileLogger(filepath.Join(r.dir, name), r.level)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, closer)
	if identity != "" {
		logger = logger.With(slog.String("identity", identity))
	}
	return &Stream{name: name, logger: logger}, nil
}

// Close closes every stream. Streams must not be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func openFileLogger(path string, level slog.Leveler) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:mnd // rw for owner, r for group
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file", slog.String("path", path))
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
			}
			return a
		},
	})
	return slog.New(handler), f, nil
}
