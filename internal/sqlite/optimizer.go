package sqlite

import (
	"context"
	"github.com/myrjola/tutorai/internal/errors"
	"log/slog"
	"time"
)

// startOptimizer runs optimize once per hour. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startOptimizer(ctx context.Context) {
	for {
		start := time.Now()
		if _, err := db.DB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			if ctx.Err() != nil {
				return
			}
			err = errors.Wrap(err, "optimize database")
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database", errors.SlogError(err))
		} else {
			attrs := []slog.Attr{slog.Duration("duration", time.Since(start))}
			if sessions, countErr := db.ActiveSessions(ctx); countErr == nil {
				attrs = append(attrs, slog.Int("activeSessions", sessions))
			}
			db.logger.LogAttrs(ctx, slog.LevelDebug, "optimized database", attrs...)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
			continue
		}
	}
}
