package main

import (
	"encoding/json"
	"fmt"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/metrics"
	"github.com/myrjola/tutorai/internal/tutor"
	"log/slog"
	"net/http"
	"time"
)

type updateEvent struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// stream delivers the updates of a run or help action as server-sent events.
//
// Each update event replaces the visible result. The done event ends the stream, also when the stream is unknown, has
// already been consumed or belongs to another browser session.
func (app *application) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)
	// The stream lasts as long as the language model keeps answering.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}
	if err := rc.SetReadDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear read deadline"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	metrics.StreamingConnections.Inc()
	defer metrics.StreamingConnections.Dec()

	// Streams of other sessions are left alone for their owner and look unknown here.
	if id := r.PathValue("id"); app.ownsStream(r, id) {
		if updates, ok := <-app.streams.Subscribe(id); ok {
			if !app.forwardUpdates(w, r, rc, updates) {
				return
			}
		}
	}
	if err := writeEvent(w, rc, "done", "{}"); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "client went away before done", errors.SlogError(err))
	}
}

// forwardUpdates writes updates until the channel is closed. It reports false if the client went away.
func (app *application) forwardUpdates(
	w http.ResponseWriter,
	r *http.Request,
	rc *http.ResponseController,
	updates <-chan tutor.Update,
) bool {
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return false
		case u, open := <-updates:
			if !open {
				return true
			}
			event := updateEvent{Text: u.Text, Error: ""}
			if u.Err != nil {
				event.Error = u.Err.Error()
			}
			payload, err := json.Marshal(event)
			if err != nil {
				app.logger.LogAttrs(ctx, slog.LevelError, "failed to encode update",
					errors.SlogError(errors.Wrap(err, "marshal update")))
				return false
			}
			if err = writeEvent(w, rc, "update", string(payload)); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelDebug, "client went away", errors.SlogError(err))
				return false
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return errors.Wrap(err, "write event", slog.String("event", event))
	}
	if err := rc.Flush(); err != nil {
		return errors.Wrap(err, "flush event", slog.String("event", event))
	}
	return nil
}
