package main

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/tutorai/internal/logging"
	"github.com/myrjola/tutorai/internal/tutor"
	"log/slog"
	"net/http"
)

// runCode executes the submitted code and streams the output followed by the evaluation to the output pane.
func (app *application) runCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	state := app.sessionState(r)
	code := r.PostForm.Get("code")

	data := app.newHomeTemplateData(r, state)
	data.Code = code
	data.StreamURL = app.startStream(r, func(ctx context.Context) <-chan tutor.Update {
		return app.tutor.Run(ctx, state, code)
	})
	data.StreamTarget = streamTargetOutput
	app.render(w, r, http.StatusOK, "home", data)
}

// requestHelp streams a hint for the submitted code and output to the hint pane.
func (app *application) requestHelp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	state := app.sessionState(r)
	code := r.PostForm.Get("code")
	output := r.PostForm.Get("output")

	data := app.newHomeTemplateData(r, state)
	data.Code = code
	data.Output = output
	data.StreamURL = app.startStream(r, func(ctx context.Context) <-chan tutor.Update {
		return app.tutor.Help(ctx, state, code, output)
	})
	data.StreamTarget = streamTargetHint
	app.render(w, r, http.StatusOK, "home", data)
}

// startStream runs produce detached from the request and publishes its updates for the stream endpoint. It returns
// the URL of the stream.
//
// Only the browser session that started the stream may subscribe to it. The producer outlives the POST request. It is bounded by the stream timeout which also covers waiting for the
// browser to subscribe.
func (app *application) startStream(r *http.Request, produce func(context.Context) <-chan tutor.Update) string {
	id := uuid.NewString()
	app.claimStream(r, id)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), app.cfg.StreamTimeout)
	ctx = logging.WithAttrs(ctx, slog.String("streamID", id))
	done := app.streams.Relay(ctx, id, produce(ctx))
	go func() {
		<-done
		cancel()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "stream finished")
	}()
	return "/stream/" + id
}
