package main

import (
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"time"
)

func (app *application) routes(defaultTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, noSurf, app.authenticate, commonContext)
	pages := session.Append(timeoutHandler(defaultTimeout))
	tutoring := pages.Append(app.requireAuthentication)

	mux.Handle("GET /{$}", pages.ThenFunc(app.home))
	mux.Handle("POST /login", pages.ThenFunc(app.login))
	mux.Handle("POST /logout", pages.ThenFunc(app.logout))
	mux.Handle("POST /questions/next", tutoring.ThenFunc(app.nextQuestion))
	mux.Handle("POST /questions/previous", tutoring.ThenFunc(app.previousQuestion))
	mux.Handle("POST /run", tutoring.ThenFunc(app.runCode))
	mux.Handle("POST /help", tutoring.ThenFunc(app.requestHelp))

	sse := alice.New(app.serverSentEventMiddleware, app.authenticate, app.requireAuthentication)
	mux.Handle("GET /stream/{id}", sse.ThenFunc(app.stream))

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.Handle("GET /metrics", promhttp.Handler())

	return app.recoverPanic(app.logRequest(app.secureHeaders(mux)))
}
