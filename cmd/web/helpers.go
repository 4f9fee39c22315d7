package main

import (
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/myrjola/tutorai/internal/errors"
	"log/slog"
	"net/http"
	"strings"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri))
	http.Error(w, http.StatusText(status), status)
}

// metadataFromRequest collects the connection details recorded with access events.
func metadataFromRequest(r *http.Request) audit.Metadata {
	return audit.Metadata{
		ForwardedIP: forwardedFor(r.Header.Get("Forwarded")),
		DirectIP:    r.RemoteAddr,
		Headers:     r.Header.Clone(),
	}
}

// forwardedFor returns the for parameter of the first element of an RFC 7239 Forwarded header.
func forwardedFor(header string) string {
	first, _, _ := strings.Cut(header, ",")
	for _, pair := range strings.Split(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(key, "for") {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}
