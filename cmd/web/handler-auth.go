package main

import (
	"github.com/myrjola/tutorai/internal/errors"
	"net/http"
	"strings"
)

const loginFailedMessage = "Invalid username or access key"

type loginTemplateData struct {
	BaseTemplateData

	Username string
	Error    string
}

func (app *application) login(w http.ResponseWriter, r *http.Request) {
	if !app.cfg.Auth {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	username := strings.TrimSpace(r.PostForm.Get("username"))
	accessKey := r.PostForm.Get("access_key")

	if !app.authenticator.Authenticate(ctx, username, accessKey, metadataFromRequest(r)) {
		app.render(w, r, http.StatusUnauthorized, "login", loginTemplateData{
			BaseTemplateData: app.newBaseTemplateData(r),
			Username:         username,
			Error:            loginFailedMessage,
		})
		return
	}

	// Renew the session token to prevent session fixation.
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.sessionManager.Put(ctx, string(identitySessionKey), username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.sessionManager.Remove(ctx, string(identitySessionKey))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
