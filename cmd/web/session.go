package main

import (
	"github.com/myrjola/tutorai/internal/contexthelpers"
	"github.com/myrjola/tutorai/internal/tutor"
	"net/http"
	"slices"
)

type sessionKey string

const identitySessionKey = sessionKey("identity")
const questionIndexSessionKey = sessionKey("questionIndex")
const streamsSessionKey = sessionKey("streams")

// maxOwnedStreams bounds how many recent streams a session may subscribe to, one per open tab or so.
const maxOwnedStreams = 8

// sessionState restores the tutoring state of the browser session. The identity comes from the authenticated
// connection.
func (app *application) sessionState(r *http.Request) tutor.State {
	ctx := r.Context()
	state := tutor.State{
		QuestionIndex: app.sessionManager.GetInt(ctx, string(questionIndexSessionKey)),
		Identity:      "",
	}
	return tutor.ResolveIdentity(state, contexthelpers.Identity(ctx))
}

func (app *application) saveSessionState(r *http.Request, state tutor.State) {
	app.sessionManager.Put(r.Context(), string(questionIndexSessionKey), state.QuestionIndex)
}

// claimStream records that the browser session started the stream id.
func (app *application) claimStream(r *http.Request, id string) {
	owned, _ := app.sessionManager.Get(r.Context(), string(streamsSessionKey)).([]string)
	owned = append(owned, id)
	if len(owned) > maxOwnedStreams {
		owned = owned[len(owned)-maxOwnedStreams:]
	}
	app.sessionManager.Put(r.Context(), string(streamsSessionKey), owned)
}

// ownsStream reports whether the browser session started the stream id.
func (app *application) ownsStream(r *http.Request, id string) bool {
	owned, _ := app.sessionManager.Get(r.Context(), string(streamsSessionKey)).([]string)
	return slices.Contains(owned, id)
}
