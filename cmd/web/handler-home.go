package main

import (
	"github.com/myrjola/tutorai/internal/contexthelpers"
	"github.com/myrjola/tutorai/internal/questions"
	"github.com/myrjola/tutorai/internal/tutor"
	"net/http"
)

// Targets of a server-sent event stream on the home page.
const (
	streamTargetOutput = "output"
	streamTargetHint   = "hint"
)

type homeTemplateData struct {
	BaseTemplateData

	Question questions.Question
	// Number is the one-based position of Question.
	Number int
	Total  int
	Code   string
	Output string
	// StreamURL is consumed by the element named in StreamTarget.
	StreamURL    string
	StreamTarget string
}

func (app *application) newHomeTemplateData(r *http.Request, state tutor.State) homeTemplateData {
	q := app.tutor.Question(state)
	return homeTemplateData{
		BaseTemplateData: app.newBaseTemplateData(r),
		Question:         q,
		Number:           q.ID + 1,
		Total:            app.library.Current().Len(),
		Code:             "",
		Output:           "",
		StreamURL:        "",
		StreamTarget:     "",
	}
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	if app.cfg.Auth && !contexthelpers.IsAuthenticated(r.Context()) {
		app.render(w, r, http.StatusOK, "login", loginTemplateData{
			BaseTemplateData: app.newBaseTemplateData(r),
			Username:         "",
			Error:            "",
		})
		return
	}

	app.render(w, r, http.StatusOK, "home", app.newHomeTemplateData(r, app.sessionState(r)))
}

func (app *application) nextQuestion(w http.ResponseWriter, r *http.Request) {
	app.navigate(w, r, tutor.Next)
}

func (app *application) previousQuestion(w http.ResponseWriter, r *http.Request) {
	app.navigate(w, r, tutor.Previous)
}

func (app *application) navigate(w http.ResponseWriter, r *http.Request, direction tutor.Direction) {
	state, _ := app.tutor.Navigate(app.sessionState(r), direction)
	app.saveSessionState(r, state)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
