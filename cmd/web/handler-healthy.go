package main

import (
	"encoding/json"
	"github.com/myrjola/tutorai/internal/errors"
	"net/http"
)

type healthStatus struct {
	Status    string `json:"status"`
	Questions int    `json:"questions"`
	Auth      bool   `json:"auth"`
}

// healthy reports the size of the loaded question catalog and whether login is required.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(healthStatus{
		Status:    "ok",
		Questions: app.library.Current().Len(),
		Auth:      app.cfg.Auth,
	})
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal health status"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
