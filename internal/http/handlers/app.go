package handlers

import (
	"encoding/json"
	"net/http"

	"schedbot/internal/domain"
	"schedbot/internal/infra"
)

// App bundles the dependencies shared by the operator API handlers.
type App struct {
	Subs   domain.SubscriptionRepository
	Jobs   domain.JobRepository
	Logger infra.Logger
}

func NewApp(subs domain.SubscriptionRepository, jobs domain.JobRepository, logger infra.Logger) *App {
	return &App{Subs: subs, Jobs: jobs, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
