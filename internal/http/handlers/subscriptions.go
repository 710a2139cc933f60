package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schedbot/internal/domain"
)

type subscriptionRequest struct {
	UserID       int64  `json:"user_id"`
	Query        string `json:"query"`
	Mode         string `json:"mode"`
	DeliveryTime string `json:"delivery_time"`
	Timezone     string `json:"timezone"`
	Locale       string `json:"locale"`
	Enabled      *bool  `json:"enabled"`
}

type subscriptionResponse struct {
	ID           string `json:"id"`
	UserID       int64  `json:"user_id"`
	Query        string `json:"query"`
	Mode         string `json:"mode"`
	DeliveryTime string `json:"delivery_time"`
	Timezone     string `json:"timezone"`
	Locale       string `json:"locale"`
	Enabled      bool   `json:"enabled"`
	Flagged      bool   `json:"flagged"`
	LastDelivery string `json:"last_delivery,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toSubscriptionResponse(sub *domain.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:           sub.ID,
		UserID:       sub.UserID,
		Query:        sub.Query,
		Mode:         string(sub.Mode),
		DeliveryTime: sub.DeliveryTime.String(),
		Timezone:     sub.Timezone,
		Locale:       sub.Locale,
		Enabled:      sub.Enabled,
		Flagged:      sub.Flagged,
		CreatedAt:    sub.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    sub.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if sub.LastDelivery != nil {
		resp.LastDelivery = sub.LastDelivery.String()
	}
	return resp
}

// UpsertSubscription creates or replaces the caller-identified user's
// subscription. Repeating the same payload is a no-op apart from timestamps.
func (a *App) UpsertSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	deliveryTime := req.DeliveryTime
	if deliveryTime == "" {
		deliveryTime = domain.DefaultDeliveryTime
	}
	tod, err := domain.ParseTimeOfDay(deliveryTime)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "delivery_time must be HH:MM")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sub := &domain.Subscription{
		UserID:       req.UserID,
		Query:        req.Query,
		Mode:         domain.Mode(req.Mode),
		DeliveryTime: tod,
		Timezone:     req.Timezone,
		Locale:       req.Locale,
		Enabled:      enabled,
	}
	stored, err := a.Subs.Upsert(r.Context(), sub)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSubscription) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("api: subscription upsert failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store subscription")
		return
	}
	a.json(w, http.StatusOK, toSubscriptionResponse(stored))
}

func (a *App) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := a.Subs.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: subscription list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list subscriptions")
		return
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toSubscriptionResponse(&subs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (a *App) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.Subs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		a.Logger.Error().Err(err).Msg("api: subscription load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load subscription")
		return
	}
	a.json(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (a *App) EnableSubscription(w http.ResponseWriter, r *http.Request) {
	a.setEnabled(w, r, true)
}

func (a *App) DisableSubscription(w http.ResponseWriter, r *http.Request) {
	a.setEnabled(w, r, false)
}

func (a *App) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if err := a.Subs.SetEnabled(r.Context(), id, enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		a.Logger.Error().Err(err).Msg("api: subscription toggle failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update subscription")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}

// UnflagSubscription clears the operator-attention flag after the underlying
// issue (typically a renamed group) has been resolved.
func (a *App) UnflagSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Subs.SetFlagged(r.Context(), id, false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "subscription not found")
			return
		}
		a.Logger.Error().Err(err).Msg("api: subscription unflag failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update subscription")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "flagged": false})
}
