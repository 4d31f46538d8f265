package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sheetsync/app"
	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	apperrors "sheetsync/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("encode response: %v", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, err error, code string) {
	a.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"state":    a.controller.Current().State,
		"datasets": a.controller.Names(),
	})
}

func (a *App) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.controller.Current())
}

// handleRefresh reloads every dataset and answers once the cycle settles.
// A refresh that arrives during a load is dropped with 409; a bad dataset
// list is the caller's fault and gets 400.
func (a *App) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, err := a.controller.Refresh(r.Context())
	switch {
	case errors.Is(err, core.ErrLoadInFlight):
		a.writeError(w, http.StatusConflict, err, "LOAD_IN_FLIGHT")
	case core.IsCallerError(err):
		a.writeError(w, http.StatusBadRequest, err, apperrors.CodeInvalidInput)
	case err != nil:
		a.writeError(w, http.StatusBadGateway, err, "")
	default:
		a.writeJSON(w, http.StatusAccepted, a.controller.Current())
	}
}

func (a *App) handleDataset(w http.ResponseWriter, r *http.Request) {
	name, err := dataset.ParseName(chi.URLParam(r, "name"))
	if err != nil {
		a.writeError(w, http.StatusNotFound, err, apperrors.CodeNotFound)
		return
	}

	snap := a.controller.Current().Snapshot
	if snap == nil {
		a.writeError(w, http.StatusServiceUnavailable, core.ErrNotLoaded, "NOT_LOADED")
		return
	}
	ds, err := snap.Dataset(name)
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err, "DATASET_UNAVAILABLE")
		return
	}
	a.writeJSON(w, http.StatusOK, ds)
}

func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, app.BuildDashboard(a.controller.Current().Snapshot))
}

func (a *App) handleDonations(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, app.BuildDonations(a.controller.Current().Snapshot))
}

func (a *App) handleContacts(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, app.BuildContacts(a.controller.Current().Snapshot))
}

func (a *App) handleVolunteers(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, app.BuildVolunteers(a.controller.Current().Snapshot))
}
