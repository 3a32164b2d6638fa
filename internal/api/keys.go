package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (d Dependencies) listKeys(w http.ResponseWriter, r *http.Request) {
	if err := d.Keys.Fetch(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, d.Keys.List())
}

func (d Dependencies) createKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Label == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Label is required", d.Log)
		return
	}

	key, token, err := d.Keys.Create(r.Context(), req.Label)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", err.Error(), d.Log)
		return
	}

	// The plaintext token appears in this response and nowhere else
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"key":   key,
		"token": token,
	})
}

func (d Dependencies) toggleKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.Keys.SetActive(r.Context(), id, req.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "API key not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "update_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (d Dependencies) deleteKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := d.Keys.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "API key not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "delete_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
