package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"botforge/internal/db"
	"botforge/internal/markdown"
	"botforge/internal/model"
	"botforge/internal/service"
	"botforge/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type caseDetail struct {
	model.Case
	ContentHTML string `json:"contentHtml,omitempty"`
}

func (d Dependencies) listCases(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" || len(d.Cases.List()) == 0 {
		if err := d.Cases.Fetch(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
			return
		}
	}
	writeJSON(w, http.StatusOK, d.Cases.List())
}

func (d Dependencies) getCaseBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	c, err := d.Cases.FetchBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Case not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}

	html, err := markdown.Render(c.ContentMD)
	if err != nil {
		d.Log.Warn("Failed to render case content", zap.String("slug", slug), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, caseDetail{Case: c, ContentHTML: html})
}

func (d Dependencies) createCase(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCaseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Title == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Title is required", d.Log)
		return
	}
	if req.Slug == "" {
		req.Slug = util.Slugify(req.Title)
	}

	c, err := d.Cases.Create(r.Context(), req)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (d Dependencies) updateCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req db.UpdateCaseParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	c, err := d.Cases.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Case not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "update_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (d Dependencies) deleteCase(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := d.Cases.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Case not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "delete_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
