package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"botforge/internal/auth"
	"botforge/internal/db"
	"botforge/internal/markdown"
	"botforge/internal/model"
	"botforge/internal/service"
	"botforge/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// postDetail is the slug read view: the stored record plus its
// markdown body rendered to HTML.
type postDetail struct {
	model.Post
	ContentHTML string `json:"contentHtml,omitempty"`
}

// listPosts serves the cached listing; ?refresh=1 forces a reload first
func (d Dependencies) listPosts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" || len(d.Posts.List()) == 0 {
		if err := d.Posts.Fetch(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
			return
		}
	}
	writeJSON(w, http.StatusOK, d.Posts.List())
}

func (d Dependencies) getPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := d.Posts.FetchBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Post not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}

	html, err := markdown.Render(post.Content)
	if err != nil {
		d.Log.Warn("Failed to render post content", zap.String("slug", slug), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, postDetail{Post: post, ContentHTML: html})
}

func (d Dependencies) createPost(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostInput
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

	if userID := auth.GetUserID(r.Context()); userID != "" {
		req.CreatedBy = &userID
	}

	post, err := d.Posts.Create(r.Context(), req)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (d Dependencies) updatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req db.UpdatePostParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	post, err := d.Posts.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Post not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "update_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (d Dependencies) deletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := d.Posts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Post not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "delete_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
