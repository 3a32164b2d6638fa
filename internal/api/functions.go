package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/publish"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type incrementViewsRequest struct {
	Table string `json:"table"`
	Slug  string `json:"slug"`
}

// incrementViews is the public page-view counter. There is no
// idempotency key; duplicate calls double-count.
func (d Dependencies) incrementViews(w http.ResponseWriter, r *http.Request) {
	var req incrementViewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Slug == "" || (req.Table != "posts" && req.Table != "cases") {
		WriteError(w, http.StatusBadRequest, "invalid_request",
			"table must be posts or cases and slug is required", d.Log)
		return
	}

	var err error
	if req.Table == "posts" {
		err = d.DB.Queries.IncrementPostViews(r.Context(), req.Slug)
	} else {
		err = d.DB.Queries.IncrementCaseViews(r.Context(), req.Slug)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "No row for slug", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "increment_failed", err.Error(), d.Log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "View count incremented",
	})
}

type n8nPublishRequest struct {
	Type    string                 `json:"type"`
	APIKey  string                 `json:"apiKey,omitempty"`
	Payload map[string]interface{} `json:"payload"`
}

// n8nPublish accepts externally produced content, gated by a publishing
// API key. The cover image may arrive base64-embedded; it is uploaded
// to storage and the payload's image field rewritten to the public URL
// before the row insert. If the insert then fails, the uploaded object
// is deleted again so no orphan is left behind.
func (d Dependencies) n8nPublish(w http.ResponseWriter, r *http.Request) {
	var req n8nPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	apiKey := r.Header.Get("x-api-key")
	if apiKey == "" {
		apiKey = req.APIKey
	}
	if apiKey == "" {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing API key", d.Log)
		return
	}
	if _, err := d.DB.Queries.FindActiveKeyByToken(r.Context(), apiKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or inactive API key", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "auth_failed", err.Error(), d.Log)
		return
	}

	var kind publish.Kind
	switch req.Type {
	case "post":
		kind = publish.KindPost
	case "case":
		kind = publish.KindCase
	default:
		WriteError(w, http.StatusBadRequest, "invalid_request", "type must be post or case", d.Log)
		return
	}

	if err := d.Validator.Validate(kind, req.Payload); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_payload", err.Error(), d.Log)
		return
	}

	slug := stringField(req.Payload, "slug")

	// Optional embedded cover image
	coverPath := ""
	if encoded := stringField(req.Payload, "cover_image"); encoded != "" {
		data, ext, err := decodeEmbeddedImage(encoded)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_payload", err.Error(), d.Log)
			return
		}
		coverPath = fmt.Sprintf("media/covers/%s-%s%s", slug, ulid.Make().String(), ext)
		if err := d.Bucket.Put(r.Context(), coverPath, bytes.NewReader(data)); err != nil {
			WriteError(w, http.StatusInternalServerError, "upload_failed", err.Error(), d.Log)
			return
		}
		coverURL := d.Bucket.PublicURL(coverPath)
		if kind == publish.KindPost {
			req.Payload["cover_url"] = coverURL
		} else {
			req.Payload["hero_image"] = coverURL
		}
	}

	var insertErr error
	if kind == publish.KindPost {
		insertErr = d.insertPublishedPost(r, req.Payload)
	} else {
		insertErr = d.insertPublishedCase(r, req.Payload)
	}
	if insertErr != nil {
		// Roll the uploaded cover back out so it does not orphan
		if coverPath != "" {
			if err := d.Bucket.Delete(r.Context(), coverPath); err != nil {
				d.Log.Warn("Failed to clean up cover after insert failure",
					zap.String("path", coverPath), zap.Error(err))
			}
		}
		WriteError(w, http.StatusInternalServerError, "insert_failed", insertErr.Error(), d.Log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("%s published", req.Type),
		"slug":    slug,
	})
}

func (d Dependencies) insertPublishedPost(r *http.Request, payload map[string]interface{}) error {
	_, err := d.DB.Queries.CreatePost(r.Context(), db.CreatePostParams{
		ID:       ulid.Make().String(),
		Title:    stringField(payload, "title"),
		Slug:     stringField(payload, "slug"),
		Excerpt:  stringField(payload, "excerpt"),
		Content:  stringField(payload, "content"),
		CoverURL: stringField(payload, "cover_url"),
		Category: stringField(payload, "category"),
		ReadTime: intField(payload, "read_time"),
	})
	return err
}

func (d Dependencies) insertPublishedCase(r *http.Request, payload map[string]interface{}) error {
	var metrics []model.CaseMetric
	if raw, ok := payload["metrics"]; ok {
		encoded, err := json.Marshal(raw)
		if err == nil {
			_ = json.Unmarshal(encoded, &metrics)
		}
	}
	_, err := d.DB.Queries.CreateCase(r.Context(), db.CreateCaseParams{
		ID:         ulid.Make().String(),
		Title:      stringField(payload, "title"),
		Slug:       stringField(payload, "slug"),
		Excerpt:    stringField(payload, "excerpt"),
		HeroImage:  stringField(payload, "hero_image"),
		OwnerName:  stringField(payload, "owner_name"),
		OwnerPhoto: stringField(payload, "owner_photo"),
		Metrics:    metrics,
		ContentMD:  stringField(payload, "content_md"),
	})
	return err
}

// decodeEmbeddedImage handles both raw base64 and data URLs, returning
// the bytes and a file extension derived from the declared media type.
func decodeEmbeddedImage(encoded string) ([]byte, string, error) {
	ext := ".png"
	if strings.HasPrefix(encoded, "data:") {
		parts := strings.SplitN(encoded, ",", 2)
		if len(parts) != 2 {
			return nil, "", errors.New("malformed data URL in cover_image")
		}
		switch {
		case strings.Contains(parts[0], "image/jpeg"):
			ext = ".jpg"
		case strings.Contains(parts[0], "image/webp"):
			ext = ".webp"
		case strings.Contains(parts[0], "image/gif"):
			ext = ".gif"
		}
		encoded = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("cover_image is not valid base64: %w", err)
	}
	return data, ext, nil
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func intField(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
