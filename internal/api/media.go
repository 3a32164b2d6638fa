package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"botforge/internal/util"
)

const maxUploadSize = 20 << 20 // 20 MiB

var errFileTooLarge = errors.New("file exceeds the 20 MiB upload limit")

// readUpload reads a whole multipart file, rejecting anything over
// maxUploadSize instead of silently truncating it.
func readUpload(file io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadSize {
		return nil, errFileTooLarge
	}
	return data, nil
}

func (d Dependencies) listMedia(w http.ResponseWriter, r *http.Request) {
	if err := d.Media.Fetch(r.Context()); err != nil {
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, d.Media.List())
}

func (d Dependencies) uploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form", d.Log)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "A file field is required", d.Log)
		return
	}
	defer file.Close()

	data, err := readUpload(file)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "upload_failed", err.Error(), d.Log)
		return
	}

	// Prefix with a random id; the bucket refuses overwrites
	name := util.RandomID(8) + "-" + path.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")

	media, err := d.Media.Upload(r.Context(), name, contentType, data)
	if err != nil {
		if strings.Contains(err.Error(), "unsupported media type") {
			WriteError(w, http.StatusUnsupportedMediaType, "unsupported_type", err.Error(), d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "upload_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, media)
}

func (d Dependencies) deleteMedia(w http.ResponseWriter, r *http.Request) {
	objectPath := r.URL.Query().Get("path")
	if objectPath == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "A path query parameter is required", d.Log)
		return
	}

	if err := d.Media.Delete(r.Context(), objectPath); err != nil {
		WriteError(w, http.StatusInternalServerError, "delete_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
