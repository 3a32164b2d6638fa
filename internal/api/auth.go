package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"botforge/internal/auth"
	"botforge/internal/model"
	"botforge/internal/service"

	"github.com/jackc/pgx/v5"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

type sessionResponse struct {
	User  model.UserProfile `json:"user"`
	Token string            `json:"token"`
}

func (d Dependencies) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Email and password are required", d.Log)
		return
	}

	profile, token, err := d.Auth.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "signup_failed", err.Error(), d.Log)
		return
	}

	// Sign-up chains straight into a live session
	writeJSON(w, http.StatusCreated, sessionResponse{User: profile, Token: token})
}

func (d Dependencies) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	profile, token, err := d.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", err.Error(), d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "signin_failed", err.Error(), d.Log)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{User: profile, Token: token})
}

// signOut exists for symmetry; sessions are stateless JWTs and end when
// the client discards the token.
func (d Dependencies) signOut(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (d Dependencies) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Email is required", d.Log)
		return
	}

	if err := d.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		WriteError(w, http.StatusInternalServerError, "reset_failed", err.Error(), d.Log)
		return
	}

	// Same response whether or not the email exists
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (d Dependencies) getProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	profile, err := d.Auth.Profile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "User not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "profile_failed", err.Error(), d.Log)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (d Dependencies) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var meta map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	profile, err := d.Auth.UpdateProfile(r.Context(), userID, meta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "User not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "update_failed", err.Error(), d.Log)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
