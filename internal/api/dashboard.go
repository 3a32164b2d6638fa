package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := d.Dashboard.Fetch(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (d Dependencies) listNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Notify.List())
}

func (d Dependencies) dismissNotification(w http.ResponseWriter, r *http.Request) {
	d.Notify.Dismiss(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
