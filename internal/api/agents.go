package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (d Dependencies) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	agent, err := d.Agents.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			WriteError(w, http.StatusNotFound, "not_found", "Agent not found", d.Log)
			return
		}
		WriteError(w, http.StatusInternalServerError, "fetch_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// agentEvents subscribes the caller to an agent's lifecycle channel.
// Provisioning progress (training, ready, error) arrives as JSON frames.
func (d Dependencies) agentEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d.Hub.Serve(w, r, "agent:"+id)
}
