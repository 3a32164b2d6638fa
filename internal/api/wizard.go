package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strconv"

	"botforge/internal/auth"
	"botforge/internal/model"
	"botforge/internal/wizard"

	"github.com/go-chi/chi/v5"
)

type stagedFileInfo struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// wizardState is the full session view returned by every wizard endpoint
type wizardState struct {
	SessionID      string           `json:"sessionId"`
	Step           int              `json:"step"`
	StepValid      bool             `json:"stepValid"`
	Form           wizard.Form      `json:"form"`
	Files          []stagedFileInfo `json:"files"`
	CreatedAgentID string           `json:"createdAgentId,omitempty"`
}

func stateOf(id string, w *wizard.Wizard) wizardState {
	staged := w.StagedFiles()
	files := make([]stagedFileInfo, 0, len(staged))
	for _, f := range staged {
		files = append(files, stagedFileInfo{Name: f.Name, Size: len(f.Data)})
	}
	return wizardState{
		SessionID:      id,
		Step:           w.Step(),
		StepValid:      w.StepValid(),
		Form:           w.Form(),
		Files:          files,
		CreatedAgentID: w.CreatedAgentID(),
	}
}

// session resolves the wizard session from the URL, writing a 404 when
// it is unknown or has expired.
func (d Dependencies) session(w http.ResponseWriter, r *http.Request) (string, *wizard.Wizard, bool) {
	id := chi.URLParam(r, "id")
	wz, ok := d.Sessions.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "session_not_found", "Wizard session not found or expired", d.Log)
		return "", nil, false
	}
	return id, wz, true
}

func (d Dependencies) createWizard(w http.ResponseWriter, r *http.Request) {
	id, wz := d.Sessions.Create()
	writeJSON(w, http.StatusCreated, stateOf(id, wz))
}

func (d Dependencies) getWizard(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

// wizardNext is a silent no-op when the current step fails validation;
// the caller sees the unchanged step counter in the response.
func (d Dependencies) wizardNext(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}
	wz.NextStep()
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardPrev(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}
	wz.PrevStep()
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardGoTo(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	wz.GoToStep(req.Step)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardReset(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}
	wz.Reset()
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardPatchForm(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	var patch wizard.FormPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	wz.ApplyPatch(patch)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardAddStep(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}
	wz.AddDialogStep()
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardUpdateStep(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	stepID, err := strconv.Atoi(chi.URLParam(r, "stepId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid step id", d.Log)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	wz.UpdateDialogStep(stepID, req.Text)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardRemoveStep(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	stepID, err := strconv.Atoi(chi.URLParam(r, "stepId"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid step id", d.Log)
		return
	}

	wz.RemoveDialogStep(stepID)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardReorderFlow(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	var order []model.DialogStep
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	wz.ReorderDialogSteps(order)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

func (d Dependencies) wizardStageFile(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

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
		WriteError(w, http.StatusInternalServerError, "stage_failed", err.Error(), d.Log)
		return
	}

	wz.StageFile(path.Base(header.Filename), data)
	writeJSON(w, http.StatusOK, stateOf(id, wz))
}

// wizardCreateAgent is the terminal step: it flattens the draft into an
// agent and hands off to background provisioning.
func (d Dependencies) wizardCreateAgent(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := d.session(w, r)
	if !ok {
		return
	}

	if wz.Step() != wizard.MaxStep || !wz.StepValid() {
		WriteError(w, http.StatusBadRequest, "wizard_incomplete",
			"The wizard must be on its final step with at least one data source", d.Log)
		return
	}

	var userID *string
	if uid := auth.GetUserID(r.Context()); uid != "" {
		userID = &uid
	}

	agent, err := d.Agents.Create(r.Context(), userID, wz.Form(), wz.StagedFiles())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", err.Error(), d.Log)
		return
	}
	wz.SetCreatedAgentID(agent.ID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"agent": agent,
		"state": stateOf(id, wz),
	})
}
