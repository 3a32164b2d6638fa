package wizard

import (
	"strings"
	"sync"
	"unicode/utf8"

	"botforge/internal/model"
)

// MaxStep is the last step of the agent-creation wizard
const MaxStep = 7

// DefaultNoAnswerPhrase is the baked-in fallback reply
const DefaultNoAnswerPhrase = "I'll need to check with a human colleague about that. Can I help with something else?"

// StagedFile is a document staged for upload at agent creation
type StagedFile struct {
	Name string
	Data []byte
}

// Form is the draft aggregate flattened into an Agent at submission
type Form struct {
	CompanyName  string             `json:"companyName"`
	BotName      string             `json:"botName"`
	Tone         string             `json:"tone"`
	NoAnswer     string             `json:"noAnswer"`
	Goal         string             `json:"goal"`
	Flow         []model.DialogStep `json:"flow"`
	IG           string             `json:"ig"`
	Site         string             `json:"site"`
	Integrations model.Integrations `json:"integrations"`
	Deployment   model.Deployment   `json:"deployment"`
}

func defaultForm() Form {
	return Form{
		Tone:     "professional",
		NoAnswer: DefaultNoAnswerPhrase,
		Goal:     "sell",
		Flow:     []model.DialogStep{{ID: 1, Text: "Ask what the customer is looking for"}},
		Deployment: model.Deployment{
			Schedule:      "always",
			Notifications: true,
			Handoff:       "auto",
			CustomSchedule: model.CustomSchedule{
				Weekdays:  []int{1, 2, 3, 4, 5},
				StartHour: 9,
				EndHour:   18,
			},
		},
	}
}

// Wizard is the multi-step agent-creation form state machine
type Wizard struct {
	mu    sync.Mutex
	step  int
	form  Form
	files []StagedFile

	createdAgentID string
}

// New returns a wizard at step 1 with default field values
func New() *Wizard {
	return &Wizard{step: 1, form: defaultForm()}
}

// Step returns the current step counter
func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Form returns a copy of the current draft form
func (w *Wizard) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.copyForm()
}

// StagedFiles returns the staged documents in staging order
func (w *Wizard) StagedFiles() []StagedFile {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]StagedFile, len(w.files))
	copy(out, w.files)
	return out
}

// CreatedAgentID returns the agent id captured at submission, if any
func (w *Wizard) CreatedAgentID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.createdAgentID
}

// SetCreatedAgentID records the id of the agent produced by this wizard
func (w *Wizard) SetCreatedAgentID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.createdAgentID = id
}

// NextStep advances to the next step if the current step's validation
// predicate holds. Otherwise it is a silent no-op; the returned flag
// reports whether the counter moved.
func (w *Wizard) NextStep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step >= MaxStep || !w.stepValid() {
		return false
	}
	w.step++
	return true
}

// PrevStep moves back one step; always permitted above step 1
func (w *Wizard) PrevStep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step <= 1 {
		return false
	}
	w.step--
	return true
}

// GoToStep jumps directly to any step in range, bypassing intermediate
// validation. Out-of-range targets are a no-op.
func (w *Wizard) GoToStep(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if step < 1 || step > MaxStep {
		return false
	}
	w.step = step
	return true
}

// Reset returns to step 1 and restores all defaults, clearing staged
// files and the created-agent id.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.step = 1
	w.form = defaultForm()
	w.files = nil
	w.createdAgentID = ""
}

// StepValid reports whether the current step's validation predicate holds
func (w *Wizard) StepValid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stepValid()
}

// stepValid holds the per-step predicate table; callers must hold mu
func (w *Wizard) stepValid() bool {
	switch w.step {
	case 2: // company and bot name
		return utf8.RuneCountInString(w.form.CompanyName) >= 3 &&
			utf8.RuneCountInString(w.form.BotName) >= 3

	case 3: // tone, fallback phrase, and goal
		return w.form.Tone != "" && w.form.NoAnswer != "" && w.form.Goal != ""

	case 4: // dialog flow
		if len(w.form.Flow) < 3 {
			return false
		}
		for _, step := range w.form.Flow {
			if strings.TrimSpace(step.Text) == "" {
				return false
			}
		}
		return true

	case 7: // at least one data source
		return strings.TrimSpace(w.form.IG) != "" ||
			strings.TrimSpace(w.form.Site) != "" ||
			len(w.files) > 0

	default:
		return true
	}
}

// FormPatch is a partial update of the draft form; nil fields are
// left unchanged.
type FormPatch struct {
	CompanyName  *string             `json:"companyName,omitempty"`
	BotName      *string             `json:"botName,omitempty"`
	Tone         *string             `json:"tone,omitempty"`
	NoAnswer     *string             `json:"noAnswer,omitempty"`
	Goal         *string             `json:"goal,omitempty"`
	IG           *string             `json:"ig,omitempty"`
	Site         *string             `json:"site,omitempty"`
	Integrations *model.Integrations `json:"integrations,omitempty"`
	Deployment   *model.Deployment   `json:"deployment,omitempty"`
}

// ApplyPatch merges a partial form update into the draft
func (w *Wizard) ApplyPatch(p FormPatch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p.CompanyName != nil {
		w.form.CompanyName = *p.CompanyName
	}
	if p.BotName != nil {
		w.form.BotName = *p.BotName
	}
	if p.Tone != nil {
		w.form.Tone = *p.Tone
	}
	if p.NoAnswer != nil {
		w.form.NoAnswer = *p.NoAnswer
	}
	if p.Goal != nil {
		w.form.Goal = *p.Goal
	}
	if p.IG != nil {
		w.form.IG = *p.IG
	}
	if p.Site != nil {
		w.form.Site = *p.Site
	}
	if p.Integrations != nil {
		w.form.Integrations = *p.Integrations
	}
	if p.Deployment != nil {
		w.form.Deployment = *p.Deployment
	}
}

// AddDialogStep appends an empty dialog step. The new id is one past
// the current maximum, so ids are never reused within a session.
func (w *Wizard) AddDialogStep() model.DialogStep {
	w.mu.Lock()
	defer w.mu.Unlock()

	newID := 1
	for _, step := range w.form.Flow {
		if step.ID >= newID {
			newID = step.ID + 1
		}
	}
	step := model.DialogStep{ID: newID}
	w.form.Flow = append(w.form.Flow, step)
	return step
}

// RemoveDialogStep deletes a step by id
func (w *Wizard) RemoveDialogStep(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.form.Flow[:0]
	for _, step := range w.form.Flow {
		if step.ID != id {
			kept = append(kept, step)
		}
	}
	w.form.Flow = kept
}

// UpdateDialogStep replaces the text of a step; unknown ids are a no-op
func (w *Wizard) UpdateDialogStep(id int, text string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.form.Flow {
		if w.form.Flow[i].ID == id {
			w.form.Flow[i].Text = text
			return true
		}
	}
	return false
}

// ReorderDialogSteps replaces the whole ordered sequence wholesale;
// there is no partial-move primitive.
func (w *Wizard) ReorderDialogSteps(order []model.DialogStep) {
	w.mu.Lock()
	defer w.mu.Unlock()

	flow := make([]model.DialogStep, len(order))
	copy(flow, order)
	w.form.Flow = flow
}

// StageFile stages a document for upload at agent creation
func (w *Wizard) StageFile(name string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = append(w.files, StagedFile{Name: name, Data: data})
}

func (w *Wizard) copyForm() Form {
	form := w.form
	form.Flow = make([]model.DialogStep, len(w.form.Flow))
	copy(form.Flow, w.form.Flow)
	weekdays := make([]int, len(w.form.Deployment.CustomSchedule.Weekdays))
	copy(weekdays, w.form.Deployment.CustomSchedule.Weekdays)
	form.Deployment.CustomSchedule.Weekdays = weekdays
	return form
}
