package wizard

import (
	"testing"

	"botforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	w := New()

	assert.Equal(t, 1, w.Step())

	form := w.Form()
	assert.Equal(t, "professional", form.Tone)
	assert.Equal(t, DefaultNoAnswerPhrase, form.NoAnswer)
	assert.Equal(t, "sell", form.Goal)
	require.Len(t, form.Flow, 1)
	assert.Equal(t, model.DialogStep{ID: 1, Text: "Ask what the customer is looking for"}, form.Flow[0])
}

func TestNextStep_BlockedByValidation(t *testing.T) {
	w := New()

	// Step 1 has no predicate
	assert.True(t, w.NextStep())
	assert.Equal(t, 2, w.Step())

	// Step 2 requires both names at 3+ characters
	assert.False(t, w.NextStep())
	assert.Equal(t, 2, w.Step())

	name := "Acme"
	bot := "Al"
	w.ApplyPatch(FormPatch{CompanyName: &name, BotName: &bot})
	assert.False(t, w.NextStep())

	bot = "Ally"
	w.ApplyPatch(FormPatch{BotName: &bot})
	assert.True(t, w.NextStep())
	assert.Equal(t, 3, w.Step())
}

func TestStepValid_Table(t *testing.T) {
	tests := []struct {
		name  string
		setup func(w *Wizard)
		step  int
		want  bool
	}{
		{
			name:  "step 3 defaults pass",
			setup: func(w *Wizard) {},
			step:  3,
			want:  true,
		},
		{
			name: "step 3 empty goal fails",
			setup: func(w *Wizard) {
				empty := ""
				w.ApplyPatch(FormPatch{Goal: &empty})
			},
			step: 3,
			want: false,
		},
		{
			name:  "step 4 single default step fails",
			setup: func(w *Wizard) {},
			step:  4,
			want:  false,
		},
		{
			name: "step 4 three filled steps pass",
			setup: func(w *Wizard) {
				w.UpdateDialogStep(w.AddDialogStep().ID, "Offer a demo")
				w.UpdateDialogStep(w.AddDialogStep().ID, "Collect contact details")
			},
			step: 4,
			want: true,
		},
		{
			name: "step 4 whitespace-only step fails",
			setup: func(w *Wizard) {
				w.UpdateDialogStep(w.AddDialogStep().ID, "Offer a demo")
				w.UpdateDialogStep(w.AddDialogStep().ID, "   ")
			},
			step: 4,
			want: false,
		},
		{
			name:  "step 5 always passes",
			setup: func(w *Wizard) {},
			step:  5,
			want:  true,
		},
		{
			name:  "step 7 no sources fails",
			setup: func(w *Wizard) {},
			step:  7,
			want:  false,
		},
		{
			name: "step 7 site alone passes",
			setup: func(w *Wizard) {
				site := "https://acme.example"
				w.ApplyPatch(FormPatch{Site: &site})
			},
			step: 7,
			want: true,
		},
		{
			name: "step 7 staged file alone passes",
			setup: func(w *Wizard) {
				w.StageFile("faq.pdf", []byte("pdf"))
			},
			step: 7,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			tt.setup(w)
			require.True(t, w.GoToStep(tt.step))
			assert.Equal(t, tt.want, w.StepValid())
		})
	}
}

func TestGoToStep_Bounds(t *testing.T) {
	w := New()

	assert.False(t, w.GoToStep(0))
	assert.False(t, w.GoToStep(MaxStep+1))
	assert.True(t, w.GoToStep(MaxStep))
	assert.Equal(t, MaxStep, w.Step())

	// Backwards is always allowed
	assert.True(t, w.PrevStep())
	assert.Equal(t, MaxStep-1, w.Step())

	w.GoToStep(1)
	assert.False(t, w.PrevStep())
}

func TestDialogStepIDs_NeverReused(t *testing.T) {
	w := New()

	s2 := w.AddDialogStep()
	s3 := w.AddDialogStep()
	assert.Equal(t, 2, s2.ID)
	assert.Equal(t, 3, s3.ID)

	w.RemoveDialogStep(s3.ID)
	s4 := w.AddDialogStep()
	assert.Equal(t, 4, s4.ID, "removed ids must not come back")

	w.RemoveDialogStep(1)
	w.RemoveDialogStep(s2.ID)
	w.RemoveDialogStep(s4.ID)
	next := w.AddDialogStep()
	assert.Equal(t, 1, next.ID, "empty flow restarts numbering")
}

func TestReorderDialogSteps_Wholesale(t *testing.T) {
	w := New()
	w.UpdateDialogStep(w.AddDialogStep().ID, "b")
	w.UpdateDialogStep(w.AddDialogStep().ID, "c")

	flow := w.Form().Flow
	reordered := []model.DialogStep{flow[2], flow[0], flow[1]}
	w.ReorderDialogSteps(reordered)

	assert.Equal(t, reordered, w.Form().Flow)
}

func TestReset_RestoresDefaults(t *testing.T) {
	w := New()
	name := "Acme Corp"
	w.ApplyPatch(FormPatch{CompanyName: &name})
	w.AddDialogStep()
	w.StageFile("faq.pdf", []byte("pdf"))
	w.SetCreatedAgentID("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	w.GoToStep(5)

	w.Reset()

	assert.Equal(t, 1, w.Step())
	assert.Empty(t, w.StagedFiles())
	assert.Empty(t, w.CreatedAgentID())

	form := w.Form()
	assert.Empty(t, form.CompanyName)
	require.Len(t, form.Flow, 1)
	assert.Equal(t, 1, form.Flow[0].ID)
}

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions()

	id, w := s.Create()
	require.NotEmpty(t, id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Same(t, w, got)

	id2, _ := s.Create()
	assert.NotEqual(t, id, id2)

	s.Delete(id)
	_, ok = s.Get(id)
	assert.False(t, ok)
}
