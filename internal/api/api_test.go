package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botforge/internal/auth"
	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/notify"
	"botforge/internal/service"
	"botforge/internal/wizard"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return Routes(Dependencies{
		Log:      zap.NewNop(),
		JWT:      auth.NewJWTConfig("test-secret", time.Hour),
		Notify:   notify.NewCenter(),
		Busy:     service.NewBusyTracker(),
		Sessions: wizard.NewSessions(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) wizardState {
	t.Helper()
	var state wizardState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	return state
}

func TestWizardEndpoints_SessionFlow(t *testing.T) {
	h := testRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/wizard", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	state := decodeState(t, rec)
	require.NotEmpty(t, state.SessionID)
	assert.Equal(t, 1, state.Step)
	assert.Equal(t, "professional", state.Form.Tone)

	base := "/wizard/" + state.SessionID

	// Step 1 advances freely
	rec = doJSON(t, h, http.MethodPost, base+"/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeState(t, rec).Step)

	// Step 2 blocks until both names are long enough
	rec = doJSON(t, h, http.MethodPost, base+"/next", nil)
	assert.Equal(t, 2, decodeState(t, rec).Step)

	rec = doJSON(t, h, http.MethodPatch, base+"/form", map[string]string{
		"companyName": "Acme Corp",
		"botName":     "Ally",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, base+"/next", nil)
	assert.Equal(t, 3, decodeState(t, rec).Step)

	rec = doJSON(t, h, http.MethodPost, base+"/reset", nil)
	state = decodeState(t, rec)
	assert.Equal(t, 1, state.Step)
	assert.Len(t, state.Form.Flow, 1)
}

func TestWizardEndpoints_DialogFlow(t *testing.T) {
	h := testRouter(t)

	state := decodeState(t, doJSON(t, h, http.MethodPost, "/wizard", nil))
	base := "/wizard/" + state.SessionID

	rec := doJSON(t, h, http.MethodPost, base+"/flow", nil)
	state = decodeState(t, rec)
	require.Len(t, state.Form.Flow, 2)
	assert.Equal(t, 2, state.Form.Flow[1].ID)

	rec = doJSON(t, h, http.MethodPut, base+"/flow/2", map[string]string{"text": "Offer a demo"})
	state = decodeState(t, rec)
	assert.Equal(t, "Offer a demo", state.Form.Flow[1].Text)

	rec = doJSON(t, h, http.MethodDelete, base+"/flow/1", nil)
	state = decodeState(t, rec)
	require.Len(t, state.Form.Flow, 1)
	assert.Equal(t, 2, state.Form.Flow[0].ID)
}

func TestWizardEndpoints_UnknownSession(t *testing.T) {
	h := testRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/wizard/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWizardCreate_RejectedBeforeFinalStep(t *testing.T) {
	h := testRouter(t)

	state := decodeState(t, doJSON(t, h, http.MethodPost, "/wizard", nil))
	rec := doJSON(t, h, http.MethodPost, "/wizard/"+state.SessionID+"/create", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIncrementViews_Validation(t *testing.T) {
	h := testRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/functions/increment-views",
		map[string]string{"table": "users", "slug": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/functions/increment-views",
		map[string]string{"table": "posts"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestN8NPublish_MissingKey(t *testing.T) {
	h := testRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/functions/n8n-publish",
		map[string]interface{}{"type": "post", "payload": map[string]interface{}{}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGatedRoutes_RequireSession(t *testing.T) {
	h := testRouter(t)

	for _, path := range []string{"/dashboard/stats", "/notifications", "/keys", "/media"} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestGatedRoutes_RejectInsufficientRole(t *testing.T) {
	jwtCfg := auth.NewJWTConfig("test-secret", time.Hour)
	h := Routes(Dependencies{
		Log:      zap.NewNop(),
		JWT:      jwtCfg,
		Notify:   notify.NewCenter(),
		Busy:     service.NewBusyTracker(),
		Sessions: wizard.NewSessions(),
	})

	token, err := jwtCfg.IssueToken("u1", "user")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotifications_ListAndDismiss(t *testing.T) {
	jwtCfg := auth.NewJWTConfig("test-secret", time.Hour)
	center := notify.NewCenter()
	h := Routes(Dependencies{
		Log:      zap.NewNop(),
		JWT:      jwtCfg,
		Notify:   center,
		Busy:     service.NewBusyTracker(),
		Sessions: wizard.NewSessions(),
	})

	id := center.Success("Post created")

	token, err := jwtCfg.IssueToken("u1", "editor")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []notify.Notification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].ID)

	req = httptest.NewRequest(http.MethodDelete, "/notifications/"+id, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, center.List())
}

func multipartFile(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestWizardStageFile_KeepsFullContents(t *testing.T) {
	h := testRouter(t)
	state := decodeState(t, doJSON(t, h, http.MethodPost, "/wizard", nil))

	payload := bytes.Repeat([]byte("a"), 4096)
	body, contentType := multipartFile(t, "faq.pdf", payload)

	req := httptest.NewRequest(http.MethodPost, "/wizard/"+state.SessionID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	state = decodeState(t, rec)
	require.Len(t, state.Files, 1)
	assert.Equal(t, len(payload), state.Files[0].Size, "staged size must match the uploaded file")
}

func TestWizardStageFile_RejectsOversizedUpload(t *testing.T) {
	h := testRouter(t)
	state := decodeState(t, doJSON(t, h, http.MethodPost, "/wizard", nil))

	body, contentType := multipartFile(t, "huge.pdf", bytes.Repeat([]byte("a"), maxUploadSize+1))

	req := httptest.NewRequest(http.MethodPost, "/wizard/"+state.SessionID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// Nothing truncated gets staged
	state = decodeState(t, doJSON(t, h, http.MethodGet, "/wizard/"+state.SessionID, nil))
	assert.Empty(t, state.Files)
}

func TestUploadMedia_RejectsOversizedUpload(t *testing.T) {
	jwtCfg := auth.NewJWTConfig("test-secret", time.Hour)
	h := Routes(Dependencies{
		Log:      zap.NewNop(),
		JWT:      jwtCfg,
		Notify:   notify.NewCenter(),
		Busy:     service.NewBusyTracker(),
		Sessions: wizard.NewSessions(),
	})

	token, err := jwtCfg.IssueToken("u1", "editor")
	require.NoError(t, err)

	body, contentType := multipartFile(t, "huge.png", bytes.Repeat([]byte("a"), maxUploadSize+1))
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// fakePostSource backs the post store without a database
type fakePostSource struct {
	post model.Post
}

func (f fakePostSource) ListPosts(ctx context.Context) ([]model.Post, error) {
	return []model.Post{f.post}, nil
}

func (f fakePostSource) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	if slug == f.post.Slug {
		return f.post, nil
	}
	return model.Post{}, pgx.ErrNoRows
}

func (f fakePostSource) CreatePost(ctx context.Context, p db.CreatePostParams) (model.Post, error) {
	return model.Post{}, errors.New("not implemented")
}

func (f fakePostSource) UpdatePost(ctx context.Context, id string, p db.UpdatePostParams) (model.Post, error) {
	return model.Post{}, errors.New("not implemented")
}

func (f fakePostSource) DeletePost(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func TestGetPostBySlug_RendersMarkdown(t *testing.T) {
	source := fakePostSource{post: model.Post{
		ID:      "p1",
		Slug:    "launch",
		Content: "## Results\n\nIt worked.",
	}}
	center := notify.NewCenter()
	busy := service.NewBusyTracker()
	h := Routes(Dependencies{
		Log:      zap.NewNop(),
		JWT:      auth.NewJWTConfig("test-secret", time.Hour),
		Notify:   center,
		Busy:     busy,
		Sessions: wizard.NewSessions(),
		Posts:    service.NewPostStore(source, center, busy, zap.NewNop()),
	})

	rec := doJSON(t, h, http.MethodGet, "/posts/slug/launch", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, "launch", detail["slug"])
	html, _ := detail["contentHtml"].(string)
	assert.Contains(t, html, "<h2")
	assert.Contains(t, html, "It worked.")

	rec = doJSON(t, h, http.MethodGet, "/posts/slug/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
