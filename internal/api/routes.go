package api

import (
	"net/http"

	"botforge/internal/auth"
	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/notify"
	"botforge/internal/publish"
	"botforge/internal/pubsub"
	"botforge/internal/service"
	"botforge/internal/storage"
	"botforge/internal/wizard"
	"botforge/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Dependencies carries the wired services the handlers close over.
// Stores are stateful caches, so there is exactly one of each per process.
type Dependencies struct {
	DB        *db.Pool
	Bus       *pubsub.Bus
	Hub       *ws.Hub
	Log       *zap.Logger
	JWT       *auth.JWTConfig
	Notify    *notify.Center
	Busy      *service.BusyTracker
	Bucket    storage.Bucket
	Validator *publish.Validator
	Sessions  *wizard.Sessions

	Auth      *service.SessionService
	Posts     *service.PostStore
	Cases     *service.CaseStore
	Keys      *service.KeyStore
	Media     *service.MediaStore
	Dashboard *service.DashboardService
	Agents    *service.AgentService
}

// Routes builds the API router; callers mount it under /v1.
func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(d.Log))
	r.Use(d.JWT.Middleware)

	editorial := auth.RequireRole(model.RoleEditor, model.RoleAdmin)
	adminOnly := auth.RequireRole(model.RoleAdmin)

	// Session endpoints
	r.Post("/auth/signup", d.signUp)
	r.Post("/auth/signin", d.signIn)
	r.Post("/auth/signout", d.signOut)
	r.Post("/auth/reset-password", d.resetPassword)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(model.RoleUser, model.RoleEditor, model.RoleAdmin))
		r.Get("/auth/profile", d.getProfile)
		r.Patch("/auth/profile", d.updateProfile)
	})

	// Blog posts
	r.Get("/posts", d.listPosts)
	r.Get("/posts/slug/{slug}", d.getPostBySlug)
	r.Group(func(r chi.Router) {
		r.Use(editorial)
		r.Post("/posts", d.createPost)
		r.Put("/posts/{id}", d.updatePost)
		r.Delete("/posts/{id}", d.deletePost)
	})

	// Case studies
	r.Get("/cases", d.listCases)
	r.Get("/cases/slug/{slug}", d.getCaseBySlug)
	r.Group(func(r chi.Router) {
		r.Use(editorial)
		r.Post("/cases", d.createCase)
		r.Put("/cases/{id}", d.updateCase)
		r.Delete("/cases/{id}", d.deleteCase)
	})

	// Publishing API keys
	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Get("/keys", d.listKeys)
		r.Post("/keys", d.createKey)
		r.Post("/keys/{id}/toggle", d.toggleKey)
		r.Delete("/keys/{id}", d.deleteKey)
	})

	// Media library
	r.Group(func(r chi.Router) {
		r.Use(editorial)
		r.Get("/media", d.listMedia)
		r.Post("/media", d.uploadMedia)
		r.Delete("/media", d.deleteMedia)
	})

	// Dashboard and notifications
	r.Group(func(r chi.Router) {
		r.Use(editorial)
		r.Get("/dashboard/stats", d.dashboardStats)
		r.Get("/notifications", d.listNotifications)
		r.Delete("/notifications/{id}", d.dismissNotification)
	})

	// Agent-creation wizard; anonymous sessions are allowed
	r.Post("/wizard", d.createWizard)
	r.Route("/wizard/{id}", func(r chi.Router) {
		r.Get("/", d.getWizard)
		r.Post("/next", d.wizardNext)
		r.Post("/prev", d.wizardPrev)
		r.Post("/goto", d.wizardGoTo)
		r.Post("/reset", d.wizardReset)
		r.Patch("/form", d.wizardPatchForm)
		r.Post("/flow", d.wizardAddStep)
		r.Put("/flow", d.wizardReorderFlow)
		r.Put("/flow/{stepId}", d.wizardUpdateStep)
		r.Delete("/flow/{stepId}", d.wizardRemoveStep)
		r.Post("/files", d.wizardStageFile)
		r.Post("/create", d.wizardCreateAgent)
	})

	// Agents
	r.Get("/agents/{id}", d.getAgent)
	r.Get("/agents/{id}/events", d.agentEvents)

	// Public functions
	r.Post("/functions/increment-views", d.incrementViews)
	r.Post("/functions/n8n-publish", d.n8nPublish)

	return r
}
