package service

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/notify"
	"botforge/internal/wizard"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const BusyAgentCreate = "agent.create"

// AgentQueries is the slice of the query layer the agent service needs
type AgentQueries interface {
	CreateAgent(ctx context.Context, a db.CreateAgentParams) (model.Agent, error)
	GetAgentByID(ctx context.Context, id string) (model.Agent, error)
	UpdateAgentDocsPaths(ctx context.Context, id string, paths []string) error
}

// DocUploader stores agent knowledge documents
type DocUploader interface {
	Put(ctx context.Context, objectPath string, reader io.Reader) error
}

// AgentEvents publishes agent lifecycle events
type AgentEvents interface {
	PublishAgent(agentID string, event map[string]interface{}) error
}

// AgentService turns a completed wizard draft into a stored agent and
// kicks off asynchronous provisioning.
type AgentService struct {
	queries          AgentQueries
	uploader         DocUploader
	jobs             JobClient
	events           AgentEvents
	notify           *notify.Center
	busy             *BusyTracker
	log              *zap.Logger
	provisionTimeout time.Duration
}

func NewAgentService(
	queries AgentQueries,
	uploader DocUploader,
	jobClient JobClient,
	events AgentEvents,
	center *notify.Center,
	busy *BusyTracker,
	log *zap.Logger,
	provisionTimeout time.Duration,
) *AgentService {
	return &AgentService{
		queries:          queries,
		uploader:         uploader,
		jobs:             jobClient,
		events:           events,
		notify:           center,
		busy:             busy,
		log:              log,
		provisionTimeout: provisionTimeout,
	}
}

// Create flattens the wizard form into an agent row, uploads the staged
// knowledge documents, and schedules provisioning. userID is nil for
// anonymous sessions; the agent is created either way.
//
// Document uploads are best-effort: a failed upload is logged and
// skipped, and the agent keeps the documents that did make it.
func (s *AgentService) Create(ctx context.Context, userID *string, form wizard.Form, files []wizard.StagedFile) (model.Agent, error) {
	s.busy.Begin(BusyAgentCreate)
	defer s.busy.End(BusyAgentCreate)

	agent, err := s.queries.CreateAgent(ctx, db.CreateAgentParams{
		ID:             ulid.Make().String(),
		UserID:         userID,
		CompanyName:    form.CompanyName,
		BotName:        form.BotName,
		Tone:           form.Tone,
		NoAnswerPhrase: form.NoAnswer,
		Goal:           form.Goal,
		DialogFlow:     form.Flow,
		IGURL:          form.IG,
		WebsiteURL:     form.Site,
		Status:         model.AgentStatusConfiguring,
		Metadata: &model.AgentMetadata{
			Integrations: form.Integrations,
			Deployment:   form.Deployment,
		},
	})
	if err != nil {
		s.log.Error("Failed to create agent", zap.Error(err))
		s.notify.Error("Failed to create agent", err.Error())
		return model.Agent{}, err
	}

	docsPaths := make([]string, 0, len(files))
	for _, f := range files {
		objectPath := path.Join("agents", agent.ID, "docs", f.Name)
		if err := s.uploader.Put(ctx, objectPath, bytes.NewReader(f.Data)); err != nil {
			s.log.Warn("Skipping failed document upload",
				zap.String("agent_id", agent.ID),
				zap.String("file", f.Name),
				zap.Error(err))
			continue
		}
		docsPaths = append(docsPaths, objectPath)
	}
	if len(docsPaths) > 0 {
		if err := s.queries.UpdateAgentDocsPaths(ctx, agent.ID, docsPaths); err != nil {
			s.log.Error("Failed to attach document paths", zap.String("agent_id", agent.ID), zap.Error(err))
		} else {
			agent.DocsPaths = docsPaths
		}
	}

	if err := s.jobs.ScheduleProvision(agent.ID); err != nil {
		s.log.Error("Failed to schedule provisioning", zap.String("agent_id", agent.ID), zap.Error(err))
		s.notify.Error("Agent created but provisioning could not start", err.Error())
	}
	if err := s.jobs.ScheduleProvisionTimeout(agent.ID, s.provisionTimeout); err != nil {
		s.log.Error("Failed to schedule provisioning deadline", zap.String("agent_id", agent.ID), zap.Error(err))
	}

	_ = s.events.PublishAgent(agent.ID, map[string]interface{}{
		"type":    "agent.created",
		"agentId": agent.ID,
		"status":  string(agent.Status),
	})

	s.notify.Success("Agent created")
	return agent, nil
}

// Get loads one agent by id
func (s *AgentService) Get(ctx context.Context, id string) (model.Agent, error) {
	return s.queries.GetAgentByID(ctx, id)
}
