package jobs

import (
	"context"
	"fmt"
	"time"

	"botforge/internal/db"
	"botforge/internal/model"
	"botforge/internal/pubsub"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Task type names shared between the scheduling client and the worker
const (
	TaskAgentProvision        = "agent:provision"
	TaskAgentProvisionTimeout = "agent:provision_timeout"
)

type JobServer struct {
	server        *asynq.Server
	client        *asynq.Client
	db            *db.Pool
	bus           *pubsub.Bus
	log           *zap.Logger
	trainingDelay time.Duration
}

func NewJobServer(redisAddr string, dbPool *db.Pool, bus *pubsub.Bus, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server:        server,
		client:        client,
		db:            dbPool,
		bus:           bus,
		log:           log,
		trainingDelay: 5 * time.Second,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskAgentProvision, js.handleProvision)
	mux.HandleFunc(TaskAgentProvisionTimeout, js.handleProvisionTimeout)

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// handleProvision advances a freshly created agent through training and
// attaches the WhatsApp QR payload plus a chat demo token once ready.
func (js *JobServer) handleProvision(ctx context.Context, t *asynq.Task) error {
	agentID := string(t.Payload())

	agent, err := js.db.Queries.GetAgentByID(ctx, agentID)
	if err != nil {
		return fmt.Errorf("failed to get agent: %w", err)
	}

	// Only provision agents still waiting for it
	if agent.Status != model.AgentStatusConfiguring {
		return nil
	}

	if err := js.db.Queries.UpdateAgentStatus(ctx, agentID, model.AgentStatusTraining); err != nil {
		return fmt.Errorf("failed to mark agent training: %w", err)
	}
	_ = js.bus.PublishAgent(agentID, map[string]interface{}{
		"type":    "agent.training",
		"agentId": agentID,
	})

	select {
	case <-time.After(js.trainingDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	qr := "whatsapp://connect?token=" + ulid.Make().String()
	chatDemoToken := ulid.Make().String()

	if err := js.db.Queries.SetAgentReady(ctx, agentID, qr, chatDemoToken); err != nil {
		return fmt.Errorf("failed to mark agent ready: %w", err)
	}

	_ = js.bus.PublishAgent(agentID, map[string]interface{}{
		"type":    "agent.ready",
		"agentId": agentID,
		"qr":      qr,
	})

	js.log.Info("Agent provisioned", zap.String("agent_id", agentID))
	return nil
}

// handleProvisionTimeout is the terminal deadline for provisioning:
// an agent that never reached ready is moved to the error state so the
// caller sees a definite outcome instead of waiting forever.
func (js *JobServer) handleProvisionTimeout(ctx context.Context, t *asynq.Task) error {
	agentID := string(t.Payload())

	timedOut, err := js.db.Queries.MarkAgentTimedOut(ctx, agentID)
	if err != nil {
		return fmt.Errorf("failed to time out agent: %w", err)
	}
	if !timedOut {
		return nil // already ready or connected
	}

	_ = js.bus.PublishAgent(agentID, map[string]interface{}{
		"type":    "agent.error",
		"agentId": agentID,
		"reason":  "provisioning timed out",
	})

	js.log.Warn("Agent provisioning timed out", zap.String("agent_id", agentID))
	return nil
}

// Schedule helpers used by the service layer's job client

func ScheduleProvision(client *asynq.Client, agentID string) error {
	task := asynq.NewTask(TaskAgentProvision, []byte(agentID))
	_, err := client.Enqueue(task, asynq.Queue("critical"))
	return err
}

func ScheduleProvisionTimeout(client *asynq.Client, agentID string, timeout time.Duration) error {
	task := asynq.NewTask(TaskAgentProvisionTimeout, []byte(agentID))
	_, err := client.Enqueue(task, asynq.ProcessIn(timeout))
	return err
}
