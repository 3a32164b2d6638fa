package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus publishes domain events to redis pub/sub and fans them out to
// the websocket hub when one is attached.
type Bus struct {
	rdb   *redis.Client
	log   *zap.Logger
	ctx   context.Context
	wsHub WSHub
}

type WSHub interface {
	Publish(channel string, message map[string]interface{})
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{
		rdb: rdb,
		log: log,
		ctx: context.Background(),
	}
}

// SetWSHub sets the WebSocket hub for event broadcasting
func (b *Bus) SetWSHub(hub WSHub) {
	b.wsHub = hub
}

// PublishAgent publishes an event to an agent's channel
func (b *Bus) PublishAgent(agentID string, event map[string]interface{}) error {
	return b.Publish("agent:"+agentID, event)
}

// PublishContent publishes an event to a content kind's channel
func (b *Bus) PublishContent(kind string, event map[string]interface{}) error {
	return b.Publish("content:"+kind, event)
}

// Publish publishes an event to a channel
func (b *Bus) Publish(channel string, event map[string]interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Local websocket subscribers do not depend on redis; fan out to
	// them regardless of the publish result.
	if b.wsHub != nil {
		b.wsHub.Publish(channel, event)
	}

	if err := b.rdb.Publish(b.ctx, channel, data).Err(); err != nil {
		b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		return err
	}

	b.log.Debug("Published event", zap.String("channel", channel), zap.String("event", string(data)))
	return nil
}
