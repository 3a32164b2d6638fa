package pubsub

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHub struct {
	channels []string
	events   []map[string]interface{}
}

func (h *recordingHub) Publish(channel string, message map[string]interface{}) {
	h.channels = append(h.channels, channel)
	h.events = append(h.events, message)
}

func TestPublish_FansOutToHubWhenRedisIsDown(t *testing.T) {
	// Nothing listens on this port; every publish fails
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	bus := New(rdb, zap.NewNop())
	hub := &recordingHub{}
	bus.SetWSHub(hub)

	err := bus.PublishAgent("a1", map[string]interface{}{"type": "agent.ready"})
	require.Error(t, err)

	require.Len(t, hub.events, 1, "local subscribers must still see the event")
	assert.Equal(t, "agent:a1", hub.channels[0])
	assert.Equal(t, "agent.ready", hub.events[0]["type"])
}

func TestPublish_ChannelNaming(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()

	bus := New(rdb, zap.NewNop())
	hub := &recordingHub{}
	bus.SetWSHub(hub)

	_ = bus.PublishContent("posts", map[string]interface{}{"type": "post.created"})
	require.Len(t, hub.channels, 1)
	assert.Equal(t, "content:posts", hub.channels[0])
}
