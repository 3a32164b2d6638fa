package notify

import (
	"testing"
	"time"

	"botforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCenter_TimeoutElapses(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	center := NewCenterWithClock(clock.now)

	center.Add(model.SeverityInfo, "short lived", "", 100*time.Millisecond)
	require.Len(t, center.List(), 1)

	clock.advance(150 * time.Millisecond)
	assert.Empty(t, center.List())
}

func TestCenter_DefaultTimeout(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	center := NewCenterWithClock(clock.now)

	center.Success("saved")

	clock.advance(4999 * time.Millisecond)
	require.Len(t, center.List(), 1)

	clock.advance(2 * time.Millisecond)
	assert.Empty(t, center.List())
}

func TestCenter_InsertionOrderAndDuplicates(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	center := NewCenterWithClock(clock.now)

	center.Error("load failed", "boom")
	center.Success("created")
	center.Error("load failed", "boom")

	list := center.List()
	require.Len(t, list, 3)
	assert.Equal(t, "load failed", list[0].Message)
	assert.Equal(t, "created", list[1].Message)
	assert.Equal(t, "load failed", list[2].Message)
	assert.NotEqual(t, list[0].ID, list[2].ID)
}

func TestCenter_Dismiss(t *testing.T) {
	center := NewCenter()

	keep := center.Success("keep")
	drop := center.Success("drop")

	center.Dismiss(drop)
	center.Dismiss("no-such-id")

	list := center.List()
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)
}
