package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, Event{Type: EventFollow}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(uint, Event) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:1", UserChannel(1))
	assert.Equal(t, "notifications:user:100", UserChannel(100))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct {
		userID uint
		event  Event
	}
	got := make(chan delivery, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(userID uint, event Event) {
		got <- delivery{userID: userID, event: event}
	}))

	require.NoError(t, n.PublishUser(ctx, 7, Event{Type: EventFollow, ActorID: 3, ActorUsername: "alice"}))

	select {
	case d := <-got:
		assert.Equal(t, uint(7), d.userID)
		assert.Equal(t, EventFollow, d.event.Type)
		assert.Equal(t, "alice", d.event.ActorUsername)
		assert.False(t, d.event.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
