// Package notifications publishes social events (follows, likes) to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventFollow   = "follow"
	EventUnfollow = "unfollow"
	EventLike     = "like"
)

// Event is the JSON payload published to a user's channel.
type Event struct {
	Type          string    `json:"type"`
	ActorID       uint      `json:"actor_id"`
	ActorUsername string    `json:"actor_username,omitempty"`
	MessageID     uint      `json:"message_id,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher is the narrow interface services depend on.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, event Event) error
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends event to userID's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, event Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartPatternSubscriber subscribes to every user channel and calls onEvent for
// each decodable payload until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onEvent func(userID uint, event Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var userID uint
				if _, err := fmt.Sscanf(msg.Channel, "notifications:user:%d", &userID); err != nil {
					continue
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("Dropping malformed notification",
						slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("Panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(userID, event)
				}()
			}
		}
	}()

	return nil
}

// UserChannel returns the Redis channel name for userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}
