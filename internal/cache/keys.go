package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	FollowCountKeyPrefix = "user:%d:follow_counts"
)

const (
	UserTTL        = 5 * time.Minute
	FollowCountTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func FollowCountKey(userID uint) string {
	return fmt.Sprintf(FollowCountKeyPrefix, userID)
}

// Invalidate deletes key from the cache, if one is configured.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// UserKeys lists every key cached for userID.
func UserKeys(userID uint) []string {
	return []string{UserKey(userID), FollowCountKey(userID)}
}

// FollowCountKeys lists the counter keys for each of userIDs, typically both
// ends of an edge.
func FollowCountKeys(userIDs ...uint) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, FollowCountKey(id))
	}
	return keys
}
