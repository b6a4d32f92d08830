package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxScope_NeverTouchesCache(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("user:7", `{"id":7,"username":"cached"}`))

	scope := TxScope(ctx)
	assert.True(t, scope.InTx())

	var u cachedUser
	require.NoError(t, scope.Aside(ctx, UserKey(7), &u, UserTTL, func() error {
		u = cachedUser{ID: 7, Username: "fresh"}
		return nil
	}))
	assert.Equal(t, "fresh", u.Username)

	var ghost cachedUser
	require.NoError(t, scope.Aside(ctx, UserKey(8), &ghost, UserTTL, func() error {
		ghost = cachedUser{ID: 8, Username: "uncommitted"}
		return nil
	}))
	assert.False(t, mr.Exists("user:8"))
}

func TestTxScope_ReplaysInvalidationsOnFlush(t *testing.T) {
	mr := setupMiniredis(t)
	pending := &Pending{}
	ctx := WithPending(context.Background(), pending)
	assert.Same(t, pending, PendingFrom(ctx))

	require.NoError(t, mr.Set("user:1:follow_counts", "{}"))
	scope := TxScope(ctx)
	scope.Invalidate(ctx, FollowCountKeys(1, 2)...)
	assert.False(t, mr.Exists("user:1:follow_counts"))

	// a reader repopulates the key before the transaction commits
	require.NoError(t, mr.Set("user:1:follow_counts", `{"followers":0}`))
	pending.Flush(context.Background())
	assert.False(t, mr.Exists("user:1:follow_counts"))
}

func TestScope_ZeroValueReadsThrough(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	var u cachedUser
	require.NoError(t, Scope{}.Aside(ctx, UserKey(9), &u, UserTTL, func() error {
		u = cachedUser{ID: 9, Username: "committed"}
		return nil
	}))
	assert.True(t, mr.Exists("user:9"))
	assert.Nil(t, PendingFrom(ctx))
}
