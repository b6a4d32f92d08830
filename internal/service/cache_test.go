package service

import (
	"context"
	"errors"
	"testing"

	"warbler/internal/cache"
	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestUserService_DeleteUserRefreshesFollowerCounts(t *testing.T) {
	withMiniredis(t)
	s := newServices(t)
	ctx := context.Background()

	alice, err := s.users.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "password"})
	require.NoError(t, err)
	bob, err := s.users.Signup(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "password"})
	require.NoError(t, err)
	require.NoError(t, s.follows.Follow(ctx, bob.ID, alice.ID))

	profile, err := s.users.Profile(ctx, bob.ID, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), profile.Following)

	require.NoError(t, s.users.DeleteUser(ctx, alice.ID))

	var edges int64
	require.NoError(t, s.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)

	profile, err = s.users.Profile(ctx, bob.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, edges, profile.Following)
}

func TestUserService_RolledBackSignupIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	s := newServices(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	var ghostID uint
	err := database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		ghost, err := users.Signup(ctx, SignupInput{Username: "ghost", Email: "ghost@example.com", Password: "password"})
		if err != nil {
			return err
		}
		ghostID = ghost.ID
		if _, err := users.GetUser(ctx, ghost.ID); err != nil {
			return err
		}
		if _, err := users.Profile(ctx, ghost.ID, 10); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	require.NotZero(t, ghostID)

	assert.False(t, mr.Exists(cache.UserKey(ghostID)))
	assert.False(t, mr.Exists(cache.FollowCountKey(ghostID)))

	_, err = s.users.GetUser(ctx, ghostID)
	assert.True(t, models.IsKind(err, models.CodeNotFound), "got %v", err)
}

func TestFollowService_CommittedFollowDropsCountsCachedMidTransaction(t *testing.T) {
	mr := withMiniredis(t)
	s := newServices(t)
	ctx := context.Background()

	alice, err := s.users.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "password"})
	require.NoError(t, err)
	bob, err := s.users.Signup(ctx, SignupInput{Username: "bob", Email: "bob@example.com", Password: "password"})
	require.NoError(t, err)

	err = database.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.follows.WithTx(tx).Follow(ctx, bob.ID, alice.ID); err != nil {
			return err
		}
		// a reader outside the transaction caches the pre-commit counters
		return mr.Set(cache.FollowCountKey(alice.ID), `{"followers":0,"following":0}`)
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.FollowCountKey(alice.ID)))

	counts, err := s.follows.Counts(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Followers)
}
