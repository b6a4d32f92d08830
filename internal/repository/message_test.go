package repository

import (
	"context"
	"testing"
	"time"

	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	t.Run("create sets timestamp", func(t *testing.T) {
		msg := &models.Message{Text: "first warble", UserID: alice.ID}
		require.NoError(t, repo.Create(ctx, msg))
		assert.NotZero(t, msg.ID)
		assert.False(t, msg.Timestamp.IsZero())

		fetched, err := repo.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched.User)
		assert.Equal(t, "alice", fetched.User.Username)
	})

	t.Run("unknown owner", func(t *testing.T) {
		err := repo.Create(ctx, &models.Message{Text: "orphan", UserID: 9999})
		assert.True(t, models.IsKind(err, models.CodeNotFound), "got %v", err)
	})

	t.Run("timeline includes followed users only", func(t *testing.T) {
		base := time.Now().UTC()
		require.NoError(t, repo.Create(ctx, &models.Message{Text: "from bob", UserID: bob.ID, Timestamp: base.Add(time.Minute)}))
		require.NoError(t, repo.Create(ctx, &models.Message{Text: "from carol", UserID: carol.ID, Timestamp: base.Add(2 * time.Minute)}))
		testutil.CreateFollow(t, db, alice.ID, bob.ID)

		timeline, err := repo.Timeline(ctx, alice.ID, 10)
		require.NoError(t, err)
		require.Len(t, timeline, 2)
		assert.Equal(t, "from bob", timeline[0].Text)
		assert.Equal(t, "first warble", timeline[1].Text)
	})

	t.Run("list and count by user", func(t *testing.T) {
		msgs, err := repo.ListByUser(ctx, bob.ID, 0)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)

		count, err := repo.CountByUser(ctx, carol.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("delete", func(t *testing.T) {
		msg := testutil.CreateMessage(t, db, carol.ID, "short lived")
		require.NoError(t, repo.Delete(ctx, msg.ID))

		_, err := repo.GetByID(ctx, msg.ID)
		assert.True(t, models.IsKind(err, models.CodeNotFound))
		assert.True(t, models.IsKind(repo.Delete(ctx, msg.ID), models.CodeNotFound))
	})
}

func TestLikeRepository(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	msg := testutil.CreateMessage(t, db, bob.ID, "like me")

	liked, err := repo.Toggle(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	ids, err := repo.LikedMessageIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{msg.ID}, ids)

	msgs, err := repo.ListLikedMessages(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "like me", msgs[0].Text)
	require.NotNil(t, msgs[0].User)
	assert.Equal(t, "bob", msgs[0].User.Username)

	liked, err = repo.Toggle(ctx, alice.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	ids, err = repo.LikedMessageIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = repo.Toggle(ctx, alice.ID, 9999)
	assert.True(t, models.IsKind(err, models.CodeNotFound), "got %v", err)
}
