package repository

import (
	"context"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowCounts is the cached pair of counters shown on a profile.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// FollowRepository manages directed follow edges between users.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	Followers(ctx context.Context, userID uint) ([]models.User, error)
	Following(ctx context.Context, userID uint) ([]models.User, error)
	Counts(ctx context.Context, userID uint) (FollowCounts, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	WithTx(tx *gorm.DB) FollowRepository
}

type followRepository struct {
	db    *gorm.DB
	log   *observability.RepoLogger
	cache cache.Scope
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follows")}
}

func (r *followRepository) WithTx(tx *gorm.DB) FollowRepository {
	return &followRepository{db: tx, log: r.log, cache: cache.TxScope(tx.Statement.Context)}
}

// Follow inserts the edge followerID -> followeeID. An existing edge is a
// CONFLICT; a missing endpoint is NOT_FOUND.
func (r *followRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	defer observability.TrackQuery("insert", "follows")()

	edge := &models.Follow{UserBeingFollowedID: followeeID, UserFollowingID: followerID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(edge).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		switch {
		case isUniqueViolation(err):
			return models.NewConflictError("Already following this user", err)
		case isForeignKeyViolation(err):
			return models.NewNotFoundError("User", followeeID)
		default:
			return models.NewInternalError(err)
		}
	}

	r.cache.Invalidate(ctx, cache.FollowCountKeys(followerID, followeeID)...)
	r.log.LogCreate(ctx, map[string]interface{}{"follower_id": followerID, "followee_id": followeeID})
	return nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	defer observability.TrackQuery("delete", "follows")()

	result := r.db.WithContext(ctx).
		Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if err := result.Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Follow", followeeID)
	}

	r.cache.Invalidate(ctx, cache.FollowCountKeys(followerID, followeeID)...)
	r.log.LogDelete(ctx, map[string]interface{}{"follower_id": followerID, "followee_id": followeeID})
	return nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	defer observability.TrackQuery("exists", "follows")()

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_following_id = ? AND user_being_followed_id = ?", followerID, followeeID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Followers lists the users following userID, ordered by username.
func (r *followRepository) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.user_following_id", "follows.user_being_followed_id", userID)
}

// Following lists the users userID follows, ordered by username.
func (r *followRepository) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listUsers(ctx, "follows.user_being_followed_id", "follows.user_following_id", userID)
}

func (r *followRepository) listUsers(ctx context.Context, joinCol, filterCol string, userID uint) ([]models.User, error) {
	defer observability.TrackQuery("select", "follows")()

	var users []models.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN follows ON users.id = "+joinCol).
		Where(filterCol+" = ?", userID).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (FollowCounts, error) {
	var counts FollowCounts
	err := r.cache.Aside(ctx, cache.FollowCountKey(userID), &counts, cache.FollowCountTTL, func() error {
		defer observability.TrackQuery("count", "follows")()

		db := r.db.WithContext(ctx)
		if err := db.Model(&models.Follow{}).Where("user_being_followed_id = ?", userID).Count(&counts.Followers).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := db.Model(&models.Follow{}).Where("user_following_id = ?", userID).Count(&counts.Following).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return FollowCounts{}, err
	}
	return counts, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	counts, err := r.Counts(ctx, userID)
	return counts.Followers, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	counts, err := r.Counts(ctx, userID)
	return counts.Following, err
}
