package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"gorm.io/gorm"
)

// FollowService manages the follow graph.
type FollowService struct {
	follows   repository.FollowRepository
	users     repository.UserRepository
	publisher notifications.Publisher
}

// NewFollowService returns a new FollowService. publisher may be nil.
func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, publisher notifications.Publisher) *FollowService {
	return &FollowService{follows: follows, users: users, publisher: publisher}
}

// WithTx returns a copy whose repositories run on tx.
func (s *FollowService) WithTx(tx *gorm.DB) *FollowService {
	return &FollowService{follows: s.follows.WithTx(tx), users: s.users.WithTx(tx), publisher: s.publisher}
}

// Follow creates the edge followerID -> followeeID. Following yourself is
// allowed. Following twice is a CONFLICT.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "Follow")
	defer func() { observability.EndSpan(span, err) }()

	follower, err := s.users.GetByID(ctx, followerID)
	if err != nil {
		return err
	}
	if _, err = s.users.GetByID(ctx, followeeID); err != nil {
		return err
	}
	if err = s.follows.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	observability.FollowEventsTotal.WithLabelValues("follow").Inc()
	s.notify(ctx, followeeID, notifications.Event{
		Type:          notifications.EventFollow,
		ActorID:       followerID,
		ActorUsername: follower.Username,
	})
	return nil
}

// StopFollowing removes the edge followerID -> followeeID.
func (s *FollowService) StopFollowing(ctx context.Context, followerID, followeeID uint) error {
	if err := s.follows.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	observability.FollowEventsTotal.WithLabelValues("unfollow").Inc()
	s.notify(ctx, followeeID, notifications.Event{Type: notifications.EventUnfollow, ActorID: followerID})
	return nil
}

// IsFollowing reports whether u follows other. A nil user on either side is false.
func (s *FollowService) IsFollowing(ctx context.Context, u, other *models.User) (bool, error) {
	if u == nil || other == nil {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, u.ID, other.ID)
}

// IsFollowedBy reports whether other follows u. A nil user on either side is false.
func (s *FollowService) IsFollowedBy(ctx context.Context, u, other *models.User) (bool, error) {
	if u == nil || other == nil {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, other.ID, u.ID)
}

// ListFollowers returns the users following userID.
func (s *FollowService) ListFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Followers(ctx, userID)
}

// ListFollowing returns the users userID follows.
func (s *FollowService) ListFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Following(ctx, userID)
}

func (s *FollowService) Counts(ctx context.Context, userID uint) (repository.FollowCounts, error) {
	return s.follows.Counts(ctx, userID)
}

func (s *FollowService) notify(ctx context.Context, userID uint, event notifications.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishUser(ctx, userID, event); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to publish notification",
			slog.String("type", event.Type),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}
