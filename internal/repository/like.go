package repository

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository records which messages a user has liked.
type LikeRepository interface {
	Toggle(ctx context.Context, userID, messageID uint) (bool, error)
	ListLikedMessages(ctx context.Context, userID uint) ([]models.Message, error)
	LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error)
	WithTx(tx *gorm.DB) LikeRepository
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("likes")}
}

func (r *likeRepository) WithTx(tx *gorm.DB) LikeRepository {
	return &likeRepository{db: tx, log: r.log}
}

// Toggle likes messageID for userID, or removes the like if it exists.
// It reports whether the message is liked afterwards.
func (r *likeRepository) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	defer observability.TrackQuery("toggle", "likes")()

	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&models.Like{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Omit(clause.Associations).Create(&models.Like{UserID: userID, MessageID: messageID}).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "toggle")
		switch {
		case isUniqueViolation(err):
			return false, models.NewConflictError("Like already recorded", err)
		case isForeignKeyViolation(err):
			return false, models.NewNotFoundError("Message", messageID)
		default:
			return false, models.NewInternalError(err)
		}
	}
	return liked, nil
}

// ListLikedMessages returns the messages userID liked, most recent like first.
func (r *likeRepository) ListLikedMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	defer observability.TrackQuery("select", "likes")()

	var msgs []models.Message
	if err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC").
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *likeRepository) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	defer observability.TrackQuery("select", "likes")()

	ids := []uint{}
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("message_id ASC").
		Pluck("message_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
