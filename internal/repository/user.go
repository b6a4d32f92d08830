// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"warbler/internal/cache"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Search(ctx context.Context, query string, limit, offset int) ([]models.User, error)
	CountMessages(ctx context.Context, userID uint) (int64, error)
	WithTx(tx *gorm.DB) UserRepository
}

// profileColumns are the columns Update writes. The password hash is not
// among them: cached users carry no hash and must never overwrite it.
var profileColumns = []string{"username", "email", "image_url", "header_image_url", "bio", "location", "updated_at"}

type userRepository struct {
	db    *gorm.DB
	log   *observability.RepoLogger
	cache cache.Scope
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx, log: r.log, cache: cache.TxScope(tx.Statement.Context)}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := r.cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		defer observability.TrackQuery("select", "users")()
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// GetByUsername matches username exactly and always reads the database, so
// the returned user carries its password hash.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "users", "Create")
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("insert", "users")()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already taken", err)
		}
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": user.ID, "username": user.Username})
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("update", "users")()

	user.ApplyImageDefaults()
	result := r.db.WithContext(ctx).Model(user).Select(profileColumns).Updates(user)
	if err := result.Error; err != nil {
		r.log.LogError(ctx, err, "update")
		if isUniqueViolation(err) {
			return models.NewConflictError("Username or email already taken", err)
		}
		return models.NewInternalError(err)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	r.cache.Invalidate(ctx, cache.UserKeys(user.ID)...)
	return nil
}

// Delete removes the user. Messages, likes and follow edges go with it through
// ON DELETE CASCADE, so the counters of every user on the other end of those
// edges are invalidated too.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "users")()

	var counterparts []uint
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_being_followed_id = ?", id).
		Pluck("user_following_id", &counterparts).Error; err != nil {
		return models.NewInternalError(err)
	}
	var followees []uint
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_following_id = ?", id).
		Pluck("user_being_followed_id", &followees).Error; err != nil {
		return models.NewInternalError(err)
	}
	counterparts = append(counterparts, followees...)

	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if err := result.Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.cache.Invalidate(ctx, cache.UserKeys(id)...)
	r.cache.Invalidate(ctx, cache.FollowCountKeys(counterparts...)...)
	r.log.LogDelete(ctx, map[string]interface{}{"id": id})
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var users []models.User
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// Search matches usernames containing query, case-insensitively. An empty
// query lists every user.
func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx, limit, offset)
	}
	defer observability.TrackQuery("search", "users")()

	var users []models.User
	pattern := "%" + strings.ToLower(query) + "%"
	if err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ?", pattern).
		Order("username ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) CountMessages(ctx context.Context, userID uint) (int64, error) {
	defer observability.TrackQuery("count", "messages")()

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
