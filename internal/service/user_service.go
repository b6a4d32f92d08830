// Package service holds Warbler's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warbler/internal/credentials"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"gorm.io/gorm"
)

// SignupInput carries the fields of a new account. ImageURL may be empty.
type SignupInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

// ProfileUpdate is the editable part of a profile. Empty Username or Email
// keeps the current value; empty image fields fall back to the placeholders.
type ProfileUpdate struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
}

// UserProfile is a user together with the counters shown on their page.
type UserProfile struct {
	User         *models.User     `json:"user"`
	Messages     []models.Message `json:"messages"`
	MessageCount int64            `json:"message_count"`
	Followers    int64            `json:"followers"`
	Following    int64            `json:"following"`
}

type UserService struct {
	users    repository.UserRepository
	follows  repository.FollowRepository
	messages repository.MessageRepository
	hasher   credentials.Hasher
}

func NewUserService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	messages repository.MessageRepository,
	hasher credentials.Hasher,
) *UserService {
	return &UserService{users: users, follows: follows, messages: messages, hasher: hasher}
}

// WithTx returns a copy whose repositories run on tx. Commit and rollback stay
// with whoever opened tx.
func (s *UserService) WithTx(tx *gorm.DB) *UserService {
	return &UserService{
		users:    s.users.WithTx(tx),
		follows:  s.follows.WithTx(tx),
		messages: s.messages.WithTx(tx),
		hasher:   s.hasher,
	}
}

// Signup hashes the password and inserts a new user. Missing username or email
// is a VALIDATION_ERROR; a taken username or email is a CONFLICT. Nothing is
// committed here.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Signup")
	defer func() { observability.EndSpan(span, err) }()

	defer func() {
		observability.SignupsTotal.WithLabelValues(signupResult(err)).Inc()
	}()

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" {
		return nil, models.NewValidationError("Username is required")
	}
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrEmptyPassword):
			return nil, models.NewValidationError("Password is required")
		case errors.Is(err, credentials.ErrPasswordTooLong):
			return nil, models.NewValidationError(fmt.Sprintf("Password must not exceed %d bytes", credentials.MaxPasswordBytes))
		}
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
	user.ApplyImageDefaults()

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.LogServiceCall(ctx, "UserService", "Signup", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

func signupResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case models.IsKind(err, models.CodeValidation):
		return "invalid"
	case models.IsKind(err, models.CodeConflict):
		return "conflict"
	default:
		return "error"
	}
}

// Authenticate returns the user whose username and password match, or
// (nil, nil) when either does not. Only storage failures are errors. Unknown
// usernames still pay for one hash comparison.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Authenticate")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		observability.AuthenticationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if user == nil {
		s.hasher.DummyVerify(password)
		observability.AuthenticationsTotal.WithLabelValues("unknown_user").Inc()
		return nil, nil
	}
	if !s.hasher.Verify(password, user.Password) {
		observability.AuthenticationsTotal.WithLabelValues("bad_password").Inc()
		return nil, nil
	}

	observability.AuthenticationsTotal.WithLabelValues("success").Inc()
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Profile loads a user with their latest messages and counters.
func (s *UserService) Profile(ctx context.Context, id uint, limit int) (*UserProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByUser(ctx, id, limit)
	if err != nil {
		return nil, err
	}
	count, err := s.users.CountMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.follows.Counts(ctx, id)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		User:         user,
		Messages:     msgs,
		MessageCount: count,
		Followers:    counts.Followers,
		Following:    counts.Following,
	}, nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	return s.users.Search(ctx, query, limit, offset)
}

// UpdateProfile re-checks currentPassword before applying update.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, currentPassword string, update ProfileUpdate) (*models.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.Authenticate(ctx, current.Username, currentPassword)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Wrong password, please try again.")
	}

	if username := strings.TrimSpace(update.Username); username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if email := strings.TrimSpace(update.Email); email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Email = email
	}
	for _, raw := range []string{update.ImageURL, update.HeaderImageURL} {
		if err := validation.ValidateImageURL(strings.TrimSpace(raw)); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	user.ImageURL = strings.TrimSpace(update.ImageURL)
	user.HeaderImageURL = strings.TrimSpace(update.HeaderImageURL)
	user.Bio = strings.TrimSpace(update.Bio)
	user.Location = strings.TrimSpace(update.Location)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account along with its messages, likes and edges.
func (s *UserService) DeleteUser(ctx context.Context, userID uint) error {
	observability.LogServiceCall(ctx, "UserService", "DeleteUser", map[string]interface{}{"user_id": userID})
	return s.users.Delete(ctx, userID)
}
