package service

import (
	"context"
	"log/slog"
	"strings"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/validation"

	"gorm.io/gorm"
)

// MessageService handles posting, deleting and liking messages.
type MessageService struct {
	messages  repository.MessageRepository
	likes     repository.LikeRepository
	users     repository.UserRepository
	publisher notifications.Publisher
}

// NewMessageService returns a new MessageService. publisher may be nil.
func NewMessageService(
	messages repository.MessageRepository,
	likes repository.LikeRepository,
	users repository.UserRepository,
	publisher notifications.Publisher,
) *MessageService {
	return &MessageService{messages: messages, likes: likes, users: users, publisher: publisher}
}

// WithTx returns a copy whose repositories run on tx.
func (s *MessageService) WithTx(tx *gorm.DB) *MessageService {
	return &MessageService{
		messages:  s.messages.WithTx(tx),
		likes:     s.likes.WithTx(tx),
		users:     s.users.WithTx(tx),
		publisher: s.publisher,
	}
}

// Create posts text as userID.
func (s *MessageService) Create(ctx context.Context, userID uint, text string) (*models.Message, error) {
	if err := validation.ValidateMessageText(text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg := &models.Message{Text: strings.TrimSpace(text), UserID: userID}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesTotal.WithLabelValues("create").Inc()
	return msg, nil
}

func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.messages.GetByID(ctx, id)
}

// Delete removes messageID if userID owns it.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uint) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != userID {
		return models.NewUnauthorizedError("Access unauthorized.")
	}
	if err := s.messages.Delete(ctx, messageID); err != nil {
		return err
	}
	observability.MessagesTotal.WithLabelValues("delete").Inc()
	return nil
}

// Timeline returns userID's own messages and those of the users they follow.
func (s *MessageService) Timeline(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.messages.Timeline(ctx, userID, limit)
}

// ToggleLike flips userID's like on messageID and reports the new state.
// Liking your own message is rejected.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (bool, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.UserID == userID {
		return false, models.NewValidationError("You cannot like your own message")
	}

	liked, err := s.likes.Toggle(ctx, userID, messageID)
	if err != nil {
		return false, err
	}

	if liked {
		observability.MessagesTotal.WithLabelValues("like").Inc()
		if s.publisher != nil {
			event := notifications.Event{Type: notifications.EventLike, ActorID: userID, MessageID: messageID}
			if err := s.publisher.PublishUser(ctx, msg.UserID, event); err != nil {
				middleware.Logger.WarnContext(ctx, "Failed to publish like notification", slog.String("error", err.Error()))
			}
		}
	} else {
		observability.MessagesTotal.WithLabelValues("unlike").Inc()
	}
	return liked, nil
}

// ListLikes returns the messages userID has liked.
func (s *MessageService) ListLikes(ctx context.Context, userID uint) ([]models.Message, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.likes.ListLikedMessages(ctx, userID)
}

func (s *MessageService) LikedMessageIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.likes.LikedMessageIDs(ctx, userID)
}
