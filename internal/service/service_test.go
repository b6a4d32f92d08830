package service

import (
	"context"
	"sync"
	"testing"

	"warbler/internal/credentials"
	"warbler/internal/notifications"
	"warbler/internal/repository"
	"warbler/internal/testutil"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[uint][]notifications.Event
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[uint][]notifications.Event)
	}
	p.events[userID] = append(p.events[userID], event)
	return nil
}

func (p *recordingPublisher) For(userID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[userID]
}

type services struct {
	db        *gorm.DB
	users     *UserService
	follows   *FollowService
	messages  *MessageService
	publisher *recordingPublisher
}

func newServices(t *testing.T) services {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	hasher := credentials.NewBcryptHasher(bcrypt.MinCost)
	pub := &recordingPublisher{}

	return services{
		db:        db,
		users:     NewUserService(userRepo, followRepo, messageRepo, hasher),
		follows:   NewFollowService(followRepo, userRepo, pub),
		messages:  NewMessageService(messageRepo, likeRepo, userRepo, pub),
		publisher: pub,
	}
}
