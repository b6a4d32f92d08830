// Package testutil provides shared test doubles and fixtures for Warbler tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens an isolated in-memory sqlite database with foreign keys
// enforced and every persistent model migrated. The pool is pinned to a single
// connection, so callers must not query outside an open transaction while one
// is in progress.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:warbler_%d_%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user directly, bypassing signup. The password column
// receives a placeholder that no hasher will verify.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	if username == "" {
		username = gofakeit.Username()
	}
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-hash",
		Bio:      gofakeit.Sentence(6),
		Location: gofakeit.City(),
	}
	user.ApplyImageDefaults()
	if err := db.Omit(clause.Associations).Create(user).Error; err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return user
}

// CreateMessage inserts a message owned by userID.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string) *models.Message {
	t.Helper()
	if text == "" {
		text = gofakeit.Sentence(8)
	}
	msg := &models.Message{Text: text, UserID: userID, Timestamp: time.Now().UTC()}
	if err := db.Omit(clause.Associations).Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}

// CreateFollow inserts the edge follower -> followee.
func CreateFollow(t testing.TB, db *gorm.DB, followerID, followeeID uint) {
	t.Helper()
	edge := &models.Follow{UserBeingFollowedID: followeeID, UserFollowingID: followerID}
	if err := db.Omit(clause.Associations).Create(edge).Error; err != nil {
		t.Fatalf("create follow %d->%d: %v", followerID, followeeID, err)
	}
}
