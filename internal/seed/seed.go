package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"warbler/internal/config"
	"warbler/internal/credentials"
	"warbler/internal/database"
	"warbler/internal/middleware"
	"warbler/internal/repository"
	"warbler/internal/service"

	"gorm.io/gorm"
)

// Options configures Seed.
type Options struct {
	Manifest *Manifest
	// Reset drops and recreates every table first. Requires Config.
	Reset  bool
	Config *config.Config
	Hasher credentials.Hasher
}

// Report summarises what Seed inserted.
type Report struct {
	Users          int
	Messages       int
	Follows        int
	SampleAccounts []string
}

// Seed bulk-loads the manifest's CSV files and signs up its sample accounts
// in a single transaction. Any failure rolls the whole load back.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Report, error) {
	if opts.Manifest == nil {
		return nil, errors.New("seed: manifest is required")
	}
	if opts.Hasher == nil {
		return nil, errors.New("seed: hasher is required")
	}

	if opts.Reset {
		if opts.Config == nil {
			return nil, errors.New("seed: reset requires a config")
		}
		middleware.Logger.Info("Resetting schema before seeding", slog.String("env", opts.Config.Env))
		if err := database.ResetSchema(ctx, db, opts.Config); err != nil {
			return nil, err
		}
	}

	users := service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewFollowRepository(db),
		repository.NewMessageRepository(db),
		opts.Hasher,
	)

	report := &Report{}
	err := database.WithTx(ctx, db, func(tx *gorm.DB) error {
		steps := []struct {
			table table
			file  string
			count *int
		}{
			{usersTable, opts.Manifest.Users, &report.Users},
			{messagesTable, opts.Manifest.Messages, &report.Messages},
			{followsTable, opts.Manifest.Follows, &report.Follows},
		}
		for _, step := range steps {
			n, err := loadCSV(tx, step.table, opts.Manifest.Path(step.file))
			if err != nil {
				return err
			}
			*step.count = n
		}

		txUsers := users.WithTx(tx)
		for _, acct := range opts.Manifest.SampleAccounts {
			if _, err := txUsers.Signup(ctx, service.SignupInput{
				Username: acct.Username,
				Email:    acct.Email,
				Password: acct.Password,
				ImageURL: acct.ImageURL,
			}); err != nil {
				return fmt.Errorf("sample account %s: %w", acct.Username, err)
			}
			report.SampleAccounts = append(report.SampleAccounts, acct.Username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("Database seeded",
		slog.Int("users", report.Users),
		slog.Int("messages", report.Messages),
		slog.Int("follows", report.Follows),
		slog.Any("sample_accounts", report.SampleAccounts),
	)
	return report, nil
}
