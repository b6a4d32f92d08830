// Command seed loads the CSV fixtures and sample accounts into the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/credentials"
	"warbler/internal/seed"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	manifestPath := flag.String("manifest", "", "Seed manifest (defaults to <SEED_FIXTURE_DIR>/seed.yml)")
	reset := flag.Bool("reset", true, "Drop and recreate every table before seeding")
	generate := flag.Bool("generate", false, "Regenerate the CSV fixtures with fake data before seeding (missing fixtures are always generated)")
	numUsers := flag.Int("users", seed.DefaultCounts.Users, "Users to generate")
	numMessages := flag.Int("messages", seed.DefaultCounts.Messages, "Messages to generate")
	numFollows := flag.Int("follows", seed.DefaultCounts.Follows, "Follow edges to generate")
	fakeSeed := flag.Int64("seed", 0, "Random seed for generated fixtures (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := *manifestPath
	if path == "" {
		path = filepath.Join(cfg.SeedFixtureDir, "seed.yml")
	}
	manifest, err := seed.LoadManifest(path)
	if err != nil {
		return err
	}

	hasher := credentials.NewBcryptHasher(cfg.BcryptCost)

	missing := manifest.MissingFixtures()
	if len(missing) > 0 && !*generate {
		log.Printf("Fixtures not found (%v), generating them", missing)
	}
	if *generate || len(missing) > 0 {
		counts := seed.Counts{Users: *numUsers, Messages: *numMessages, Follows: *numFollows, Seed: *fakeSeed}
		if err := manifest.Generate(counts, hasher); err != nil {
			return fmt.Errorf("generate fixtures: %w", err)
		}
		log.Printf("Generated %d users, %d messages, %d follows for %s", counts.Users, counts.Messages, counts.Follows, path)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipSchema: *reset})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	report, err := seed.Seed(ctx, rt.DB, seed.Options{
		Manifest: manifest,
		Reset:    *reset,
		Config:   cfg,
		Hasher:   hasher,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	log.Printf("Seeded %d users, %d messages, %d follows", report.Users, report.Messages, report.Follows)
	log.Printf("Sample accounts: %v", report.SampleAccounts)
	return nil
}
