package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/signalwatch/internal/profile"
	"github.com/hrygo/signalwatch/store"
	"github.com/hrygo/signalwatch/store/db"
)

// NewTestingStore returns a migrated store backed by a fresh SQLite file, or by
// PostgreSQL when POSTGRES_TEST_DSN is set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, profile)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	driver := getDriverFromEnv()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:   "dev",
		Port:   8081,
		Data:   dir,
		Driver: driver,
	}

	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.DSN = filepath.Join(dir, fmt.Sprintf("signalwatch_%s.db", p.Mode))
	}
	return p
}

func getDriverFromEnv() string {
	if os.Getenv("POSTGRES_TEST_DSN") != "" {
		return "postgres"
	}
	return "sqlite"
}
