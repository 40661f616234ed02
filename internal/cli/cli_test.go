package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eldtechnologies/fileshare/internal/config"
	"github.com/eldtechnologies/fileshare/internal/models"
	"github.com/eldtechnologies/fileshare/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != version.Version {
		t.Errorf("version = %q, want %q", got, version.Version)
	}
}

func TestStatsCommandJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("MONGO_URI", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ENV", "development")
	t.Setenv("SQLITE_PATH", dbPath)

	cfg := config.Load()
	ds, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := ds.UpsertAdmin(context.Background(), models.Admin{UserID: 1, IsOwner: true}); err != nil {
		t.Fatal(err)
	}
	ds.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"stats", "--json"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		statsJSON = false
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	var stats models.Stats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("output %q: %v", out.String(), err)
	}
	if stats.Admins != 1 || stats.Batches != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMigrateSQLite(t *testing.T) {
	cfg := &config.Config{Env: "development", SQLitePath: filepath.Join(t.TempDir(), "m.db")}
	if err := migrate(context.Background(), cfg, newLogger(&config.Config{Env: "test"})); err != nil {
		t.Fatal(err)
	}
}
