package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("expected default port 8001, got %d", cfg.Server.Port)
	}
	if cfg.XP.GlossaryViewPoints != 10 {
		t.Errorf("expected 10 points per glossary view, got %d", cfg.XP.GlossaryViewPoints)
	}
	if cfg.Glossary.SeedFile == "" {
		t.Error("expected a default seed file path")
	}
	if cfg.Kafka.Topics.EngagementEvents == "" {
		t.Error("expected a default engagement topic")
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
xp:
  glossaryViewPoints: 25
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected overridden port, got %d", cfg.Server.Port)
	}
	if cfg.XP.GlossaryViewPoints != 25 {
		t.Errorf("expected overridden view points, got %d", cfg.XP.GlossaryViewPoints)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.Port != 5432 {
		t.Errorf("expected default postgres port, got %d", cfg.Postgres.Port)
	}
}

func TestEnvOverridesWinOverYAML(t *testing.T) {
	t.Setenv("IEP_SERVER_PORT", "7777")
	t.Setenv("IEP_POSTGRES_HOST", "db.internal")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Errorf("expected env postgres host, got %q", cfg.Postgres.Host)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable",
	}
	want := "host=localhost port=5432 user=u password=p dbname=d sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %q\nwant %q", got, want)
	}
}
