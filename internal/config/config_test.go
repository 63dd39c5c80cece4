package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	// Ensure no .env file from the working directory leaks in.
	t.Chdir(t.TempDir())
	if _, err := Load(); !errors.Is(err, ErrMissingDatabaseURL) {
		t.Fatalf("want ErrMissingDatabaseURL, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/guide")
	t.Setenv("FETCH_DELAY", "250ms")

	c, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.FetchDelay != 250*time.Millisecond {
		t.Fatalf("FetchDelay: want 250ms, got %v", c.FetchDelay)
	}
	if c.Timeout != 30*time.Second {
		t.Fatalf("Timeout default: got %v", c.Timeout)
	}
	if c.ServerPort != "8080" {
		t.Fatalf("ServerPort default: got %q", c.ServerPort)
	}
	if c.ListURL == "" || c.USAPath == "" {
		t.Fatalf("list/usa defaults not applied: %+v", c)
	}
	if c.GuideTimezone != "UTC" {
		t.Fatalf("GuideTimezone default: got %q", c.GuideTimezone)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `database_url: postgres://localhost/guide
epg_list_url: http://lists.example.org/epg.csv
fetch_delay: 1s
vod_default_category: General
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ListURL != "http://lists.example.org/epg.csv" {
		t.Fatalf("ListURL: got %q", c.ListURL)
	}
	if c.FetchDelay != time.Second {
		t.Fatalf("FetchDelay: got %v", c.FetchDelay)
	}
	if c.VodDefaultCategory != "General" {
		t.Fatalf("VodDefaultCategory: got %q", c.VodDefaultCategory)
	}
}

func TestLoadFromFileMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"9999\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); !errors.Is(err, ErrMissingDatabaseURL) {
		t.Fatalf("want ErrMissingDatabaseURL, got %v", err)
	}
}
