package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir is a stand-in for t.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":3000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Chat.DefaultRoom != "Lobby" {
		t.Fatalf("default room = %q", cfg.Chat.DefaultRoom)
	}
	if cfg.Chat.MaxMessages != 100 {
		t.Fatalf("max messages = %d", cfg.Chat.MaxMessages)
	}
	if cfg.Chat.IdleTimeout != 30*time.Second {
		t.Fatalf("idle timeout = %v", cfg.Chat.IdleTimeout)
	}
	if cfg.Chat.SweepInterval != 5*time.Second {
		t.Fatalf("sweep interval = %v", cfg.Chat.SweepInterval)
	}
	if cfg.Media.ImageWidth != 400 || cfg.Media.JPEGQuality != 70 {
		t.Fatalf("image profile = %d/%d", cfg.Media.ImageWidth, cfg.Media.JPEGQuality)
	}
	if cfg.Media.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("max upload = %d", cfg.Media.MaxUploadBytes)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9999"
chat:
  default_room: Den
  max_messages: 25
  idle_timeout: 45s
  banned_terms:
    - badword
media:
  image_width: 320
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Chat.DefaultRoom != "Den" || cfg.Chat.MaxMessages != 25 {
		t.Fatalf("chat config = %+v", cfg.Chat)
	}
	if cfg.Chat.IdleTimeout != 45*time.Second {
		t.Fatalf("idle timeout = %v", cfg.Chat.IdleTimeout)
	}
	if len(cfg.Chat.BannedTerms) != 1 || cfg.Chat.BannedTerms[0] != "badword" {
		t.Fatalf("banned terms = %v", cfg.Chat.BannedTerms)
	}
	if cfg.Media.ImageWidth != 320 {
		t.Fatalf("image width = %d", cfg.Media.ImageWidth)
	}
	// Unset keys keep their defaults.
	if cfg.Media.JPEGQuality != 70 {
		t.Fatalf("jpeg quality = %d", cfg.Media.JPEGQuality)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLLCHAT_SERVER_ADDR", ":4444")
	t.Setenv("POLLCHAT_CHAT_MAX_MESSAGES", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":4444" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Chat.MaxMessages != 7 {
		t.Fatalf("max messages = %d", cfg.Chat.MaxMessages)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsNonPositiveTimings(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLLCHAT_CHAT_IDLE_TIMEOUT", "0s")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for zero idle timeout")
	}
}
