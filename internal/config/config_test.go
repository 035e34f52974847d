package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.AccessTTL() != 60*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.RecoveryTTL() != 30*time.Minute {
		t.Errorf("RecoveryTTL = %v", cfg.RecoveryTTL())
	}
	if cfg.SMTP.Port != 587 || !cfg.SMTP.UseTLS {
		t.Errorf("SMTP defaults = %+v", cfg.SMTP)
	}
	if cfg.LoginRateWindow != time.Minute {
		t.Errorf("LoginRateWindow = %v", cfg.LoginRateWindow)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TOTETRACK_DB", "/tmp/x.sqlite3")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.sqlite3" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.SMTP.Host != "smtp.example.com" || cfg.SMTP.Port != 465 {
		t.Errorf("SMTP = %+v", cfg.SMTP)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TOTETRACK_MEDIA_DIR=/srv/media\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TOTETRACK_MEDIA_DIR", "")
	os.Unsetenv("TOTETRACK_MEDIA_DIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MediaDir != "/srv/media" {
		t.Errorf("MediaDir = %q", cfg.MediaDir)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("PASSWORD_RESET_TOKEN_EXPIRE_MINUTES", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for zero recovery TTL")
	}
}
