package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Game.MinPlayers != 6 {
		t.Errorf("got min_players %d, want 6", cfg.Game.MinPlayers)
	}
	if cfg.Game.ShareTimeout.Duration != 20*time.Second {
		t.Errorf("got share_timeout %s, want 20s", cfg.Game.ShareTimeout)
	}
	if cfg.Discord.Prefix != "boom-" {
		t.Errorf("got prefix %q, want boom-", cfg.Discord.Prefix)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamemaster.toml")
	content := `
[game]
min_players = 8
sharing_duration = "3m"

[log]
level = "debug"
format = "text"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Game.MinPlayers != 8 {
		t.Errorf("got min_players %d, want 8", cfg.Game.MinPlayers)
	}
	if cfg.Game.SharingDuration.Duration != 3*time.Minute {
		t.Errorf("got sharing_duration %s, want 3m", cfg.Game.SharingDuration)
	}
	if cfg.Game.SharingRounds != 5 {
		t.Errorf("untouched key should keep default, got %d", cfg.Game.SharingRounds)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("got log config %+v", cfg.Log)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamemaster.toml")
	content := `
[game]
share_timeout = "soon"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("unparseable duration should fail to load")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamemaster.toml")
	content := `
[game]
min_players = 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("min_players of zero should fail validation")
	}
}
