package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "5m" or "20s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Discord DiscordConfig `toml:"discord"`
	Game    GameConfig    `toml:"game"`
	Log     LogConfig     `toml:"log"`
	Status  StatusConfig  `toml:"status"`
	Tracing TracingConfig `toml:"tracing"`
	History HistoryConfig `toml:"history"`
}

type DiscordConfig struct {
	TokenEnv string `toml:"token_env"`
	Prefix   string `toml:"prefix"`
}

type GameConfig struct {
	MinPlayers      int      `toml:"min_players"`
	SharingRounds   int      `toml:"sharing_rounds"`
	SharingDuration Duration `toml:"sharing_duration"`
	CountdownStep   Duration `toml:"countdown_step"`
	ShareTimeout    Duration `toml:"share_timeout"`
	SwitchTimeout   Duration `toml:"switch_timeout"`
	AbortCooldown   Duration `toml:"abort_cooldown"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	Port    int    `toml:"port"`
}

type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

func Default() *Config {
	return &Config{
		Discord: DiscordConfig{
			TokenEnv: "DISCORD_BOT_TOKEN",
			Prefix:   "boom-",
		},
		Game: GameConfig{
			MinPlayers:      6,
			SharingRounds:   5,
			SharingDuration: Duration{5 * time.Minute},
			CountdownStep:   Duration{5 * time.Second},
			ShareTimeout:    Duration{20 * time.Second},
			SwitchTimeout:   Duration{time.Minute},
			AbortCooldown:   Duration{15 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Status: StatusConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    18990,
		},
		History: HistoryConfig{
			Enabled: true,
			DSN:     filepath.Join(DataDir(), "gamemaster.db"),
		},
	}
}

// Load reads path over the defaults. A missing file is not an error;
// the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Game.MinPlayers < 1 {
		return fmt.Errorf("config: min_players must be at least 1, got %d", c.Game.MinPlayers)
	}
	if c.Game.SharingRounds < 1 {
		return fmt.Errorf("config: sharing_rounds must be at least 1, got %d", c.Game.SharingRounds)
	}
	if c.Discord.Prefix == "" {
		return fmt.Errorf("config: discord channel prefix must not be empty")
	}
	return nil
}

func DataDir() string {
	if dir := os.Getenv("GAMEMASTER_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gamemaster"
	}
	return filepath.Join(home, ".gamemaster")
}

func DefaultConfigPath() string {
	return filepath.Join(DataDir(), "gamemaster.toml")
}

func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0700)
}
