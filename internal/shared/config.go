package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Endpoints   EndpointsConfig   `toml:"endpoints"`
	Playback    PlaybackConfig    `toml:"playback"`
	Suggestions SuggestionsConfig `toml:"suggestions"`
	Lyrics      LyricsConfig      `toml:"lyrics"`
	Player      PlayerConfig      `toml:"player"`
	Database    DatabaseConfig    `toml:"database"`
	Bridge      BridgeConfig      `toml:"bridge"`
	Download    DownloadConfig    `toml:"download"`
	Log         LogConfig         `toml:"log"`
}

// EndpointsConfig lists the proxy base addresses in rotation order.
type EndpointsConfig struct {
	Bases    []string `toml:"bases"`
	Cooldown Duration `toml:"cooldown"`
}

// PlaybackConfig holds playback defaults. Values in the preference store take precedence at runtime.
type PlaybackConfig struct {
	Quality           string   `toml:"quality"`
	Volume            float64  `toml:"volume"`
	CrossfadeEnabled  bool     `toml:"crossfade_enabled"`
	CrossfadeDuration Duration `toml:"crossfade_duration"`
	CrossfadeSteps    int      `toml:"crossfade_steps"`
	SuppressWindow    Duration `toml:"suppress_window"`
}

// SuggestionsConfig tunes the radio-mode suggestion pool.
type SuggestionsConfig struct {
	BatchSize           int     `toml:"batch_size"`
	ArtistsPerFetch     int     `toml:"artists_per_fetch"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// LyricsConfig contains lyrics provider settings.
type LyricsConfig struct {
	Timeout      Duration `toml:"timeout"`
	LrclibURL    string   `toml:"lrclib_url"`
	LyricsOvhURL string   `toml:"lyricsovh_url"`
}

// PlayerConfig configures the mpv audio sink.
type PlayerConfig struct {
	MPVPath   string `toml:"mpv_path"`
	SocketDir string `toml:"socket_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BridgeConfig configures the now-playing surfaces. Empty addresses disable a surface.
type BridgeConfig struct {
	HTTPAddr     string `toml:"http_addr"`
	RedisAddr    string `toml:"redis_addr"`
	RedisChannel string `toml:"redis_channel"`
}

// DownloadConfig configures the offline cache.
type DownloadConfig struct {
	Dir     string  `toml:"dir"`
	Workers int     `toml:"workers"`
	Rate    float64 `toml:"rate"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration wraps [time.Duration] so it can be written as "60s" or "3s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values the playback core depends on.
func (c *Config) Validate() error {
	if len(c.Endpoints.Bases) == 0 {
		return fmt.Errorf("%w: endpoints.bases must not be empty", ErrInvalidConfig)
	}
	if c.Playback.Volume < 0 || c.Playback.Volume > 1 {
		return fmt.Errorf("%w: playback.volume must be within [0,1]", ErrInvalidConfig)
	}
	if c.Playback.CrossfadeSteps < 0 {
		return fmt.Errorf("%w: playback.crossfade_steps must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv loads a .env file when present and overlays HIFIX_* environment variables onto the config.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if v := os.Getenv("HIFIX_ENDPOINTS"); v != "" {
		var bases []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				bases = append(bases, strings.TrimRight(b, "/"))
			}
		}
		c.Endpoints.Bases = bases
	}
	if v := os.Getenv("HIFIX_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("HIFIX_REDIS_ADDR"); v != "" {
		c.Bridge.RedisAddr = v
	}
	if v := os.Getenv("HIFIX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HIFIX_MPV_PATH"); v != "" {
		c.Player.MPVPath = v
	}
	return c.Validate()
}
