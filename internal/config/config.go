// Package config loads service configuration from an optional YAML file with
// POLLCHAT_-prefixed environment overrides and sane defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Addr string
		Name string
	}

	Chat struct {
		DefaultRoom      string
		MaxMessages      int
		IdleTimeout      time.Duration
		SweepInterval    time.Duration
		UTCOffsetMinutes int
		BannedTerms      []string
	}

	Media struct {
		ContentDir       string
		EmotesDir        string
		ImageWidth       int
		JPEGQuality      int
		FFmpegPath       string
		TranscodeTimeout time.Duration
		MaxUploadBytes   int64
	}

	Store struct {
		DBPath string
	}
}

// Load reads configuration. path may name an explicit config file; when empty
// a config.yaml in the working directory is used if present, and defaults
// plus environment variables otherwise.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POLLCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	cfg.Server.Addr = v.GetString("server.addr")
	cfg.Server.Name = v.GetString("server.name")

	cfg.Chat.DefaultRoom = v.GetString("chat.default_room")
	cfg.Chat.MaxMessages = v.GetInt("chat.max_messages")
	cfg.Chat.IdleTimeout = v.GetDuration("chat.idle_timeout")
	cfg.Chat.SweepInterval = v.GetDuration("chat.sweep_interval")
	cfg.Chat.UTCOffsetMinutes = v.GetInt("chat.utc_offset_minutes")
	cfg.Chat.BannedTerms = v.GetStringSlice("chat.banned_terms")

	cfg.Media.ContentDir = v.GetString("media.content_dir")
	cfg.Media.EmotesDir = v.GetString("media.emotes_dir")
	cfg.Media.ImageWidth = v.GetInt("media.image_width")
	cfg.Media.JPEGQuality = v.GetInt("media.jpeg_quality")
	cfg.Media.FFmpegPath = v.GetString("media.ffmpeg_path")
	cfg.Media.TranscodeTimeout = v.GetDuration("media.transcode_timeout")
	cfg.Media.MaxUploadBytes = v.GetInt64("media.max_upload_bytes")

	cfg.Store.DBPath = v.GetString("store.db_path")

	if cfg.Chat.IdleTimeout <= 0 {
		return nil, fmt.Errorf("chat.idle_timeout must be positive")
	}
	if cfg.Chat.SweepInterval <= 0 {
		return nil, fmt.Errorf("chat.sweep_interval must be positive")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.name", "pollchat")

	v.SetDefault("chat.default_room", "Lobby")
	v.SetDefault("chat.max_messages", 100)
	v.SetDefault("chat.idle_timeout", 30*time.Second)
	v.SetDefault("chat.sweep_interval", 5*time.Second)
	// Display timestamps default to UTC-5, matching the historical deploy.
	v.SetDefault("chat.utc_offset_minutes", -300)
	v.SetDefault("chat.banned_terms", []string{})

	v.SetDefault("media.content_dir", "data/uploads")
	v.SetDefault("media.emotes_dir", "emotes")
	v.SetDefault("media.image_width", 400)
	v.SetDefault("media.jpeg_quality", 70)
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.transcode_timeout", 2*time.Minute)
	v.SetDefault("media.max_upload_bytes", int64(10*1024*1024))

	v.SetDefault("store.db_path", "data/pollchat.db")
}
