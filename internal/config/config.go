// Package config provides the configuration schema and loader for the
// narrator server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "20s" or "30m" decode
// directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LogLevel controls log verbosity for the narrator server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the narrator server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the gateway listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which backend serves each remote concern.
type ProvidersConfig struct {
	// TTS is the primary speech synthesis backend.
	TTS ProviderEntry `yaml:"tts"`

	// TTSFallbacks are additional synthesis backends tried in order when
	// the primary fails or is cooling down.
	TTSFallbacks []ProviderEntry `yaml:"tts_fallbacks"`

	// Scene is the scene-breakdown backend.
	Scene ProviderEntry `yaml:"scene"`
}

// ProviderEntry is the common configuration block shared by all provider
// kinds.
type ProviderEntry struct {
	// Name selects the implementation ("openai", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the standard
	// fields (e.g., the ElevenLabs voice map).
	Options map[string]any `yaml:"options"`
}

// PlaybackConfig tunes the headless playback pacer.
type PlaybackConfig struct {
	// SampleRate is the PCM sample rate in Hz used to derive segment
	// durations. Default: 24000 (OpenAI speech PCM).
	SampleRate int `yaml:"sample_rate"`

	// Channels is the PCM channel count. Default: 1.
	Channels int `yaml:"channels"`
}

// SessionsConfig tunes narration session lifecycle.
type SessionsConfig struct {
	// IdleTimeout evicts sessions with no transport activity for this
	// long. Default: 30m.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// MaxSessions caps concurrently live sessions. Default: 64.
	MaxSessions int `yaml:"max_sessions"`
}

// ResilienceConfig tunes the per-provider breakers.
type ResilienceConfig struct {
	// TripAfter is the consecutive-failure count before a provider cools
	// down. Default: 3.
	TripAfter int `yaml:"trip_after"`

	// Cooldown is how long a tripped provider is bypassed. Default: 20s.
	Cooldown Duration `yaml:"cooldown"`
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Playback.SampleRate <= 0 {
		c.Playback.SampleRate = 24000
	}
	if c.Playback.Channels <= 0 {
		c.Playback.Channels = 1
	}
	if c.Sessions.IdleTimeout <= 0 {
		c.Sessions.IdleTimeout = Duration(30 * time.Minute)
	}
	if c.Sessions.MaxSessions <= 0 {
		c.Sessions.MaxSessions = 64
	}
	if c.Resilience.TripAfter <= 0 {
		c.Resilience.TripAfter = 3
	}
	if c.Resilience.Cooldown <= 0 {
		c.Resilience.Cooldown = Duration(20 * time.Second)
	}
}
