package config_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/quillcast/narrator/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Playback.SampleRate != 24000 || cfg.Playback.Channels != 1 {
		t.Errorf("Playback = %+v, want 24000 Hz mono", cfg.Playback)
	}
	if cfg.Sessions.IdleTimeout.Std() != 30*time.Minute {
		t.Errorf("IdleTimeout = %v, want 30m", cfg.Sessions.IdleTimeout.Std())
	}
	if cfg.Sessions.MaxSessions != 64 {
		t.Errorf("MaxSessions = %d, want 64", cfg.Sessions.MaxSessions)
	}
	if cfg.Resilience.TripAfter != 3 || cfg.Resilience.Cooldown.Std() != 20*time.Second {
		t.Errorf("Resilience = %+v, want trip_after 3 / cooldown 20s", cfg.Resilience)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	const yaml = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  tts:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini-tts
  tts_fallbacks:
    - name: elevenlabs
      api_key: xi-test
      options:
        output_format: pcm_16000
  scene:
    name: openai
    api_key: sk-test
playback:
  sample_rate: 16000
  channels: 2
sessions:
  idle_timeout: 5m
  max_sessions: 8
resilience:
  trip_after: 5
  cooldown: 45s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Providers.TTS.Name != "openai" || cfg.Providers.TTS.Model != "gpt-4o-mini-tts" {
		t.Errorf("TTS = %+v", cfg.Providers.TTS)
	}
	if len(cfg.Providers.TTSFallbacks) != 1 || cfg.Providers.TTSFallbacks[0].Name != "elevenlabs" {
		t.Fatalf("TTSFallbacks = %+v", cfg.Providers.TTSFallbacks)
	}
	if got := cfg.Providers.TTSFallbacks[0].Options["output_format"]; got != "pcm_16000" {
		t.Errorf("fallback output_format = %v", got)
	}
	if cfg.Playback.SampleRate != 16000 || cfg.Playback.Channels != 2 {
		t.Errorf("Playback = %+v", cfg.Playback)
	}
	if cfg.Sessions.IdleTimeout.Std() != 5*time.Minute || cfg.Sessions.MaxSessions != 8 {
		t.Errorf("Sessions = %+v", cfg.Sessions)
	}
	if cfg.Resilience.TripAfter != 5 || cfg.Resilience.Cooldown.Std() != 45*time.Second {
		t.Errorf("Resilience = %+v", cfg.Resilience)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("serverr:\n  listen_addr: \":1\"\n"))
	if err == nil {
		t.Fatal("unknown top-level key should be rejected")
	}
}

func TestLoadFromReader_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\n"))
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("error = %v, want log_level validation failure", err)
	}
}

func TestLoadFromReader_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("sessions:\n  idle_timeout: soon\n"))
	if err == nil {
		t.Fatal("unparseable duration should be rejected")
	}
}

func TestLoadFromReader_FallbackWithoutName(t *testing.T) {
	t.Parallel()

	const yaml = `
providers:
  tts_fallbacks:
    - api_key: orphaned
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "tts_fallbacks") {
		t.Fatalf("error = %v, want tts_fallbacks validation failure", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("does/not/exist.yaml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want wrapped os.ErrNotExist", err)
	}
}
