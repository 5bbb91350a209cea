// Command narrator is the main entry point for the narrator playback
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/quillcast/narrator/internal/analyzer"
	"github.com/quillcast/narrator/internal/app"
	"github.com/quillcast/narrator/internal/config"
	"github.com/quillcast/narrator/internal/gateway"
	"github.com/quillcast/narrator/internal/health"
	"github.com/quillcast/narrator/internal/narrator"
	"github.com/quillcast/narrator/internal/observe"
	"github.com/quillcast/narrator/internal/resilience"
	"github.com/quillcast/narrator/pkg/audio/timed"
	"github.com/quillcast/narrator/pkg/provider/scene"
	sceneopenai "github.com/quillcast/narrator/pkg/provider/scene/openai"
	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/provider/tts/elevenlabs"
	ttsopenai "github.com/quillcast/narrator/pkg/provider/tts/openai"
)

// version is overridable at link time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "narrator: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "narrator: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("narrator starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "narrator",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metric instruments", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	ttsProvider := buildTTS(cfg)
	sceneProvider := buildScene(cfg)

	player := timed.New(timed.WithFormat(cfg.Playback.SampleRate, cfg.Playback.Channels, 2))

	// ── Sessions ──────────────────────────────────────────────────────────────
	factory := func(onEvent func(narrator.Event)) *narrator.Sequencer {
		cache := narrator.NewSynthesisCache()
		synth := narrator.NewSynthesizer(ttsProvider, player, cache, logger, metrics)
		return narrator.NewSequencer(narrator.SequencerConfig{
			Analyzer:    analyzer.New(sceneProvider, logger, metrics),
			Synthesizer: synth,
			Logger:      logger,
			Metrics:     metrics,
			OnEvent:     onEvent,
		})
	}

	sessions := app.NewManager(app.ManagerConfig{
		Factory:     factory,
		Logger:      logger,
		Metrics:     metrics,
		IdleTimeout: cfg.Sessions.IdleTimeout.Std(),
		MaxSessions: cfg.Sessions.MaxSessions,
	})
	go sessions.Run(ctx)

	// ── Gateway ───────────────────────────────────────────────────────────────
	checks := []health.Check{
		{Name: "tts_provider", Probe: func(context.Context) error {
			if cfg.Providers.TTS.Name == "" {
				return errors.New("no TTS provider configured")
			}
			return nil
		}},
		{Name: "scene_provider", Probe: func(context.Context) error {
			if cfg.Providers.Scene.Name == "" {
				return errors.New("no scene provider configured")
			}
			return nil
		}},
	}

	gw := gateway.New(gateway.Config{
		Sessions: sessions,
		Health:   health.New(checks...),
		Metrics:  metrics,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printStartupSummary(cfg)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	sessions.CloseAll(shutdownCtx)

	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildTTS constructs the synthesis backend from cfg. Usable backends are
// collected in priority order: the primary first, then each fallback. A
// missing or unknown primary promotes the first usable fallback rather
// than discarding the chain. With two or more backends the result is a
// failover chain that still satisfies tts.Provider; with none it is nil,
// which the synthesizer treats as every-segment-skipped.
func buildTTS(cfg *config.Config) tts.Provider {
	type backend struct {
		name     string
		provider tts.Provider
	}
	var chain []backend

	if p := newTTSProvider(cfg.Providers.TTS); p != nil {
		chain = append(chain, backend{cfg.Providers.TTS.Name, p})
		slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)
	} else if cfg.Providers.TTS.Name != "" {
		slog.Warn("unknown TTS provider, trying fallbacks", "name", cfg.Providers.TTS.Name)
	}

	for _, fb := range cfg.Providers.TTSFallbacks {
		p := newTTSProvider(fb)
		if p == nil {
			slog.Warn("skipping unknown TTS fallback", "name", fb.Name)
			continue
		}
		chain = append(chain, backend{fb.Name, p})
		slog.Info("provider created", "kind", "tts_fallback", "name", fb.Name)
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0].provider
	}

	breakerCfg := resilience.BreakerConfig{
		TripAfter: cfg.Resilience.TripAfter,
		Cooldown:  cfg.Resilience.Cooldown.Std(),
	}
	failover := resilience.NewTTSFailover(chain[0].name, chain[0].provider, breakerCfg)
	for _, b := range chain[1:] {
		failover.AddFallback(b.name, b.provider)
	}
	return failover
}

func newTTSProvider(entry config.ProviderEntry) tts.Provider {
	switch entry.Name {
	case "openai":
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		return ttsopenai.New(entry.APIKey, entry.Model, opts...)
	case "elevenlabs":
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if voices := optStringMap(entry.Options, "voices"); len(voices) > 0 {
			opts = append(opts, elevenlabs.WithVoiceMap(voices))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	default:
		return nil
	}
}

// buildScene constructs the scene-breakdown backend. A nil result means the
// analyzer will fall back to single-segment neutral narration every time.
func buildScene(cfg *config.Config) scene.Provider {
	entry := cfg.Providers.Scene
	switch entry.Name {
	case "openai":
		var opts []sceneopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sceneopenai.WithBaseURL(entry.BaseURL))
		}
		slog.Info("provider created", "kind", "scene", "name", entry.Name)
		return sceneopenai.New(entry.APIKey, entry.Model, opts...)
	default:
		return nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        narrator — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Scene", cfg.Providers.Scene.Name, cfg.Providers.Scene.Model)
	fmt.Printf("║  TTS fallbacks   : %-19d ║\n", len(cfg.Providers.TTSFallbacks))
	fmt.Printf("║  Max sessions    : %-19d ║\n", cfg.Sessions.MaxSessions)
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a
// string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optStringMap extracts a map[string]string from a provider Options map.
// YAML decodes nested maps as map[string]any, so values are filtered to
// strings.
func optStringMap(opts map[string]any, key string) map[string]string {
	if opts == nil {
		return nil
	}
	raw, ok := opts[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
