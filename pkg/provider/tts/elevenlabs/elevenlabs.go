// Package elevenlabs provides a TTS provider backed by the ElevenLabs
// HTTP text-to-speech endpoint. It implements the tts.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

const (
	endpointFmt      = "https://api.elevenlabs.io/v1/text-to-speech/%s?output_format=%s"
	defaultModel     = "eleven_flash_v2_5"
	defaultOutputFmt = "pcm_24000"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithOutputFormat sets the audio output format (e.g., "pcm_16000", "pcm_24000").
func WithOutputFormat(format string) Option {
	return func(p *Provider) {
		p.outputFormat = format
	}
}

// WithVoiceMap overrides the default profile → voice-ID mapping. Keys are
// "<gender>/<age>" (e.g., "female/adult"); the special key "default" is the
// final fallback.
func WithVoiceMap(m map[string]string) Option {
	return func(p *Provider) {
		p.voices = m
	}
}

// WithHTTPClient replaces the HTTP client (used in tests).
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// defaultVoices maps profile keys onto ElevenLabs premade voice IDs.
var defaultVoices = map[string]string{
	"female/adult": "EXAVITQu4vr4xnSDxMaL", // Sarah
	"female/elder": "XB0fDUnXU5powFXDhCwa", // Charlotte
	"male/adult":   "TX3LPaxmHKxFdv7VOQHJ", // Liam
	"male/elder":   "JBFqnCBsd6RMkjVDRZzb", // George
	"default":      "21m00Tcm4TlvDq8ikWAM", // Rachel
}

// Provider implements tts.Provider backed by the ElevenLabs HTTP API.
type Provider struct {
	apiKey       string
	model        string
	outputFormat string
	voices       map[string]string
	httpClient   *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// New creates a new ElevenLabs Provider. An empty apiKey is allowed; calls
// then fail with [tts.ErrNoCredentials].
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		voices:       defaultVoices,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// request is the JSON payload sent to the text-to-speech endpoint.
type request struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	if p.apiKey == "" {
		return nil, tts.ErrNoCredentials
	}

	payload := request{
		Text:    text,
		ModelID: p.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}
	if voice.Speed > 0 && voice.Speed != 1.0 {
		payload.VoiceSettings.Speed = voice.Speed
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf(endpointFmt, p.voiceID(voice), p.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, tts.ErrNoCredentials
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/") {
		return nil, fmt.Errorf("%w: content-type %q", tts.ErrMalformedResponse, ct)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", tts.ErrMalformedResponse)
	}
	return data, nil
}

// voiceID resolves a profile to a configured voice ID. Child and teen
// profiles fall back to the adult voice of the same gender — the premade
// catalogue has no young voices.
func (p *Provider) voiceID(v types.VoiceProfile) string {
	age := v.Age
	if age == types.AgeChild || age == types.AgeTeen {
		age = types.AgeAdult
	}
	if id, ok := p.voices[string(v.Gender)+"/"+string(age)]; ok {
		return id
	}
	if id, ok := p.voices["default"]; ok {
		return id
	}
	return defaultVoices["default"]
}
