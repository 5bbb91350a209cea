// Package openai provides a TTS provider backed by the OpenAI speech API.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/quillcast/narrator/pkg/provider/tts"
	"github.com/quillcast/narrator/pkg/types"
)

// defaultModel is used when no model is configured. The mini TTS model
// accepts free-text delivery instructions, which lets tone and emotion from
// the voice profile influence the rendition.
const defaultModel = "gpt-4o-mini-tts"

// Provider implements tts.Provider using the OpenAI speech endpoint.
type Provider struct {
	client oai.Client
	model  string
	hasKey bool
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs an OpenAI TTS Provider. An empty apiKey is allowed at
// construction time; Synthesize then fails with [tts.ErrNoCredentials] so
// the caller's skip policy applies instead of startup aborting.
func New(apiKey string, model string, opts ...Option) *Provider {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if model == "" {
		model = defaultModel
	}

	reqOpts := []option.RequestOption{}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		hasKey: apiKey != "",
	}
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice types.VoiceProfile) ([]byte, error) {
	if !p.hasKey {
		return nil, tts.ErrNoCredentials
	}

	params := oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Input:          text,
		Voice:          voiceFor(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if voice.Speed > 0 && voice.Speed != 1.0 {
		params.Speed = oai.Float(voice.Speed)
	}
	if instr := instructionsFor(voice); instr != "" {
		params.Instructions = oai.String(instr)
	}

	res, err := p.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: speech request: %w", err)
	}
	defer res.Body.Close()

	ct := res.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/") || strings.HasPrefix(ct, "application/json") {
		return nil, fmt.Errorf("%w: content-type %q", tts.ErrMalformedResponse, ct)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read audio body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", tts.ErrMalformedResponse)
	}
	return data, nil
}

// voiceFor maps a voice profile onto one of the fixed OpenAI voices. The
// mapping is deterministic so that identical profiles always hit the same
// cache entries downstream.
func voiceFor(v types.VoiceProfile) oai.AudioSpeechNewParamsVoice {
	switch v.Gender {
	case types.GenderFemale:
		switch v.Age {
		case types.AgeChild, types.AgeTeen:
			return oai.AudioSpeechNewParamsVoiceCoral
		case types.AgeElder:
			return oai.AudioSpeechNewParamsVoiceShimmer
		default:
			return oai.AudioSpeechNewParamsVoiceNova
		}
	case types.GenderMale:
		switch v.Age {
		case types.AgeChild, types.AgeTeen:
			return oai.AudioSpeechNewParamsVoiceEcho
		case types.AgeElder:
			return oai.AudioSpeechNewParamsVoiceAsh
		default:
			return oai.AudioSpeechNewParamsVoiceOnyx
		}
	default:
		if v.Age == types.AgeElder {
			return oai.AudioSpeechNewParamsVoiceFable
		}
		return oai.AudioSpeechNewParamsVoiceAlloy
	}
}

// instructionsFor turns the profile's tone and emotion into a delivery
// instruction for models that support one.
func instructionsFor(v types.VoiceProfile) string {
	var parts []string
	if v.Tone != "" {
		parts = append(parts, "Speak in a "+v.Tone+" tone.")
	}
	if v.Emotion != "" {
		parts = append(parts, "Convey a "+v.Emotion+" mood.")
	}
	return strings.Join(parts, " ")
}
