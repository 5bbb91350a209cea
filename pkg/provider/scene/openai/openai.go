// Package openai provides a scene-breakdown provider backed by the OpenAI
// chat completions API in JSON mode.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/quillcast/narrator/pkg/provider/scene"
	"github.com/quillcast/narrator/pkg/types"
)

const defaultModel = "gpt-4o-mini"

// systemPrompt instructs the model to emit the breakdown as a fixed JSON
// shape. The exact prompt wording is deliberately plain; quality tuning of
// the breakdown is out of scope for this provider.
const systemPrompt = `You split scene prose into an ordered list of speech segments for audio narration.
Return JSON: {"segments":[{"text":"...","kind":"narration|dialogue|internal_monologue","speaker":"...","gender":"male|female|neutral","age":"child|teen|adult|elder","tone":"...","emotion":"..."}]}
Rules:
- Cover the scene in reading order. Use the exact wording from the input for each segment's text.
- Attribute dialogue to the closest matching character from the roster; use "Narrator" for narration.
- Keep tone and emotion to one or two words.`

// Provider implements scene.Provider using OpenAI chat completions.
type Provider struct {
	client oai.Client
	model  string
	hasKey bool
}

// Compile-time interface assertion.
var _ scene.Provider = (*Provider)(nil)

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

// New constructs an OpenAI scene Provider. An empty apiKey is allowed;
// BreakdownScene then fails and the analyzer's fallback applies.
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

// wireSegment is the JSON shape the model is asked to produce.
type wireSegment struct {
	Text    string `json:"text"`
	Kind    string `json:"kind"`
	Speaker string `json:"speaker"`
	Gender  string `json:"gender"`
	Age     string `json:"age"`
	Tone    string `json:"tone"`
	Emotion string `json:"emotion"`
}

// wireResponse is the top-level JSON object returned by the model.
type wireResponse struct {
	Segments []wireSegment `json:"segments"`
}

// BreakdownScene implements scene.Provider.
func (p *Provider) BreakdownScene(ctx context.Context, text string, roster []types.Character) ([]types.Segment, error) {
	if !p.hasKey {
		return nil, fmt.Errorf("openai: missing credentials")
	}

	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt(text, roster)),
		},
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: scene breakdown: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &wire); err != nil {
		return nil, fmt.Errorf("openai: decode breakdown: %w", err)
	}
	if len(wire.Segments) == 0 {
		return nil, fmt.Errorf("openai: breakdown contains no segments")
	}

	return toSegments(wire.Segments, roster), nil
}

// userPrompt assembles the scene text and roster into the user message.
func userPrompt(text string, roster []types.Character) string {
	var b strings.Builder
	b.WriteString("Characters:\n")
	if len(roster) == 0 {
		b.WriteString("(none known)\n")
	}
	for _, c := range roster {
		b.WriteString("- ")
		b.WriteString(c.Name)
		if c.Description != "" {
			b.WriteString(": ")
			b.WriteString(c.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nScene:\n")
	b.WriteString(text)
	return b.String()
}

// toSegments converts wire segments into domain segments, resolving speaker
// IDs and voice profiles against the roster.
func toSegments(wire []wireSegment, roster []types.Character) []types.Segment {
	byName := make(map[string]types.Character, len(roster))
	for _, c := range roster {
		byName[strings.ToLower(c.Name)] = c
	}

	out := make([]types.Segment, 0, len(wire))
	for _, w := range wire {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		seg := types.Segment{
			Text:        w.Text,
			Kind:        types.SegmentKind(w.Kind),
			SpeakerName: w.Speaker,
			Voice: types.VoiceProfile{
				Gender:  types.Gender(w.Gender),
				Age:     types.AgeGroup(w.Age),
				Tone:    w.Tone,
				Emotion: w.Emotion,
			},
		}
		if !seg.Kind.IsValid() {
			seg.Kind = types.KindNarration
		}
		if seg.SpeakerName == "" {
			seg.SpeakerName = "Narrator"
		}
		if c, ok := byName[strings.ToLower(w.Speaker)]; ok {
			seg.SpeakerID = c.ID
			// Roster voices win over model guesses: the author configured them.
			seg.Voice = c.Voice
			if seg.Voice.Tone == "" {
				seg.Voice.Tone = w.Tone
			}
			if seg.Voice.Emotion == "" {
				seg.Voice.Emotion = w.Emotion
			}
		}
		if seg.Voice.Gender == "" {
			seg.Voice = types.NeutralVoice
		}
		out = append(out, seg)
	}
	return out
}
