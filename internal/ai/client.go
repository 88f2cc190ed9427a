package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"
)

// Client wraps the official OpenAI SDK client and exposes minimal helpers used by the app.
type Client struct {
	apiKey  string
	baseURL string
	sdk     openai.Client
}

// New constructs a new AI client. The apiKey is required.
// baseURL is optional (empty string uses the default API endpoint).
func New(apiKey, baseURL string, extra ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	sdk := openai.NewClient(opts...)
	return &Client{apiKey: apiKey, baseURL: baseURL, sdk: sdk}, nil
}

func (c *Client) APIKey() string  { return c.apiKey }
func (c *Client) BaseURL() string { return c.baseURL }

// GenerateTextWithUsage calls the Responses API and returns concatenated output text.
// The system prompt is supplied via the "instructions" field.
func (c *Client) GenerateTextWithUsage(ctx context.Context, model, system, prompt string) (string, TokenUsage, error) {
	req := responses.ResponseNewParams{
		Model:        model,
		Instructions: param.NewOpt(system),
		Input:        responses.ResponseNewParamsInputUnion{OfString: param.NewOpt(prompt)},
	}
	res, err := c.sdk.Responses.New(ctx, req)
	if err != nil {
		return "", TokenUsage{}, err
	}
	return res.OutputText(), usageFromResponse(res.Usage), nil
}

// TTS writes MP3 audio to the provided writer using the Audio Speech API.
// model should be a TTS-capable model (e.g., gpt-4o-mini-tts) and voice is a supported voice name.
func (c *Client) TTS(ctx context.Context, model, voice, text string, w io.Writer) error {
	req := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	resp, err := c.sdk.Audio.Speech.New(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// OpenAIRewriter adapts Client to the Rewriter interface.
type OpenAIRewriter struct {
	client       *Client
	model        string
	instructions string
}

func NewOpenAIRewriter(client *Client, model, instructions string) *OpenAIRewriter {
	return &OpenAIRewriter{client: client, model: model, instructions: instructions}
}

// Rewrite returns ErrNoRewriteOutput when the model produced no text.
func (r *OpenAIRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	out, usage, err := r.client.GenerateTextWithUsage(ctx, r.model, r.instructions, text)
	if err != nil {
		return "", fmt.Errorf("openai rewrite: %w", err)
	}
	slog.Debug(
		"openai rewrite usage",
		"model", r.model,
		"inputTokens", usage.InputTokens,
		"outputTokens", usage.OutputTokens,
		"totalTokens", usage.TotalTokens,
	)
	if strings.TrimSpace(out) == "" {
		return "", ErrNoRewriteOutput
	}
	return strings.TrimSpace(out), nil
}
