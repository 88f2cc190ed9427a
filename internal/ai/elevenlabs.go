package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
const elevenLabsOutputFormat = "mp3_44100_128"

// ElevenLabsOption configures the ElevenLabs client.
type ElevenLabsOption func(*ElevenLabsClient)

// WithElevenLabsBaseURL sets the ElevenLabs API base URL.
func WithElevenLabsBaseURL(baseURL string) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithElevenLabsHTTPClient sets the HTTP client used for requests.
func WithElevenLabsHTTPClient(client *http.Client) ElevenLabsOption {
	return func(c *ElevenLabsClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// ElevenLabsClient is an alternate speech backend.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs constructs a new ElevenLabs client. The apiKey is required.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) (*ElevenLabsClient, error) {
	if apiKey == "" {
		return nil, errors.New("ELEVENLABS_API_KEY is required")
	}
	client := &ElevenLabsClient{
		apiKey:  apiKey,
		baseURL: elevenLabsDefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// TTS writes MP3 audio for voice (an ElevenLabs voice id) to w.
func (c *ElevenLabsClient) TTS(ctx context.Context, model, voice, text string, w io.Writer) error {
	if strings.TrimSpace(voice) == "" {
		return errors.New("voice_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("text is required")
	}

	endpoint, err := url.Parse(strings.TrimRight(c.baseURL, "/"))
	if err != nil {
		return fmt.Errorf("parse elevenlabs base url: %w", err)
	}
	endpoint.Path = fmt.Sprintf("/v1/text-to-speech/%s", url.PathEscape(voice))
	query := endpoint.Query()
	query.Set("output_format", elevenLabsOutputFormat)
	endpoint.RawQuery = query.Encode()

	body := struct {
		Text          string                   `json:"text"`
		ModelID       string                   `json:"model_id,omitempty"`
		VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
	}{
		Text:          text,
		ModelID:       model,
		VoiceSettings: &elevenLabsVoiceSettings{SimilarityBoost: 0.75, UseSpeakerBoost: true},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return fmt.Errorf("encode elevenlabs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return fmt.Errorf("build elevenlabs request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("accept", "audio/mpeg")
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	if !isSuccess(resp) {
		return newAPIError("elevenlabs", resp)
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}
