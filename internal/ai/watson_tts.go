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

const (
	// WatsonDefaultVoice is the voice used when none is configured.
	WatsonDefaultVoice  = "en-US_AllisonV3Voice"
	watsonDefaultAccept = "audio/mp3"
)

// WatsonTTSOption configures the Watson Text to Speech client.
type WatsonTTSOption func(*WatsonTTSClient)

// WithWatsonTTSHTTPClient sets the HTTP client used for synthesis requests.
func WithWatsonTTSHTTPClient(client *http.Client) WatsonTTSOption {
	return func(c *WatsonTTSClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithWatsonTTSAuthenticator replaces the default IAM authenticator.
func WithWatsonTTSAuthenticator(auth *IAMAuthenticator) WatsonTTSOption {
	return func(c *WatsonTTSClient) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WatsonTTSClient synthesizes speech with IBM Watson Text to Speech.
type WatsonTTSClient struct {
	serviceURL string
	accept     string
	auth       *IAMAuthenticator
	httpClient *http.Client
}

// NewWatsonTTS builds a client for the service at serviceURL authenticated
// with an IAM token derived from apiKey.
func NewWatsonTTS(apiKey, serviceURL string, opts ...WatsonTTSOption) *WatsonTTSClient {
	c := &WatsonTTSClient{
		serviceURL: strings.TrimRight(strings.TrimSpace(serviceURL), "/"),
		accept:     watsonDefaultAccept,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth == nil {
		c.auth = NewIAMAuthenticator(apiKey, "", nil)
	}
	return c
}

// Synthesize returns a reader for the audio stream. The caller closes it.
func (c *WatsonTTSClient) Synthesize(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	if c.serviceURL == "" {
		return nil, errors.New("watson tts: WATSON_TTS_URL is not set")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}
	if voice == "" {
		voice = WatsonDefaultVoice
	}

	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.serviceURL + "/v1/synthesize")
	if err != nil {
		return nil, fmt.Errorf("parse watson tts url: %w", err)
	}
	query := endpoint.Query()
	query.Set("voice", voice)
	endpoint.RawQuery = query.Encode()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(struct {
		Text string `json:"text"`
	}{Text: text}); err != nil {
		return nil, fmt.Errorf("encode watson tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("build watson tts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", c.accept)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp) {
		return nil, newAPIError("watson tts", resp)
	}
	return resp.Body, nil
}

// TTS writes MP3 audio to w. model is ignored; Watson selects the model by voice.
func (c *WatsonTTSClient) TTS(ctx context.Context, model, voice, text string, w io.Writer) error {
	reader, err := c.Synthesize(ctx, text, voice)
	if err != nil {
		return err
	}
	defer reader.Close()
	_, err = io.Copy(w, reader)
	return err
}
