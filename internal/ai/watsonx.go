package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const watsonxDecodingMethod = "greedy"

// WatsonxOption configures the watsonx rewrite client.
type WatsonxOption func(*WatsonxClient)

// WithWatsonxHTTPClient sets the HTTP client used for requests.
func WithWatsonxHTTPClient(client *http.Client) WatsonxOption {
	return func(c *WatsonxClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithWatsonxModel sets the optional model_id and project_id sent with each request.
func WithWatsonxModel(modelID, projectID string) WatsonxOption {
	return func(c *WatsonxClient) {
		c.modelID = modelID
		c.projectID = projectID
	}
}

// WatsonxClient calls a watsonx.ai text generation endpoint to rewrite text.
type WatsonxClient struct {
	apiKey     string
	endpoint   string
	modelID    string
	projectID  string
	httpClient *http.Client
}

// NewWatsonx constructs a rewrite client. Missing credentials are not
// rejected here; they surface as request failures on first use.
func NewWatsonx(apiKey, endpoint string, opts ...WatsonxOption) *WatsonxClient {
	c := &WatsonxClient{
		apiKey:   apiKey,
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type watsonxMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type watsonxParameters struct {
	DecodingMethod string `json:"decoding_method"`
}

type watsonxRequest struct {
	Input      []watsonxMessage  `json:"input"`
	Parameters watsonxParameters `json:"parameters"`
	ModelID    string            `json:"model_id,omitempty"`
	ProjectID  string            `json:"project_id,omitempty"`
}

// Rewrite sends one POST with the user text and greedy decoding. It returns
// ErrNoRewriteOutput when the response has no non-empty string "output" field.
func (c *WatsonxClient) Rewrite(ctx context.Context, text string) (string, error) {
	if c.endpoint == "" {
		return "", errors.New("watsonx: WATSONX_URL is not set")
	}
	body := watsonxRequest{
		Input:      []watsonxMessage{{Role: "user", Content: text}},
		Parameters: watsonxParameters{DecodingMethod: watsonxDecodingMethod},
		ModelID:    c.modelID,
		ProjectID:  c.projectID,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", fmt.Errorf("encode watsonx request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build watsonx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp) {
		return "", newAPIError("watsonx", resp)
	}
	defer resp.Body.Close()

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode watsonx response: %w", err)
	}
	raw, ok := payload["output"]
	if !ok {
		return "", ErrNoRewriteOutput
	}
	var output string
	if err := json.Unmarshal(raw, &output); err != nil {
		return "", fmt.Errorf("%w: output is not a string", ErrNoRewriteOutput)
	}
	if strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("%w: output is empty", ErrNoRewriteOutput)
	}
	return output, nil
}
