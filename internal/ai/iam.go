package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	iamDefaultURL = "https://iam.cloud.ibm.com/identity/token"
	iamGrantType  = "urn:ibm:params:oauth:grant-type:apikey"
	// refresh a little before the token actually expires
	iamExpirySkew = 60 * time.Second
)

// IAMAuthenticator exchanges an IBM Cloud API key for a bearer token and
// reuses it until it is about to expire.
type IAMAuthenticator struct {
	apiKey     string
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewIAMAuthenticator builds an authenticator for apiKey. tokenURL and client
// are optional.
func NewIAMAuthenticator(apiKey, tokenURL string, client *http.Client) *IAMAuthenticator {
	if tokenURL == "" {
		tokenURL = iamDefaultURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IAMAuthenticator{
		apiKey:     apiKey,
		tokenURL:   tokenURL,
		httpClient: client,
		now:        time.Now,
	}
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// Token returns a valid access token, requesting a new one when needed.
func (a *IAMAuthenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Add(iamExpirySkew).Before(a.expires) {
		return a.token, nil
	}
	if a.apiKey == "" {
		return "", errors.New("iam: api key is not set")
	}

	form := url.Values{}
	form.Set("grant_type", iamGrantType)
	form.Set("apikey", a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build iam request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("iam token request: %w", err)
	}
	if !isSuccess(resp) {
		return "", newAPIError("iam", resp)
	}
	defer resp.Body.Close()

	var tok iamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode iam response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("iam: response has no access_token")
	}

	a.token = tok.AccessToken
	switch {
	case tok.Expiration > 0:
		a.expires = time.Unix(tok.Expiration, 0)
	case tok.ExpiresIn > 0:
		a.expires = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		a.expires = a.now().Add(time.Hour)
	}
	return a.token, nil
}
