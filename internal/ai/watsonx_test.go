package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWatsonxRewriteSendsExpectedRequest(t *testing.T) {
	var gotBody map[string]any
	var gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"Greetings, world!"}`))
	}))
	defer srv.Close()

	c := NewWatsonx("wx-key", srv.URL)
	out, err := c.Rewrite(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "Greetings, world!" {
		t.Fatalf("output = %q", out)
	}
	if gotAuth != "Bearer wx-key" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Fatalf("content-type = %q", gotType)
	}

	input, ok := gotBody["input"].([]any)
	if !ok || len(input) != 1 {
		t.Fatalf("input = %#v", gotBody["input"])
	}
	msg := input[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "Hello world" {
		t.Fatalf("message = %#v", msg)
	}
	params := gotBody["parameters"].(map[string]any)
	if params["decoding_method"] != "greedy" {
		t.Fatalf("parameters = %#v", params)
	}
	if _, ok := gotBody["model_id"]; ok {
		t.Fatalf("model_id should be omitted when unset")
	}
}

func TestWatsonxRewriteMissingOutput(t *testing.T) {
	cases := map[string]string{
		"absent":     `{"results":[{"generated_text":"x"}]}`,
		"empty":      `{"output":"   "}`,
		"not string": `{"output":{"text":"x"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewWatsonx("k", srv.URL).Rewrite(context.Background(), "Test")
			if !errors.Is(err, ErrNoRewriteOutput) {
				t.Fatalf("expected ErrNoRewriteOutput, got %v", err)
			}
		})
	}
}

func TestWatsonxRewriteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewWatsonx("k", srv.URL).Rewrite(context.Background(), "Test")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Body != "bad token" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if errors.Is(err, ErrNoRewriteOutput) {
		t.Fatalf("http failure must not look like a missing output")
	}
}

func TestWatsonxRewriteRequiresEndpoint(t *testing.T) {
	if _, err := NewWatsonx("k", "").Rewrite(context.Background(), "Test"); err == nil {
		t.Fatalf("expected error without endpoint")
	}
}

func TestWatsonxRewriteSendsModel(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"output":"ok"}`))
	}))
	defer srv.Close()

	c := NewWatsonx("k", srv.URL, WithWatsonxModel("ibm/granite-13b-instruct-v2", "proj-1"))
	if _, err := c.Rewrite(context.Background(), "Test"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotBody["model_id"] != "ibm/granite-13b-instruct-v2" || gotBody["project_id"] != "proj-1" {
		t.Fatalf("model fields missing: %#v", gotBody)
	}
}
