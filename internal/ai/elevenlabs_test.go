package ai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestElevenLabsRequiresKey(t *testing.T) {
	if _, err := NewElevenLabs(""); err == nil {
		t.Fatalf("expected error when api key missing")
	}
}

func TestElevenLabsTTS(t *testing.T) {
	var gotPath, gotKey, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		gotFormat = r.URL.Query().Get("output_format")
		_, _ = w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	c, err := NewElevenLabs("el-key", WithElevenLabsBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var buf bytes.Buffer
	if err := c.TTS(context.Background(), "eleven_multilingual_v2", "voice-123", "hello", &buf); err != nil {
		t.Fatalf("TTS: %v", err)
	}
	if buf.String() != "mp3bytes" {
		t.Fatalf("audio = %q", buf.String())
	}
	if gotPath != "/v1/text-to-speech/voice-123" || gotKey != "el-key" || gotFormat != "mp3_44100_128" {
		t.Fatalf("request mismatch: path=%s key=%s format=%s", gotPath, gotKey, gotFormat)
	}
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, _ := NewElevenLabs("el-key", WithElevenLabsBaseURL(srv.URL))
	err := c.TTS(context.Background(), "", "voice-123", "hello", &bytes.Buffer{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 APIError, got %v", err)
	}
}
