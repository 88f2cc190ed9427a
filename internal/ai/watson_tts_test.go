package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newIAMServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != iamGrantType {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("apikey") != "tts-key" {
			http.Error(w, `{"errorMessage":"invalid api key"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "iam-token",
			"expires_in":   3600,
		})
	}))
}

func TestWatsonTTSWritesAudioBytes(t *testing.T) {
	var iamCalls int32
	iam := newIAMServer(t, &iamCalls)
	defer iam.Close()

	audio := []byte{0xff, 0xfb, 0x90, 0x00, 0x01, 0x02, 0x03}
	var gotVoice, gotAccept, gotAuth string
	var gotText string
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/synthesize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotVoice = r.URL.Query().Get("voice")
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotText = body.Text
		w.Header().Set("Content-Type", "audio/mp3")
		_, _ = w.Write(audio)
	}))
	defer svc.Close()

	auth := NewIAMAuthenticator("tts-key", iam.URL, nil)
	c := NewWatsonTTS("tts-key", svc.URL+"/", WithWatsonTTSAuthenticator(auth))

	var buf bytes.Buffer
	if err := c.TTS(context.Background(), "", "", "Greetings, world!", &buf); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), audio) {
		t.Fatalf("audio bytes changed: %v", buf.Bytes())
	}
	if gotVoice != WatsonDefaultVoice {
		t.Fatalf("voice = %q", gotVoice)
	}
	if gotAccept != "audio/mp3" {
		t.Fatalf("accept = %q", gotAccept)
	}
	if gotAuth != "Bearer iam-token" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotText != "Greetings, world!" {
		t.Fatalf("text = %q", gotText)
	}

	buf.Reset()
	if err := c.TTS(context.Background(), "", "en-GB_KateV3Voice", "again", &buf); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if gotVoice != "en-GB_KateV3Voice" {
		t.Fatalf("voice = %q", gotVoice)
	}
	if n := atomic.LoadInt32(&iamCalls); n != 1 {
		t.Fatalf("expected one IAM token request, got %d", n)
	}
}

func TestWatsonTTSAuthFailure(t *testing.T) {
	var iamCalls int32
	iam := newIAMServer(t, &iamCalls)
	defer iam.Close()

	var synthCalls int32
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&synthCalls, 1)
	}))
	defer svc.Close()

	c := NewWatsonTTS("wrong", svc.URL, WithWatsonTTSAuthenticator(NewIAMAuthenticator("wrong", iam.URL, nil)))
	var buf bytes.Buffer
	err := c.TTS(context.Background(), "", "", "Tested text", &buf)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Service != "iam" {
		t.Fatalf("expected iam APIError, got %v", err)
	}
	if atomic.LoadInt32(&synthCalls) != 0 {
		t.Fatalf("synthesize must not be called without a token")
	}
	if buf.Len() != 0 {
		t.Fatalf("no audio expected")
	}
}

func TestWatsonTTSServiceError(t *testing.T) {
	var iamCalls int32
	iam := newIAMServer(t, &iamCalls)
	defer iam.Close()
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Model not found"}`, http.StatusNotFound)
	}))
	defer svc.Close()

	c := NewWatsonTTS("tts-key", svc.URL, WithWatsonTTSAuthenticator(NewIAMAuthenticator("tts-key", iam.URL, nil)))
	err := c.TTS(context.Background(), "", "xx-Nope", "hi", &bytes.Buffer{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}
}

func TestWatsonTTSRequiresURLAndText(t *testing.T) {
	if err := NewWatsonTTS("k", "").TTS(context.Background(), "", "", "hi", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without service url")
	}
	if err := NewWatsonTTS("k", "https://example.com").TTS(context.Background(), "", "", "  ", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for blank text")
	}
}

func TestIAMTokenRefreshesAfterExpiry(t *testing.T) {
	var calls int32
	iam := newIAMServer(t, &calls)
	defer iam.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	auth := NewIAMAuthenticator("tts-key", iam.URL, nil)
	auth.now = func() time.Time { return now }

	if _, err := auth.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	now = now.Add(30 * time.Minute)
	if _, err := auth.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("token should be reused before expiry")
	}
	now = now.Add(30 * time.Minute)
	if _, err := auth.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("token should be refreshed near expiry, calls=%d", calls)
	}
}

func TestIAMTokenRequiresKey(t *testing.T) {
	if _, err := NewIAMAuthenticator("", "http://127.0.0.1:0", nil).Token(context.Background()); err == nil {
		t.Fatalf("expected error without api key")
	}
}
