package audiobook

import (
	"time"

	"echoverse/internal/storage"
)

// State is a pipeline stage.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateRewriting    State = "rewriting"
	StateSynthesizing State = "synthesizing"
	StatePresenting   State = "presenting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Result is everything the presentation layer needs about one run.
type Result struct {
	RunID      string            `json:"runId,omitempty"`
	State      State             `json:"state"`
	Input      string            `json:"input"`
	Rewrite    *RewriteOutcome   `json:"rewrite,omitempty"`
	Audio      *storage.Artifact `json:"audio,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Notices    []string          `json:"notices,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
}

// HasAudio reports whether a playable artifact was produced.
func (r *Result) HasAudio() bool {
	return r != nil && r.Audio != nil
}

// RewrittenText returns the text that was (or would be) narrated.
func (r *Result) RewrittenText() string {
	if r == nil || r.Rewrite == nil {
		return ""
	}
	return r.Rewrite.Text
}

// RunMeta is written next to each committed artifact.
type RunMeta struct {
	RunID              string        `json:"runId"`
	CreatedAt          string        `json:"createdAt"`
	RewriteStatus      RewriteStatus `json:"rewriteStatus"`
	RewriteProvider    string        `json:"rewriteProvider"`
	TTSProvider        string        `json:"ttsProvider"`
	Voice              string        `json:"voice"`
	InputWordCount     int           `json:"inputWordCount"`
	RewrittenWordCount int           `json:"rewrittenWordCount"`
	AudioBytes         int64         `json:"audioBytes"`
}
