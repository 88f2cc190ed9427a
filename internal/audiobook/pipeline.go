package audiobook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"echoverse/internal/ai"
	"echoverse/internal/paths"
	"echoverse/internal/storage"
)

// ErrEmptyInput is reported when the user submits blank text.
var ErrEmptyInput = errors.New("please enter some text first")

// AudioStore persists run artifacts.
type AudioStore interface {
	CreateAudio(runID string) (*storage.PendingAudio, error)
	WriteFile(runID, name string, data []byte) error
}

// Options are fixed for the lifetime of a Pipeline.
type Options struct {
	Voice           string
	TTSModel        string
	RewriteProvider string
	TTSProvider     string
	// Timeout bounds a whole run; zero means no extra bound beyond ctx.
	Timeout time.Duration
}

// Pipeline runs rewrite -> synthesize -> store for one piece of text.
type Pipeline struct {
	rewriter ai.Rewriter
	tts      ai.TTSClient
	store    AudioStore
	opts     Options

	newRunID func() string
	now      func() time.Time
}

func New(rewriter ai.Rewriter, tts ai.TTSClient, store AudioStore, opts Options) *Pipeline {
	return &Pipeline{
		rewriter: rewriter,
		tts:      tts,
		store:    store,
		opts:     opts,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// Run executes one pipeline synchronously. It never returns nil; every
// failure is recorded on the Result so the caller can present it.
func (p *Pipeline) Run(ctx context.Context, text string) *Result {
	res := &Result{State: StateValidating, Input: text, StartedAt: p.now().UTC()}
	defer func() { res.FinishedAt = p.now().UTC() }()

	if IsBlank(text) {
		res.State = StateIdle
		res.Warning = ErrEmptyInput.Error()
		slog.Warn("empty input, nothing to do")
		return res
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	res.RunID = p.newRunID()
	log := slog.With("runID", res.RunID)
	log.Info("run start", "inputWords", WordCount(text), "rewriteProvider", p.opts.RewriteProvider, "ttsProvider", p.opts.TTSProvider)

	res.State = StateRewriting
	outcome := Rewrite(ctx, p.rewriter, text)
	res.Rewrite = &outcome
	switch outcome.Status {
	case RewriteFailed:
		res.Errors = append(res.Errors, fmt.Sprintf("Error calling rewrite service: %v", outcome.Err))
	case RewriteNoOutput:
		res.Notices = append(res.Notices, "The rewrite service returned no rewritten text; your original text was used.")
	}

	res.State = StateSynthesizing
	art, err := p.synthesize(ctx, res.RunID, outcome.Text)
	if err != nil {
		log.Error("synthesis failed", "err", err)
		res.Errors = append(res.Errors, fmt.Sprintf("Error with speech synthesis: %v", err))
		res.State = StateFailed
		return res
	}
	res.Audio = art

	res.State = StatePresenting
	p.writeSidecars(log, res)
	res.State = StateDone
	log.Info("run done", "rewriteStatus", outcome.Status, "audioBytes", art.Size, "path", art.Path)
	return res
}

func (p *Pipeline) synthesize(ctx context.Context, runID, text string) (*storage.Artifact, error) {
	pending, err := p.store.CreateAudio(runID)
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	defer pending.Abort()

	start := time.Now()
	if err := p.tts.TTS(ctx, p.opts.TTSModel, p.opts.Voice, text, pending); err != nil {
		return nil, err
	}
	art, err := pending.Commit()
	if err != nil {
		return nil, fmt.Errorf("save audio: %w", err)
	}
	slog.Info("audio synthesized", "runID", runID, "voice", p.opts.Voice, "elapsed", time.Since(start).String())
	return art, nil
}

// writeSidecars stores the rewritten text and run metadata. Failures here do
// not invalidate the audio, so they are only logged.
func (p *Pipeline) writeSidecars(log *slog.Logger, res *Result) {
	if err := p.store.WriteFile(res.RunID, paths.RewrittenFilename, []byte(res.Rewrite.Text)); err != nil {
		log.Warn("failed to write rewritten text", "err", err)
	}
	meta := RunMeta{
		RunID:              res.RunID,
		CreatedAt:          res.StartedAt.Format(time.RFC3339),
		RewriteStatus:      res.Rewrite.Status,
		RewriteProvider:    p.opts.RewriteProvider,
		TTSProvider:        p.opts.TTSProvider,
		Voice:              p.opts.Voice,
		InputWordCount:     WordCount(res.Input),
		RewrittenWordCount: WordCount(res.Rewrite.Text),
		AudioBytes:         res.Audio.Size,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		log.Warn("failed to encode run meta", "err", err)
		return
	}
	if err := p.store.WriteFile(res.RunID, paths.MetaFilename, metaBytes); err != nil {
		log.Warn("failed to write run meta", "err", err)
	}
}
