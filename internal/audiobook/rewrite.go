package audiobook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"echoverse/internal/ai"
)

// RewriteStatus says where RewriteOutcome.Text came from.
type RewriteStatus string

const (
	// RewriteOK means the service returned rewritten text.
	RewriteOK RewriteStatus = "rewritten"
	// RewriteNoOutput means the call succeeded but carried no rewritten text.
	RewriteNoOutput RewriteStatus = "fallback_no_output"
	// RewriteFailed means the call itself failed (transport, status, decode).
	RewriteFailed RewriteStatus = "fallback_error"
)

// RewriteOutcome is the result of the rewrite step. On any fallback, Text is
// the user's input verbatim and Err holds the cause.
type RewriteOutcome struct {
	Status RewriteStatus `json:"status"`
	Text   string        `json:"text"`
	Err    error         `json:"-"`
}

// Fallback reports whether Text is the original input.
func (o RewriteOutcome) Fallback() bool {
	return o.Status != RewriteOK
}

// Rewrite calls r once and folds every failure into a fallback outcome.
func Rewrite(ctx context.Context, r ai.Rewriter, text string) RewriteOutcome {
	start := time.Now()
	out, err := r.Rewrite(ctx, text)
	switch {
	case err == nil:
		slog.Info("rewrite received", "elapsed", time.Since(start).String(), "chars", len(out))
		return RewriteOutcome{Status: RewriteOK, Text: out}
	case errors.Is(err, ai.ErrNoRewriteOutput):
		slog.Warn("rewrite returned no output", "elapsed", time.Since(start).String(), "err", err)
		return RewriteOutcome{Status: RewriteNoOutput, Text: text, Err: err}
	default:
		slog.Error("rewrite call failed", "elapsed", time.Since(start).String(), "err", err)
		return RewriteOutcome{Status: RewriteFailed, Text: text, Err: err}
	}
}
