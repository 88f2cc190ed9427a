package ai

import (
	"context"
	"errors"
	"io"
)

// ErrNoRewriteOutput is returned when the rewrite service answered successfully
// but the response carried no usable rewritten text.
var ErrNoRewriteOutput = errors.New("rewrite response has no output text")

// Rewriter rewrites user text with a language model.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// TTSClient synthesizes speech audio from text.
type TTSClient interface {
	TTS(ctx context.Context, model, voice, text string, w io.Writer) error
}
