package ai

import "github.com/openai/openai-go/v3/responses"

// TokenUsage captures token usage returned by the Responses API.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func usageFromResponse(usage responses.ResponseUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
	}
}
