package main

import (
	"fmt"
	"net/http"

	"echoverse/internal/ai"
	"echoverse/internal/audiobook"
	cfgpkg "echoverse/internal/config"
	"echoverse/internal/storage"
)

const (
	openAIDefaultVoice     = "alloy"
	elevenLabsDefaultVoice = "EXAVITQu4vr4xnSDxMaL"
)

var newRewriter = func(cfg cfgpkg.Config) (ai.Rewriter, error) {
	switch cfg.RewriteProvider {
	case cfgpkg.ProviderWatsonx:
		return ai.NewWatsonx(
			cfg.Secrets.WatsonxAPIKey,
			cfg.Secrets.WatsonxURL,
			ai.WithWatsonxHTTPClient(&http.Client{Timeout: cfg.RequestTimeoutDuration()}),
			ai.WithWatsonxModel(cfg.WatsonxModelID, cfg.WatsonxProject),
		), nil
	case cfgpkg.ProviderOpenAI:
		client, err := ai.New(cfg.Secrets.OpenAIAPIKey, "")
		if err != nil {
			return nil, err
		}
		return ai.NewOpenAIRewriter(client, cfg.TextModel, audiobook.RewriteInstructions), nil
	default:
		return nil, fmt.Errorf("unsupported rewrite provider: %s", cfg.RewriteProvider)
	}
}

var newTTSClient = func(cfg cfgpkg.Config) (ai.TTSClient, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeoutDuration()}
	switch cfg.TTSProvider {
	case cfgpkg.ProviderWatson:
		return ai.NewWatsonTTS(
			cfg.Secrets.WatsonTTSAPIKey,
			cfg.Secrets.WatsonTTSURL,
			ai.WithWatsonTTSHTTPClient(httpClient),
		), nil
	case cfgpkg.ProviderOpenAI:
		return ai.New(cfg.Secrets.OpenAIAPIKey, "")
	case cfgpkg.ProviderElevenLabs:
		return ai.NewElevenLabs(cfg.Secrets.ElevenLabsAPIKey, ai.WithElevenLabsHTTPClient(httpClient))
	default:
		return nil, fmt.Errorf("unsupported tts provider: %s", cfg.TTSProvider)
	}
}

// resolveVoice maps the Watson default voice to a sensible default for the
// other providers, which use their own voice names.
func resolveVoice(cfg cfgpkg.Config) string {
	if cfg.Voice != ai.WatsonDefaultVoice {
		return cfg.Voice
	}
	switch cfg.TTSProvider {
	case cfgpkg.ProviderOpenAI:
		return openAIDefaultVoice
	case cfgpkg.ProviderElevenLabs:
		return elevenLabsDefaultVoice
	default:
		return cfg.Voice
	}
}

// buildPipeline wires the configured clients into a pipeline. Clients are
// constructed once and live as long as the process.
func buildPipeline(cfg cfgpkg.Config) (*audiobook.Pipeline, *storage.FileStore, error) {
	rewriter, err := newRewriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	tts, err := newTTSClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewFileStore(cfg.OutDir)
	ttsModel := cfg.TTSModel
	if cfg.TTSProvider == cfgpkg.ProviderElevenLabs {
		ttsModel = ""
	}
	p := audiobook.New(rewriter, tts, store, audiobook.Options{
		Voice:           resolveVoice(cfg),
		TTSModel:        ttsModel,
		RewriteProvider: cfg.RewriteProvider,
		TTSProvider:     cfg.TTSProvider,
		Timeout:         cfg.RunTimeoutDuration(),
	})
	return p, store, nil
}
