package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted for rewriteProvider / ttsProvider.
const (
	ProviderWatsonx    = "watsonx"
	ProviderWatson     = "watson"
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
)

// Config holds resolved configuration values after merging file, env, and flags.
type Config struct {
	RewriteProvider string `json:"rewriteProvider,omitempty"`
	TTSProvider     string `json:"ttsProvider,omitempty"`
	Voice           string `json:"voice,omitempty"`
	TextModel       string `json:"textModel,omitempty"`
	TTSModel        string `json:"ttsModel,omitempty"`
	WatsonxModelID  string `json:"watsonxModelId,omitempty"`
	WatsonxProject  string `json:"watsonxProjectId,omitempty"`
	OutDir          string `json:"outDir,omitempty"`
	Addr            string `json:"addr,omitempty"`
	RequestTimeout  string `json:"requestTimeout,omitempty"`
	RunTimeout      string `json:"runTimeout,omitempty"`
	RateLimit       int    `json:"rateLimit,omitempty"`
	S3Bucket        string `json:"s3Bucket,omitempty"`
	S3Prefix        string `json:"s3Prefix,omitempty"`
	Region          string `json:"region,omitempty"`
	Debug           bool   `json:"debug,omitempty"`
	Overwrite       bool   `json:"overwrite,omitempty"`

	// Not persisted to file; sourced from env only.
	Secrets Secrets `json:"-"`
}

// Secrets are credentials and endpoints read from the environment only.
type Secrets struct {
	WatsonxAPIKey    string
	WatsonxURL       string
	WatsonTTSAPIKey  string
	WatsonTTSURL     string
	OpenAIAPIKey     string
	ElevenLabsAPIKey string
}

// Overrides represents optional overrides from env or flags.
// Only non-nil pointers are applied during merge.
type Overrides struct {
	RewriteProvider *string
	TTSProvider     *string
	Voice           *string
	TextModel       *string
	TTSModel        *string
	WatsonxModelID  *string
	WatsonxProject  *string
	OutDir          *string
	Addr            *string
	RequestTimeout  *string
	RunTimeout      *string
	RateLimit       *int
	S3Bucket        *string
	S3Prefix        *string
	Region          *string
	Debug           *bool
	Overwrite       *bool
}

func Default() Config {
	return Config{
		RewriteProvider: ProviderWatsonx,
		TTSProvider:     ProviderWatson,
		Voice:           "en-US_AllisonV3Voice",
		TextModel:       "gpt-4o-mini",
		TTSModel:        "gpt-4o-mini-tts",
		OutDir:          "out",
		Addr:            ":8501",
		RequestTimeout:  "60s",
		RunTimeout:      "3m",
		RateLimit:       20,
		S3Prefix:        "echoverse",
	}
}

// LoadFile reads a JSON config. If file not found, returns defaults and no error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// FromEnv reads env vars and returns overrides and the secrets.
func FromEnv() (Overrides, Secrets) {
	var ov Overrides

	str := func(key string, dst **string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = &v
		}
	}
	boolean := func(key string, dst **bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := parseBool(v); err == nil {
				*dst = &b
			}
		}
	}

	str("ECHOVERSE_REWRITE_PROVIDER", &ov.RewriteProvider)
	str("ECHOVERSE_TTS_PROVIDER", &ov.TTSProvider)
	str("ECHOVERSE_VOICE", &ov.Voice)
	str("ECHOVERSE_TEXT_MODEL", &ov.TextModel)
	str("ECHOVERSE_TTS_MODEL", &ov.TTSModel)
	str("ECHOVERSE_WATSONX_MODEL_ID", &ov.WatsonxModelID)
	str("ECHOVERSE_WATSONX_PROJECT_ID", &ov.WatsonxProject)
	str("ECHOVERSE_OUT_DIR", &ov.OutDir)
	str("ECHOVERSE_ADDR", &ov.Addr)
	str("ECHOVERSE_REQUEST_TIMEOUT", &ov.RequestTimeout)
	str("ECHOVERSE_RUN_TIMEOUT", &ov.RunTimeout)
	if v, ok := os.LookupEnv("ECHOVERSE_RATE_LIMIT"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			ov.RateLimit = &n
		}
	}
	str("AWS_S3_BUCKET", &ov.S3Bucket)
	str("AWS_S3_PREFIX", &ov.S3Prefix)
	str("AWS_REGION", &ov.Region)
	boolean("ECHOVERSE_DEBUG", &ov.Debug)
	boolean("ECHOVERSE_OVERWRITE", &ov.Overwrite)

	secrets := Secrets{
		WatsonxAPIKey:    os.Getenv("WATSONX_API_KEY"),
		WatsonxURL:       os.Getenv("WATSONX_URL"),
		WatsonTTSAPIKey:  os.Getenv("WATSON_TTS_API_KEY"),
		WatsonTTSURL:     os.Getenv("WATSON_TTS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
	}
	return ov, secrets
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return false, fmt.Errorf("empty bool")
	}
	if s == "1" || s == "t" || s == "true" || s == "y" || s == "yes" || s == "on" {
		return true, nil
	}
	if s == "0" || s == "f" || s == "false" || s == "n" || s == "no" || s == "off" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Merge applies overrides in order: file -> env -> flags.
func Merge(fileCfg Config, env Overrides, flags Overrides, secrets Secrets) Config {
	cfg := fileCfg

	apply := func(ov Overrides) {
		setStr := func(dst *string, v *string) {
			if v != nil {
				*dst = *v
			}
		}
		setStr(&cfg.RewriteProvider, ov.RewriteProvider)
		setStr(&cfg.TTSProvider, ov.TTSProvider)
		setStr(&cfg.Voice, ov.Voice)
		setStr(&cfg.TextModel, ov.TextModel)
		setStr(&cfg.TTSModel, ov.TTSModel)
		setStr(&cfg.WatsonxModelID, ov.WatsonxModelID)
		setStr(&cfg.WatsonxProject, ov.WatsonxProject)
		setStr(&cfg.OutDir, ov.OutDir)
		setStr(&cfg.Addr, ov.Addr)
		setStr(&cfg.RequestTimeout, ov.RequestTimeout)
		setStr(&cfg.RunTimeout, ov.RunTimeout)
		setStr(&cfg.S3Bucket, ov.S3Bucket)
		setStr(&cfg.S3Prefix, ov.S3Prefix)
		setStr(&cfg.Region, ov.Region)
		if ov.RateLimit != nil {
			cfg.RateLimit = *ov.RateLimit
		}
		if ov.Debug != nil {
			cfg.Debug = *ov.Debug
		}
		if ov.Overwrite != nil {
			cfg.Overwrite = *ov.Overwrite
		}
	}

	apply(env)
	apply(flags)

	cfg.RewriteProvider = strings.ToLower(strings.TrimSpace(cfg.RewriteProvider))
	cfg.TTSProvider = strings.ToLower(strings.TrimSpace(cfg.TTSProvider))
	cfg.Secrets = secrets
	return cfg
}

// RequestTimeoutDuration bounds a single outbound vendor call.
func (c Config) RequestTimeoutDuration() time.Duration {
	return parseDuration(c.RequestTimeout, 60*time.Second)
}

// RunTimeoutDuration bounds one whole rewrite+synthesize run.
func (c Config) RunTimeoutDuration() time.Duration {
	return parseDuration(c.RunTimeout, 3*time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validation helpers

// ValidateForRun checks the provider selection. Credentials for the default
// IBM providers are not checked here; a missing key surfaces on first use.
func ValidateForRun(cfg Config) error {
	switch cfg.RewriteProvider {
	case ProviderWatsonx:
	case ProviderOpenAI:
		if cfg.Secrets.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai rewrite provider")
		}
		if cfg.TextModel == "" {
			return errors.New("text model is required")
		}
	default:
		return fmt.Errorf("unsupported rewrite provider: %s", cfg.RewriteProvider)
	}
	switch cfg.TTSProvider {
	case ProviderWatson:
	case ProviderOpenAI:
		if cfg.Secrets.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai tts provider")
		}
		if cfg.TTSModel == "" {
			return errors.New("tts model is required")
		}
	case ProviderElevenLabs:
		if cfg.Secrets.ElevenLabsAPIKey == "" {
			return errors.New("ELEVENLABS_API_KEY is required for the elevenlabs tts provider")
		}
	default:
		return fmt.Errorf("unsupported tts provider: %s", cfg.TTSProvider)
	}
	if cfg.Voice == "" {
		return errors.New("voice is required")
	}
	if cfg.OutDir == "" {
		return errors.New("output directory is required")
	}
	return nil
}

func ValidateForServe(cfg Config) error {
	if err := ValidateForRun(cfg); err != nil {
		return err
	}
	if cfg.Addr == "" {
		return errors.New("listen address is required")
	}
	return nil
}

func ValidateForPublish(cfg Config) error {
	if cfg.S3Bucket == "" {
		return errors.New("S3 bucket is required for publish")
	}
	if cfg.Region == "" {
		return errors.New("AWS region is required for publish")
	}
	return nil
}
