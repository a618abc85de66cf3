package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Vovarama1992/speech_studio/internal/stt"
)

const (
	ProviderCloudflare = "cloudflare"
	ProviderOpenAI     = "openai"

	ClipboardClient = "client"
	ClipboardSystem = "system"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	TTS TTSConfig
	STT STTConfig
}

type TTSConfig struct {
	Provider  string        `env:"TTS_PROVIDER" envDefault:"cloudflare"`
	Timeout   time.Duration `env:"TTS_TIMEOUT" envDefault:"30s"`
	RateLimit int           `env:"TTS_RATE_LIMIT" envDefault:"30"` // запросов в минуту с одного IP

	// Cloudflare Workers AI
	AccountID string `env:"CF_ACCOUNT_ID"`
	APIToken  string `env:"CF_API_TOKEN"`
	APIBase   string `env:"CF_API_BASE" envDefault:"https://api.cloudflare.com"`
	Model     string `env:"CF_TTS_MODEL" envDefault:"@cf/deepgram/aura-1"`
	Speaker   string `env:"TTS_SPEAKER" envDefault:"angus"`
	Encoding  string `env:"TTS_ENCODING" envDefault:"mp3"`

	// OpenAI
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_TTS_MODEL" envDefault:"tts-1"`
	OpenAIVoice string `env:"OPENAI_TTS_VOICE" envDefault:"alloy"`
}

type STTConfig struct {
	DeepgramKey   string `env:"DEEPGRAM_API_KEY"`
	DeepgramModel string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	Encoding      string `env:"STT_ENCODING" envDefault:"linear16"`
	SampleRate    int    `env:"STT_SAMPLE_RATE" envDefault:"16000"`

	DefaultLanguage string        `env:"STT_DEFAULT_LANGUAGE" envDefault:"en-US"`
	RestartDelay    time.Duration `env:"STT_RESTART_DELAY" envDefault:"100ms"`
	MaxRestarts     int           `env:"STT_MAX_RESTARTS" envDefault:"3"` // <0: без автоперезапуска
	RestartWindow   time.Duration `env:"STT_RESTART_WINDOW" envDefault:"10s"`
	Clipboard       string        `env:"STT_CLIPBOARD" envDefault:"client"`
}

// Load reads the process environment. Call godotenv.Load before it to pick up .env.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.TTS.Provider {
	case ProviderCloudflare:
		if c.TTS.AccountID == "" || c.TTS.APIToken == "" {
			return fmt.Errorf("%w: CF_ACCOUNT_ID and CF_API_TOKEN are required for the cloudflare provider", ErrInvalidConfig)
		}
	case ProviderOpenAI:
		if c.TTS.OpenAIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown TTS_PROVIDER %q", ErrInvalidConfig, c.TTS.Provider)
	}

	if c.TTS.RateLimit <= 0 {
		return fmt.Errorf("%w: TTS_RATE_LIMIT must be positive", ErrInvalidConfig)
	}

	if _, ok := stt.LookupLanguage(c.STT.DefaultLanguage); !ok {
		return fmt.Errorf("%w: unsupported STT_DEFAULT_LANGUAGE %q", ErrInvalidConfig, c.STT.DefaultLanguage)
	}

	switch c.STT.Clipboard {
	case ClipboardClient, ClipboardSystem:
	default:
		return fmt.Errorf("%w: unknown STT_CLIPBOARD %q", ErrInvalidConfig, c.STT.Clipboard)
	}
	return nil
}

// STTEnabled is false when no recognition backend is configured.
func (c *Config) STTEnabled() bool {
	return c.STT.DeepgramKey != ""
}
