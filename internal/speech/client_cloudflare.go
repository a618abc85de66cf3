package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultCloudflareBase  = "https://api.cloudflare.com"
	defaultCloudflareModel = "@cf/deepgram/aura-1"

	maxErrorBody = 4 << 10
)

type CloudflareConfig struct {
	AccountID string
	APIToken  string
	BaseURL   string
	Model     string
	Speaker   string
	Encoding  string
	Timeout   time.Duration
}

// CloudflareClient calls a Workers AI speech model.
type CloudflareClient struct {
	cfg     CloudflareConfig
	httpCli *http.Client
}

func NewCloudflareClient(cfg CloudflareConfig) (*CloudflareClient, error) {
	if cfg.AccountID == "" || cfg.APIToken == "" {
		return nil, errors.New("cloudflare account id and api token are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCloudflareBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultCloudflareModel
	}
	if cfg.Speaker == "" {
		cfg.Speaker = "angus"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "mp3"
	}

	return &CloudflareClient{
		cfg:     cfg,
		httpCli: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// TEXT → SPEECH
func (c *CloudflareClient) Synthesize(ctx context.Context, text string) (Audio, error) {
	url := fmt.Sprintf("%s/client/v4/accounts/%s/ai/run/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.AccountID, c.cfg.Model)

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"speaker":  c.cfg.Speaker,
		"encoding": c.cfg.Encoding,
	})
	if err != nil {
		return Audio{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("cloudflare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Audio{}, fmt.Errorf("cloudflare tts failed: status %d: %s", resp.StatusCode, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("read cloudflare audio: %w", err)
	}

	return Audio{Data: data, ContentType: ContentTypeMPEG}, nil
}
