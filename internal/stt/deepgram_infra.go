package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const (
	deepgramListenURL    = "wss://api.deepgram.com/v1/listen"
	deepgramWriteTimeout = 5 * time.Second
	deepgramCloseTimeout = 2 * time.Second
)

type DeepgramConfig struct {
	APIKey     string
	Endpoint   string
	Model      string
	Encoding   string
	SampleRate int
	// CloseTimeout bounds how long a stopped stream may keep flushing results.
	CloseTimeout time.Duration
	WriteTimeout time.Duration
}

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// DeepgramRecognizer streams audio to Deepgram live transcription.
// One websocket per listening run.
type DeepgramRecognizer struct {
	cfg    DeepgramConfig
	dialer *websocket.Dialer
	log    *logger.ZapLogger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewDeepgramRecognizer(cfg DeepgramConfig, log *logger.ZapLogger) *DeepgramRecognizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = deepgramListenURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = deepgramCloseTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = deepgramWriteTimeout
	}

	return &DeepgramRecognizer{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    log,
	}
}

func (d *DeepgramRecognizer) listenURL(locale string) (string, error) {
	u, err := url.Parse(d.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse deepgram endpoint: %w", err)
	}

	q := u.Query()
	q.Set("model", d.cfg.Model)
	q.Set("language", locale)
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("encoding", d.cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(d.cfg.SampleRate))
	q.Set("channels", "1")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (d *DeepgramRecognizer) Start(ctx context.Context, locale string, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return ErrRecognizerRunning
	}

	target, err := d.listenURL(locale)
	if err != nil {
		return err
	}

	header := http.Header{
		"Authorization": {"Token " + d.cfg.APIKey},
	}
	conn, resp, err := d.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: deepgram status %d", ErrPermissionDenied, resp.StatusCode)
		}
		return fmt.Errorf("deepgram dial: %w", err)
	}

	d.conn = conn
	go d.readLoop(conn, h)
	return nil
}

func (d *DeepgramRecognizer) Feed(pcm []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrRecognizerStopped
	}
	if len(pcm) == 0 {
		return nil
	}
	_ = d.conn.SetWriteDeadline(time.Now().Add(d.cfg.WriteTimeout))
	return d.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

// Stop asks Deepgram to flush and close the stream. The reader keeps delivering
// the flushed results to the stopped run until Deepgram closes the socket or
// CloseTimeout passes.
func (d *DeepgramRecognizer) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	conn := d.conn
	d.conn = nil

	_ = conn.SetWriteDeadline(time.Now().Add(d.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return multierr.Combine(err, conn.Close())
	}
	time.AfterFunc(d.cfg.CloseTimeout, func() { _ = conn.Close() })
	return nil
}

func (d *DeepgramRecognizer) readLoop(conn *websocket.Conn, h Handler) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			d.finish(conn, h, err)
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			d.log.Log(logger.LogEntry{Level: "warn", Message: "decode deepgram message", Error: err, Service: serviceName})
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		h.OnResult([]Result{{
			Text:  msg.Channel.Alternatives[0].Transcript,
			Final: msg.IsFinal,
		}})
	}
}

// finish ends a run: OnEnd after Stop or a normal close, OnError otherwise.
func (d *DeepgramRecognizer) finish(conn *websocket.Conn, h Handler, err error) {
	d.mu.Lock()
	stopped := d.conn != conn
	if !stopped {
		d.conn = nil
	}
	d.mu.Unlock()
	_ = conn.Close()

	if stopped {
		h.OnEnd()
		return
	}

	code := closeCode(err)
	if code == "" {
		h.OnEnd()
		return
	}
	d.log.Log(logger.LogEntry{Level: "warn", Message: "deepgram stream closed: " + code, Error: err, Service: serviceName})
	h.OnError(code)
}

// closeCode maps how Deepgram ended a live stream onto a recognition error code.
// Empty means a normal end.
func closeCode(err error) string {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return CodeNetwork
	}
	switch {
	case ce.Code == websocket.CloseNormalClosure:
		return ""
	case strings.Contains(ce.Text, "NET-0001"): // no audio received within the timeout
		return CodeNoSpeech
	case ce.Code == websocket.ClosePolicyViolation,
		strings.Contains(strings.ToLower(ce.Text), "auth"):
		return CodeNotAllowed
	default:
		return CodeNetwork
	}
}
