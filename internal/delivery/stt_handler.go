package delivery

import (
	"context"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Vovarama1992/speech_studio/internal/error_notificator"
	"github.com/Vovarama1992/speech_studio/internal/stt"
)

// RecognizerFactory builds the recognizer for one stream. nil means recognition is unavailable.
type RecognizerFactory func() stt.Recognizer

type STTConfig struct {
	DefaultLocale  string
	RestartDelay   time.Duration
	MaxRestarts    int
	RestartWindow  time.Duration
	AllowedOrigins []string
}

type command struct {
	Type   string `json:"type"`
	Locale string `json:"locale,omitempty"`
}

type STTHandler struct {
	newRecognizer RecognizerFactory
	clipboard     stt.Clipboard // nil: буфер обмена на стороне браузера
	cfg           STTConfig
	notifier      error_notificator.Notificator
	log           *logger.ZapLogger
	upgrader      websocket.Upgrader
}

func NewSTTHandler(
	newRecognizer RecognizerFactory,
	clipboard stt.Clipboard,
	cfg STTConfig,
	notifier error_notificator.Notificator,
	log *logger.ZapLogger,
) *STTHandler {
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = stt.DefaultLocale
	}

	h := &STTHandler{
		newRecognizer: newRecognizer,
		clipboard:     clipboard,
		cfg:           cfg,
		notifier:      notifier,
		log:           log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  32 << 10,
		WriteBufferSize: 8 << 10,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *STTHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *STTHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": stt.Languages,
		"default":   h.cfg.DefaultLocale,
		"available": h.newRecognizer != nil,
	})
}

// Stream runs one speech-to-text session over a websocket.
// Text frames are commands, binary frames are microphone audio.
func (h *STTHandler) Stream(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("lang")
	if locale == "" {
		locale = h.cfg.DefaultLocale
	}
	if _, ok := stt.LookupLanguage(locale); !ok {
		writeJSONError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "stt upgrade failed", Error: err, Service: "delivery"})
		return
	}

	sessionID := uuid.NewString()
	client := newWSClient(conn, sessionID, h.log)
	defer client.Close()

	capability := stt.Unavailable()
	if h.newRecognizer != nil {
		if rec := h.newRecognizer(); rec != nil {
			capability = stt.Available(rec)
		}
	}

	var clip stt.Clipboard = client
	if h.clipboard != nil {
		clip = h.clipboard
	}

	session, err := stt.Initialize(capability, locale, stt.Options{
		Clipboard:     clip,
		Reporter:      client,
		Log:           h.log,
		RestartDelay:  h.cfg.RestartDelay,
		MaxRestarts:   h.cfg.MaxRestarts,
		RestartWindow: h.cfg.RestartWindow,
	})
	if err != nil {
		_ = h.notifier.Notify(r.Context(), "stt", err, "session init failed, session="+sessionID)
		client.sendError("session could not be started")
		return
	}
	defer session.Close()

	h.log.Log(logger.LogEntry{Level: "info", Message: "stt session opened: " + sessionID + " lang=" + locale, Service: "delivery"})
	client.StateChanged(session.Snapshot())

	ctx := r.Context()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Log(logger.LogEntry{Level: "warn", Message: "stt stream dropped: " + sessionID, Error: err, Service: "delivery"})
			}
			break
		}

		switch mt {
		case websocket.BinaryMessage:
			if err := session.FeedAudio(data); err != nil {
				_ = h.notifier.Notify(ctx, "stt", err, "feed audio, session="+sessionID)
			}
		case websocket.TextMessage:
			h.handleCommand(ctx, session, client, data)
		}
	}

	h.log.Log(logger.LogEntry{Level: "info", Message: "stt session closed: " + sessionID, Service: "delivery"})
}

func (h *STTHandler) handleCommand(ctx context.Context, session *stt.Session, client *wsClient, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		client.sendError("invalid command")
		return
	}

	switch cmd.Type {
	case "toggle":
		session.ToggleListening(ctx)
	case "language":
		if err := session.ChangeLanguage(ctx, cmd.Locale); err != nil {
			client.sendError("unsupported language")
		}
	case "copy":
		session.CopyTranscript(ctx)
	case "clear":
		session.ClearTranscript()
	case "snapshot":
		client.StateChanged(session.Snapshot())
	default:
		client.sendError("unknown command: " + cmd.Type)
	}
}
