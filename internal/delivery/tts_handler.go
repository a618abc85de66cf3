package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/goccy/go-json"

	"github.com/Vovarama1992/speech_studio/internal/error_notificator"
	"github.com/Vovarama1992/speech_studio/internal/speech"
)

const (
	maxTTSBody = 64 << 10

	msgEmptyText  = "Please enter some text to convert"
	msgTTSFailed  = "Failed to convert text to speech"
	msgBadPayload = "invalid json"
)

type TTSService interface {
	Synthesize(ctx context.Context, text string) (speech.Audio, error)
}

type TTSHandler struct {
	svc      TTSService
	notifier error_notificator.Notificator
	log      *logger.ZapLogger
}

func NewTTSHandler(svc TTSService, notifier error_notificator.Notificator, log *logger.ZapLogger) *TTSHandler {
	return &TTSHandler{
		svc:      svc,
		notifier: notifier,
		log:      log,
	}
}

// Convert: POST {"text": "..."} → audio/mpeg
func (h *TTSHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTTSBody)).Decode(&req); err != nil {
		h.log.Log(logger.LogEntry{Level: "warn", Message: "tts: bad payload", Error: err, Service: "delivery"})
		writeJSONError(w, http.StatusBadRequest, msgBadPayload)
		return
	}

	// пустой текст отсекаем до похода в апстрим
	if err := speech.ValidateText(req.Text); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgEmptyText)
		return
	}

	audio, err := h.svc.Synthesize(r.Context(), req.Text)
	if err != nil {
		status := http.StatusBadGateway
		if !errors.Is(err, speech.ErrUpstreamFailure) {
			status = http.StatusInternalServerError
			_ = h.notifier.Notify(r.Context(), "tts", err, "unexpected synthesize failure")
		}
		writeJSONError(w, status, msgTTSFailed)
		return
	}

	w.Header().Set("Content-Type", audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}
