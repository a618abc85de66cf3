package speech

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/dustin/go-humanize"
)

// Service proxies text to the configured TTS provider. One attempt per call.
type Service struct {
	tts TTSClient
	log *logger.ZapLogger
}

func NewService(tts TTSClient, log *logger.ZapLogger) *Service {
	return &Service{
		tts: tts,
		log: log,
	}
}

// Synthesize expects text already checked with ValidateText.
// Provider errors are wrapped in ErrUpstreamFailure; their details only go to the log.
func (s *Service) Synthesize(ctx context.Context, text string) (Audio, error) {
	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		s.log.Log(logger.LogEntry{Level: "error", Message: "tts upstream failed", Error: err, Service: "speech"})
		return Audio{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	if len(audio.Data) == 0 {
		s.log.Log(logger.LogEntry{Level: "error", Message: "tts upstream returned empty audio", Service: "speech"})
		return Audio{}, fmt.Errorf("%w: empty audio", ErrUpstreamFailure)
	}
	if audio.ContentType == "" {
		audio.ContentType = ContentTypeMPEG
	}

	s.log.Log(logger.LogEntry{
		Level:   "info",
		Message: fmt.Sprintf("tts ok: %d chars → %s", len([]rune(text)), humanize.Bytes(uint64(len(audio.Data)))),
		Service: "speech",
	})
	return audio, nil
}
