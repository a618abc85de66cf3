package speech

import "context"

const ContentTypeMPEG = "audio/mpeg"

// Audio — готовый аудиофайл от провайдера.
type Audio struct {
	Data        []byte
	ContentType string
}

// TTSClient turns text into audio with a hosted model.
type TTSClient interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}
