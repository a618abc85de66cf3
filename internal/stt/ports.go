package stt

import "context"

// Result is one entry of a recognition update.
type Result struct {
	Text  string
	Final bool
}

// Handler receives the callbacks of a single listening run.
type Handler interface {
	OnResult(results []Result)
	OnEnd()
	OnError(code string)
}

// Recognizer is a continuous recognition facility with interim results.
// Callbacks must be delivered asynchronously, never from inside Start or Stop.
type Recognizer interface {
	Start(ctx context.Context, locale string, h Handler) error
	Stop() error
}

// AudioSink is implemented by recognizers that are fed audio from outside.
type AudioSink interface {
	Feed(pcm []byte) error
}

// Clipboard — только запись текста.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Reporter is called with the session lock held and must not call back into the session.
type Reporter interface {
	Notify(n Notice)
	StateChanged(s Snapshot)
}

type nopReporter struct{}

func (nopReporter) Notify(Notice)         {}
func (nopReporter) StateChanged(Snapshot) {}
