package stt

import "errors"

var (
	ErrUnknownLanguage   = errors.New("unknown recognition language")
	ErrPermissionDenied  = errors.New("recognition permission denied")
	ErrRestartLoop       = errors.New("recognition kept ending right after restart")
	ErrRecognizerRunning = errors.New("recognizer already running")
	ErrRecognizerStopped = errors.New("recognizer is not running")
)

// ErrorKind classifies what ended a listening attempt.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorUnsupportedPlatform
	ErrorNoSpeech
	ErrorPermissionDenied
	ErrorOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorUnsupportedPlatform:
		return "unsupported-platform"
	case ErrorNoSpeech:
		return "no-speech-detected"
	case ErrorPermissionDenied:
		return "permission-denied"
	case ErrorOther:
		return "other"
	default:
		return "unknown"
	}
}

// Error codes passed to Handler.OnError.
const (
	CodeNoSpeech   = "no-speech"
	CodeNotAllowed = "not-allowed"
	CodeNetwork    = "network"
)

// ClassifyError maps a platform error code onto an ErrorKind.
func ClassifyError(code string) ErrorKind {
	switch code {
	case CodeNoSpeech:
		return ErrorNoSpeech
	case CodeNotAllowed, "service-not-allowed":
		return ErrorPermissionDenied
	default:
		return ErrorOther
	}
}

func classifyStartError(err error) ErrorKind {
	if errors.Is(err, ErrPermissionDenied) {
		return ErrorPermissionDenied
	}
	return ErrorOther
}
