package stt

// Notice is a user-facing message produced by the session.
type Notice struct {
	Kind        ErrorKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destructive bool      `json:"destructive"`
}

func noticeFor(kind ErrorKind) Notice {
	switch kind {
	case ErrorUnsupportedPlatform:
		return Notice{
			Kind:        kind,
			Title:       "Not supported",
			Description: "Speech recognition is not available on this server.",
			Destructive: true,
		}
	case ErrorNoSpeech:
		return Notice{
			Kind:        kind,
			Title:       "No speech detected",
			Description: "Please try speaking again.",
			Destructive: true,
		}
	case ErrorPermissionDenied:
		return Notice{
			Kind:        kind,
			Title:       "Microphone access denied",
			Description: "Please allow microphone access to use this feature.",
			Destructive: true,
		}
	default:
		return Notice{
			Kind:        ErrorOther,
			Title:       "Speech recognition error",
			Description: "Recognition stopped. Press the microphone to try again.",
			Destructive: true,
		}
	}
}

var (
	noticeCopied = Notice{Title: "Copied!", Description: "Transcript copied to clipboard."}
	noticeClear  = Notice{Title: "Cleared", Description: "Transcript has been cleared."}
	noticeNoCopy = Notice{
		Kind:        ErrorOther,
		Title:       "Copy failed",
		Description: "Transcript could not be copied.",
		Destructive: true,
	}
)
