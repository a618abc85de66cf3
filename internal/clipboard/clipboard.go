package clipboard

import (
	"context"
	"errors"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("system clipboard is not available")

// System writes to the clipboard of the host running the server.
type System struct{}

func NewSystem() *System {
	return &System{}
}

// Available is false when no clipboard utility (xclip, xsel, wl-copy, ...) was found.
func Available() bool {
	return !cb.Unsupported
}

func (s *System) WriteText(_ context.Context, text string) error {
	if !Available() {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}
