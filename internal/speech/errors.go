package speech

import (
	"errors"
	"strings"
)

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrUpstreamFailure = errors.New("speech synthesis upstream failed")
)

// ValidateText is the caller-side check run before any upstream request.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}
