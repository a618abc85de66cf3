package error_notificator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBurst = 5
	defaultEvery = 10 * time.Second
)

// Service forwards errors to infra, at most burst per source and then one per every.
// Dropped notifications are counted and reported with the next one that gets through.
type Service struct {
	infra Notificator
	every time.Duration
	burst int
	now   func() time.Time

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	suppressed map[string]int
}

func NewService(infra Notificator) *Service {
	return &Service{
		infra:      infra,
		every:      defaultEvery,
		burst:      defaultBurst,
		now:        time.Now,
		limiters:   make(map[string]*rate.Limiter),
		suppressed: make(map[string]int),
	}
}

func (s *Service) Notify(ctx context.Context, source string, err error, details string) error {
	s.mu.Lock()
	l, ok := s.limiters[source]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.every), s.burst)
		s.limiters[source] = l
	}
	if !l.AllowN(s.now(), 1) {
		s.suppressed[source]++
		s.mu.Unlock()
		return nil
	}
	dropped := s.suppressed[source]
	delete(s.suppressed, source)
	s.mu.Unlock()

	if dropped > 0 {
		details = fmt.Sprintf("%s (+%d suppressed)", details, dropped)
	}
	return s.infra.Notify(ctx, source, err, details)
}
