package stt

import (
	"time"

	"golang.org/x/time/rate"
)

// restartGuard budgets automatic restarts after an unexpected end:
// a burst of max restarts, refilled at one per window.
type restartGuard struct {
	max     int
	window  time.Duration
	now     func() time.Time
	limiter *rate.Limiter
}

func newRestartGuard(max int, window time.Duration, now func() time.Time) *restartGuard {
	g := &restartGuard{max: max, window: window, now: now}
	g.reset()
	return g
}

func (g *restartGuard) allow() bool {
	if g.max <= 0 {
		return false
	}
	return g.limiter.AllowN(g.now(), 1)
}

// reset refills the budget; called once the recognizer has produced results again.
func (g *restartGuard) reset() {
	var every rate.Limit // zero: the burst is never refilled
	if g.window > 0 {
		every = rate.Every(g.window)
	}
	g.limiter = rate.NewLimiter(every, g.max)
}
