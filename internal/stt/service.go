package stt

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"go.uber.org/zap"
)

const (
	defaultRestartDelay  = 100 * time.Millisecond
	defaultStartTimeout  = 10 * time.Second
	defaultMaxRestarts   = 3
	defaultRestartWindow = 10 * time.Second

	serviceName = "stt"
)

type State int

const (
	StateIdle State = iota
	StateListening
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the session state for display.
type Snapshot struct {
	State      State
	Transcript string
	Interim    string
	Locale     string
	Supported  bool
}

func (s Snapshot) CanToggle() bool { return s.Supported }
func (s Snapshot) CanCopy() bool   { return s.Transcript != "" }
func (s Snapshot) CanClear() bool  { return s.Transcript != "" || s.Interim != "" }

// Placeholder is the hint shown while there is no text yet.
func (s Snapshot) Placeholder() string {
	if s.Transcript != "" || s.Interim != "" {
		return ""
	}
	if s.State == StateListening {
		return "Listening... Start speaking"
	}
	return "Click the microphone button to start recording"
}

type Options struct {
	Clipboard Clipboard
	Reporter  Reporter
	Log       *logger.ZapLogger

	// RestartDelay is the pause between stop and start on a language change.
	RestartDelay time.Duration
	// StartTimeout bounds Start calls made from recognizer callbacks.
	StartTimeout time.Duration
	// MaxRestarts is the burst of automatic restarts; negative disables them.
	MaxRestarts   int
	RestartWindow time.Duration

	Now   func() time.Time
	Sleep func(time.Duration)
}

func (o *Options) withDefaults() {
	if o.Reporter == nil {
		o.Reporter = nopReporter{}
	}
	if o.Log == nil {
		o.Log = logger.NewZapLogger(zap.NewNop().Sugar())
	}
	if o.RestartDelay == 0 {
		o.RestartDelay = defaultRestartDelay
	}
	if o.StartTimeout == 0 {
		o.StartTimeout = defaultStartTimeout
	}
	if o.MaxRestarts == 0 {
		o.MaxRestarts = defaultMaxRestarts
	}
	if o.RestartWindow == 0 {
		o.RestartWindow = defaultRestartWindow
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

// Session owns one transcript and drives one recognizer.
// User operations and recognizer callbacks are serialized by mu.
type Session struct {
	mu sync.Mutex

	rec       Recognizer
	supported bool

	state      State
	transcript strings.Builder
	interim    string
	locale     string

	// run is bumped on every start and stop; callbacks of older runs are dropped.
	run uint64

	guard *restartGuard
	opts  Options
}

// Initialize builds a session bound to locale. An unavailable capability yields a
// session that only ever reports itself unsupported.
func Initialize(c Capability, locale string, opts Options) (*Session, error) {
	if _, ok := LookupLanguage(locale); !ok {
		return nil, ErrUnknownLanguage
	}
	opts.withDefaults()

	rec, ok := c.Recognizer()
	s := &Session{
		rec:       rec,
		supported: ok,
		locale:    locale,
		guard:     newRestartGuard(opts.MaxRestarts, opts.RestartWindow, opts.Now),
		opts:      opts,
	}

	if !ok {
		s.logf("warn", "speech recognition is not available", nil)
		s.opts.Reporter.Notify(noticeFor(ErrorUnsupportedPlatform))
	}
	return s, nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) ToggleListening(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.supported {
		return
	}

	if s.state == StateListening {
		s.stopLocked()
		s.publishLocked()
		return
	}

	s.guard.reset()
	if err := s.startLocked(ctx); err != nil {
		s.failLocked(classifyStartError(err), err)
		return
	}
	s.state = StateListening
	s.publishLocked()
}

func (s *Session) ChangeLanguage(ctx context.Context, locale string) error {
	if _, ok := LookupLanguage(locale); !ok {
		return ErrUnknownLanguage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.supported || locale == s.locale {
		return nil
	}

	if s.state != StateListening {
		s.locale = locale
		s.publishLocked()
		return nil
	}

	s.halt()
	s.interim = ""
	s.locale = locale
	// остановка у распознавателя асинхронная, даём ей завершиться
	s.opts.Sleep(s.opts.RestartDelay)

	if err := s.startLocked(ctx); err != nil {
		s.failLocked(classifyStartError(err), err)
		return nil
	}
	s.publishLocked()
	return nil
}

func (s *Session) CopyTranscript(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transcript.Len() == 0 || s.opts.Clipboard == nil {
		return
	}

	if err := s.opts.Clipboard.WriteText(ctx, s.transcript.String()); err != nil {
		s.logf("error", "copy transcript failed", err)
		s.opts.Reporter.Notify(noticeNoCopy)
		return
	}
	s.opts.Reporter.Notify(noticeCopied)
}

func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.supported {
		return
	}

	s.transcript.Reset()
	s.interim = ""
	s.opts.Reporter.Notify(noticeClear)
	s.publishLocked()
}

// FeedAudio passes captured audio to the recognizer. Audio arriving while idle is dropped.
func (s *Session) FeedAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateListening {
		return nil
	}
	sink, ok := s.rec.(AudioSink)
	if !ok {
		return nil
	}
	return sink.Feed(pcm)
}

// Close stops an active run. The transcript is left untouched.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateListening {
		s.stopLocked()
	}
}

// =========================================================================
// recognizer callbacks
// =========================================================================

type runHandler struct {
	s   *Session
	run uint64
}

func (h *runHandler) OnResult(results []Result) {
	h.s.onResult(h.run, results)
}

func (h *runHandler) OnEnd() {
	h.s.onEnd(h.run)
}

func (h *runHandler) OnError(code string) {
	h.s.onError(h.run, code)
}

func (s *Session) onResult(run uint64, results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run || s.state != StateListening {
		// прогон уже остановлен: досланные финальные фрагменты сохраняем, промежуточные отбрасываем
		if s.appendFinalsLocked(results) {
			s.publishLocked()
		}
		return
	}

	var interim strings.Builder
	heard := false
	for _, r := range results {
		if r.Text != "" {
			heard = true
		}
		if !r.Final {
			interim.WriteString(r.Text)
		}
	}
	s.appendFinalsLocked(results)
	s.interim = interim.String()

	if heard {
		s.guard.reset()
	}
	s.publishLocked()
}

func (s *Session) onEnd(run uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run || s.state != StateListening {
		return
	}

	if !s.guard.allow() {
		s.failLocked(ErrorOther, ErrRestartLoop)
		return
	}

	s.logf("info", "recognition ended unexpectedly, restarting", nil)
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StartTimeout)
	defer cancel()

	if err := s.startLocked(ctx); err != nil {
		s.failLocked(classifyStartError(err), err)
	}
}

func (s *Session) onError(run uint64, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run != s.run || s.state != StateListening {
		return
	}

	kind := ClassifyError(code)
	s.logf("warn", "recognition error: "+code, nil)
	s.failLocked(kind, nil)
}

// =========================================================================
// helpers, mu must be held
// =========================================================================

func (s *Session) startLocked(ctx context.Context) error {
	s.run++
	return s.rec.Start(ctx, s.locale, &runHandler{s: s, run: s.run})
}

// halt stops the recognizer and invalidates its pending callbacks.
func (s *Session) halt() {
	s.run++
	if err := s.rec.Stop(); err != nil {
		s.logf("warn", "recognizer stop failed", err)
	}
}

func (s *Session) stopLocked() {
	s.halt()
	s.state = StateIdle
	s.interim = ""
}

// appendFinalsLocked adds every non-empty final entry to the transcript, each followed by a space.
func (s *Session) appendFinalsLocked(results []Result) bool {
	appended := false
	for _, r := range results {
		if !r.Final || r.Text == "" {
			continue
		}
		s.transcript.WriteString(r.Text)
		s.transcript.WriteByte(' ')
		appended = true
	}
	return appended
}

func (s *Session) failLocked(kind ErrorKind, err error) {
	if err != nil {
		s.logf("error", "listening stopped: "+kind.String(), err)
	}
	s.stopLocked()
	s.opts.Reporter.Notify(noticeFor(kind))
	s.publishLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:      s.state,
		Transcript: s.transcript.String(),
		Interim:    s.interim,
		Locale:     s.locale,
		Supported:  s.supported,
	}
}

func (s *Session) publishLocked() {
	s.opts.Reporter.StateChanged(s.snapshotLocked())
}

func (s *Session) logf(level, msg string, err error) {
	s.opts.Log.Log(logger.LogEntry{
		Level:   level,
		Message: msg,
		Error:   err,
		Service: serviceName,
	})
}
