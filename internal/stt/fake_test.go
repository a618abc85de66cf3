package stt

import (
	"context"
	"sync"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   []string
	stops    int
	handler  Handler
	startErr error
	fed      [][]byte
}

func (f *fakeRecognizer) Start(_ context.Context, locale string, h Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, locale)
	f.handler = h
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRecognizer) Feed(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fed = append(f.fed, pcm)
	return nil
}

func (f *fakeRecognizer) current() Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

type recordingReporter struct {
	mu        sync.Mutex
	notices   []Notice
	snapshots []Snapshot
}

func (r *recordingReporter) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingReporter) StateChanged(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingReporter) kinds() []ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ErrorKind
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recordingReporter) last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type fakeClipboard struct {
	text   string
	writes int
	err    error
}

func (c *fakeClipboard) WriteText(_ context.Context, text string) error {
	c.writes++
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}
