package stt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type chanHandler struct {
	results chan []Result
	ended   chan struct{}
	errs    chan string
}

func newChanHandler() *chanHandler {
	return &chanHandler{
		results: make(chan []Result, 8),
		ended:   make(chan struct{}, 1),
		errs:    make(chan string, 1),
	}
}

func (h *chanHandler) OnResult(r []Result) { h.results <- r }
func (h *chanHandler) OnEnd()              { h.ended <- struct{}{} }
func (h *chanHandler) OnError(code string) { h.errs <- code }

func nopLog() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDeepgramRecognizerStream(t *testing.T) {
	var upgrader websocket.Upgrader
	gotAudio := make(chan []byte, 1)
	gotQuery := make(chan string, 1)
	gotAuth := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		gotQuery <- r.URL.RawQuery

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, audio, err := conn.ReadMessage()
		if err != nil {
			return
		}
		gotAudio <- audio

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "dg-key", Endpoint: wsURL(srv)}, nopLog())
	h := newChanHandler()

	if err := rec.Start(context.Background(), "hi-IN", h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Start(context.Background(), "hi-IN", h); !errors.Is(err, ErrRecognizerRunning) {
		t.Errorf("second Start() error = %v, want ErrRecognizerRunning", err)
	}

	if auth := <-gotAuth; auth != "Token dg-key" {
		t.Errorf("Authorization = %q", auth)
	}
	query := <-gotQuery
	for _, want := range []string{"language=hi-IN", "interim_results=true", "model=nova-2", "encoding=linear16", "sample_rate=16000"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}

	if err := rec.Feed([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if audio := <-gotAudio; len(audio) != 3 {
		t.Errorf("server got %d bytes, want 3", len(audio))
	}

	want := []Result{{Text: "hel"}, {Text: "hello", Final: true}}
	for i, w := range want {
		select {
		case got := <-h.results:
			if len(got) != 1 || got[0] != w {
				t.Errorf("result %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d", i)
		}
	}

	select {
	case <-h.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for end")
	}

	// the run ended on its own, so a new one may start
	if err := rec.Feed([]byte{1}); !errors.Is(err, ErrRecognizerStopped) {
		t.Errorf("Feed() after end error = %v, want ErrRecognizerStopped", err)
	}
}

func TestDeepgramRecognizerStop(t *testing.T) {
	var upgrader websocket.Upgrader
	closeStream := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err == nil {
			closeStream <- string(msg)
		}
	}))
	defer srv.Close()

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "k", Endpoint: wsURL(srv)}, nopLog())
	h := newChanHandler()
	if err := rec.Start(context.Background(), "en-US", h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case msg := <-closeStream:
		if msg != `{"type":"CloseStream"}` {
			t.Errorf("server got %q, want CloseStream", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never got CloseStream")
	}

	select {
	case <-h.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not finish after Stop")
	}

	if err := rec.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestDeepgramRecognizerPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "wrong", Endpoint: wsURL(srv)}, nopLog())
	err := rec.Start(context.Background(), "en-US", newChanHandler())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Start() error = %v, want ErrPermissionDenied", err)
	}
	if classifyStartError(err) != ErrorPermissionDenied {
		t.Errorf("classifyStartError() = %v", classifyStartError(err))
	}
}

func TestDeepgramRecognizerStopFlushesFinal(t *testing.T) {
	var upgrader websocket.Upgrader

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // CloseStream
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "k", Endpoint: wsURL(srv)}, nopLog())
	h := newChanHandler()
	if err := rec.Start(context.Background(), "en-US", h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case got := <-h.results:
		if len(got) != 1 || got[0] != (Result{Text: "hello world", Final: true}) {
			t.Errorf("flushed result = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("final result after Stop was not delivered")
	}

	select {
	case <-h.ended:
	case code := <-h.errs:
		t.Fatalf("OnError(%q) after Stop, want OnEnd", code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for end")
	}
}

func TestDeepgramRecognizerStopCloseTimeout(t *testing.T) {
	var upgrader websocket.Upgrader

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// never answers CloseStream
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "k", Endpoint: wsURL(srv), CloseTimeout: 50 * time.Millisecond}, nopLog())
	h := newChanHandler()
	if err := rec.Start(context.Background(), "en-US", h); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-h.ended:
	case code := <-h.errs:
		t.Fatalf("OnError(%q) after Stop, want OnEnd", code)
	case <-time.After(2 * time.Second):
		t.Fatal("stopped stream was not closed after CloseTimeout")
	}
}

func TestDeepgramRecognizerCloseCodes(t *testing.T) {
	tests := []struct {
		name    string
		code    int // 0: drop the connection without a close frame
		text    string
		wantErr string // empty: OnEnd
	}{
		{"normal", websocket.CloseNormalClosure, "", ""},
		{"no audio", 1011, "NET-0001: Deepgram did not receive audio data or a text message within the timeout window.", CodeNoSpeech},
		{"policy", websocket.ClosePolicyViolation, "", CodeNotAllowed},
		{"auth", 4001, "INVALID_AUTH: invalid credentials", CodeNotAllowed},
		{"internal", 1011, "NET-0000: internal server error", CodeNetwork},
		{"dropped", 0, "", CodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var upgrader websocket.Upgrader
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				defer conn.Close()
				if tt.code != 0 {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(tt.code, tt.text), time.Now().Add(time.Second))
				}
			}))
			defer srv.Close()

			rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "k", Endpoint: wsURL(srv)}, nopLog())
			h := newChanHandler()
			if err := rec.Start(context.Background(), "en-US", h); err != nil {
				t.Fatalf("Start() error = %v", err)
			}

			select {
			case <-h.ended:
				if tt.wantErr != "" {
					t.Errorf("got OnEnd, want OnError(%q)", tt.wantErr)
				}
			case code := <-h.errs:
				if code != tt.wantErr {
					t.Errorf("OnError(%q), want %q", code, tt.wantErr)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("run did not finish")
			}

			if err := rec.Feed([]byte{1}); !errors.Is(err, ErrRecognizerStopped) {
				t.Errorf("Feed() after close error = %v, want ErrRecognizerStopped", err)
			}
		})
	}
}

func TestDeepgramRecognizerFeedWriteTimeout(t *testing.T) {
	var upgrader websocket.Upgrader
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release // stalled peer: never reads
	}))
	defer srv.Close()
	defer close(release)

	rec := NewDeepgramRecognizer(DeepgramConfig{APIKey: "k", Endpoint: wsURL(srv), WriteTimeout: 50 * time.Millisecond}, nopLog())
	if err := rec.Start(context.Background(), "en-US", newChanHandler()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rec.Stop()

	chunk := make([]byte, 1<<20)
	done := make(chan error, 1)
	go func() {
		for i := 0; i < 256; i++ {
			if err := rec.Feed(chunk); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Skip("socket buffers absorbed all audio")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Feed blocked on a stalled connection")
	}
}
