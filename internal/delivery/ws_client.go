package delivery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Vovarama1992/speech_studio/internal/stt"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsOutboxSize   = 64
)

var (
	errClientClosed = errors.New("websocket client closed")
	errClientBusy   = errors.New("websocket client outbox full")
)

type stateMessage struct {
	State       string `json:"state"`
	Listening   bool   `json:"listening"`
	Transcript  string `json:"transcript"`
	Interim     string `json:"interim"`
	Locale      string `json:"locale"`
	Supported   bool   `json:"supported"`
	CanCopy     bool   `json:"can_copy"`
	CanClear    bool   `json:"can_clear"`
	Placeholder string `json:"placeholder,omitempty"`
}

type noticeMessage struct {
	Kind        string `json:"kind,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

type outbound struct {
	Type   string         `json:"type"`
	State  *stateMessage  `json:"state,omitempty"`
	Notice *noticeMessage `json:"notice,omitempty"`
	Text   string         `json:"text,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func newStateMessage(s stt.Snapshot) *stateMessage {
	return &stateMessage{
		State:       s.State.String(),
		Listening:   s.State == stt.StateListening,
		Transcript:  s.Transcript,
		Interim:     s.Interim,
		Locale:      s.Locale,
		Supported:   s.Supported,
		CanCopy:     s.CanCopy(),
		CanClear:    s.CanClear(),
		Placeholder: s.Placeholder(),
	}
}

func newNoticeMessage(n stt.Notice) *noticeMessage {
	msg := &noticeMessage{
		Title:       n.Title,
		Description: n.Description,
		Variant:     "default",
	}
	if n.Kind != stt.ErrorNone {
		msg.Kind = n.Kind.String()
	}
	if n.Destructive {
		msg.Variant = "destructive"
	}
	return msg
}

// wsClient is the browser side of one stream: it receives session state,
// notices and clipboard text. A single goroutine owns all writes.
type wsClient struct {
	conn *websocket.Conn
	id   string
	log  *logger.ZapLogger

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newWSClient(conn *websocket.Conn, id string, log *logger.ZapLogger) *wsClient {
	c := &wsClient{
		conn: conn,
		id:   id,
		log:  log,
		out:  make(chan []byte, wsOutboxSize),
		done: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

func (c *wsClient) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.out:
			if err := c.write(msg); err != nil {
				c.log.Log(logger.LogEntry{Level: "warn", Message: "stt stream write failed, session=" + c.id, Error: err, Service: "delivery"})
				return
			}
		case <-c.done:
			// дописываем то, что уже в очереди
			for {
				select {
				case msg := <-c.out:
					if err := c.write(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *wsClient) write(msg []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsClient) send(msg outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.out <- data:
		return nil
	default:
		c.log.Log(logger.LogEntry{Level: "warn", Message: "stt stream outbox full, dropping " + msg.Type + ", session=" + c.id, Service: "delivery"})
		return errClientBusy
	}
}

func (c *wsClient) Notify(n stt.Notice) {
	_ = c.send(outbound{Type: "notice", Notice: newNoticeMessage(n)})
}

func (c *wsClient) StateChanged(s stt.Snapshot) {
	_ = c.send(outbound{Type: "state", State: newStateMessage(s)})
}

// WriteText hands the transcript to the browser, which owns the user's clipboard.
func (c *wsClient) WriteText(_ context.Context, text string) error {
	return c.send(outbound{Type: "clipboard", Text: text})
}

func (c *wsClient) sendError(msg string) {
	_ = c.send(outbound{Type: "error", Error: msg})
}

func (c *wsClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}
