package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/roach88/microsync/internal/session"
)

const writeTimeout = 5 * time.Second

// StreamMessage is one frame of the /api/events stream. The first frame is
// a snapshot; every later frame carries one event.
type StreamMessage struct {
	Type  string         `json:"type"`
	View  *session.View  `json:"view,omitempty"`
	Event *session.Event `json:"event,omitempty"`
}

const (
	MessageSnapshot = "snapshot"
	MessageEvent    = "event"
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	// The client never sends; CloseRead handles control frames and cancels
	// ctx when the peer goes away.
	ctx := c.CloseRead(r.Context())

	events := make(chan session.Event, s.buffer)
	overflow := make(chan struct{})
	var once sync.Once

	unsubscribe := s.session.Subscribe(func(ev session.Event) {
		select {
		case events <- ev:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	view, err := s.session.Snapshot(ctx)
	if err != nil {
		c.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}
	if err := write(ctx, c, StreamMessage{Type: MessageSnapshot, View: &view}); err != nil {
		return
	}

	s.logger.Debug("event stream opened", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case <-overflow:
			s.logger.Warn("event stream too slow; closing", "remote", r.RemoteAddr)
			c.Close(websocket.StatusPolicyViolation, "event buffer overflow")
			return
		case ev := <-events:
			// Already reflected in the snapshot.
			if ev.Seq <= view.Seq {
				continue
			}
			if err := write(ctx, c, StreamMessage{Type: MessageEvent, Event: &ev}); err != nil {
				s.logger.Debug("event stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, c *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, msg)
}
