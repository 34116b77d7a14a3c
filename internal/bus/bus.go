// Package bus connects the assistant to a websocket message hub as a named
// shard. Other shards address it by name and receive the answer back.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	KindText   = "text"   // Content is a question
	KindAudio  = "audio"  // Audio is a recorded question, Content its file name
	KindAnswer = "answer" // Content is the answer, Audio its speech
	KindError  = "error"
)

type Envelope struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
	Audio    []byte `json:"audio,omitempty"`
}

// Handler answers one envelope. Returning ok=false sends nothing back.
type Handler func(ctx context.Context, in Envelope) (out Envelope, ok bool)

type Options struct {
	URL       string
	Name      string
	Reconnect time.Duration
}

type Shard struct {
	opt    Options
	dialer *ws.Dialer
}

func NewShard(opt Options) *Shard {
	if opt.Reconnect <= 0 {
		opt.Reconnect = 3 * time.Second
	}
	return &Shard{opt: opt, dialer: ws.DefaultDialer}
}

// Run keeps a connection to the hub open until ctx is cancelled, handling
// every envelope addressed to this shard concurrently. Turns still running
// when a connection drops keep going; their replies are lost.
func (s *Shard) Run(ctx context.Context, h Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		err := s.session(ctx, h, &wg)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("Bus connection lost, reconnecting", "url", s.opt.URL, "err", err, "in", s.opt.Reconnect)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.opt.Reconnect):
		}
	}
}

func (s *Shard) session(ctx context.Context, h Handler, wg *sync.WaitGroup) error {
	conn, _, err := s.dialer.DialContext(ctx, s.opt.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	log.Info("Connected to bus", "url", s.opt.URL, "name", s.opt.Name)

	c := &connection{conn: conn}
	stop := context.AfterFunc(ctx, func() { c.close() })
	defer stop()
	defer c.close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isClosed(err) {
				return errConnClosed
			}
			return fmt.Errorf("read: %w", err)
		}

		var in Envelope
		if err := json.Unmarshal(data, &in); err != nil {
			log.Warn("Dropping malformed envelope", "err", err)
			continue
		}
		if in.To != s.opt.Name || in.From == s.opt.Name {
			continue
		}
		log.Debug("Envelope", "from", in.From, "kind", in.Kind)

		wg.Add(1)
		go func() {
			defer wg.Done()
			out, ok := h(ctx, in)
			if !ok {
				return
			}
			out.From, out.To = s.opt.Name, in.From
			if err := c.write(out); err != nil {
				log.Error("Failed to send reply", "to", in.From, "err", err)
			}
		}()
	}
}

var errConnClosed = errors.New("connection closed")

// connection serializes writes; gorilla allows one concurrent writer.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
}

func (c *connection) write(e Envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	return c.conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.conn.Close()
}

func isClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
