// Package ipc is the daemon's local control channel: one JSON request and
// one JSON reply per unix socket connection.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"time"
)

const DefaultSocket = "/tmp/krishi.sock"

const (
	CmdTrigger = "trigger" // record from the microphone and answer aloud
	CmdAsk     = "ask"     // answer Text in Language
	CmdFile    = "file"    // transcribe the audio at File and answer
)

type Request struct {
	Cmd      string `json:"cmd"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	File     string `json:"file,omitempty"`
}

type Reply struct {
	OK         bool   `json:"ok"`
	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	Response   string `json:"response,omitempty"`
	Error      string `json:"error,omitempty"`
}

func Errorf(format string, args ...any) Reply {
	return Reply{Error: fmt.Sprintf(format, args...)}
}

type Handler func(ctx context.Context, req Request) Reply

type Server struct {
	ln   net.Listener
	path string
}

// Listen removes a stale socket and binds path.
func Listen(path string) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Server{ln: ln, path: path}, nil
}

// Serve handles connections until ctx is cancelled. Each connection gets
// its own goroutine.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	defer os.Remove(s.path)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("Accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, h)
	}
}

func handleConn(ctx context.Context, conn net.Conn, h Handler) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Errorf("bad request: %v", err))
		return
	}
	log.Debug("Control message", "cmd", req.Cmd)

	reply := h(ctx, req)
	if reply.Error == "" {
		reply.OK = true
	}
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to write reply", "err", err)
	}
}

// Send delivers req and waits up to timeout for the reply.
func Send(path string, req Request, timeout time.Duration) (Reply, error) {
	conn, err := net.DialTimeout("unix", path, 5*time.Second)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !reply.OK {
		return reply, errors.New(reply.Error)
	}
	return reply, nil
}
