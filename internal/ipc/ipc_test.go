package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "krishi.sock")
	srv, err := Listen(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, func(_ context.Context, req Request) Reply {
			switch req.Cmd {
			case CmdAsk:
				return Reply{Transcript: req.Text, Language: req.Language, Response: "₹1800/quintal"}
			default:
				return Errorf("unknown command %q", req.Cmd)
			}
		})
	}()

	reply, err := Send(path, Request{Cmd: CmdAsk, Text: "tomato price", Language: "english"}, time.Second)
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, "tomato price", reply.Transcript)
	assert.Equal(t, "₹1800/quintal", reply.Response)

	reply, err = Send(path, Request{Cmd: "dance"}, time.Second)
	require.EqualError(t, err, `unknown command "dance"`)
	assert.False(t, reply.OK)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSendWithoutDaemon(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "none.sock"), Request{Cmd: CmdTrigger}, time.Second)
	require.Error(t, err)
}
