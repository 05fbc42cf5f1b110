package status

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServerPublishSlowClient(t *testing.T) {
	s := &Server{
		Address: "127.0.0.1:0",
		Log:     zap.NewNop().Sugar(),
	}
	require.NoError(t, s.Start())
	defer s.Close()

	c, res, err := websocket.DefaultDialer.Dial("ws://"+s.ln.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer res.Body.Close() //nolint:errcheck
	defer c.Close()        //nolint:errcheck

	require.Eventually(t, func() bool {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		return len(s.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// the client never reads; publishing must drop snapshots instead
	// of stalling the capture loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			s.Publish(Stats{SessionID: "test", Packets: uint64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish stalled on a slow client")
	}
}

func TestServerPublish(t *testing.T) {
	s := &Server{
		Address: "127.0.0.1:0",
		Log:     zap.NewNop().Sugar(),
	}
	require.NoError(t, s.Start())
	defer s.Close()

	c, res, err := websocket.DefaultDialer.Dial("ws://"+s.ln.Addr().String()+"/", nil)
	require.NoError(t, err)
	defer res.Body.Close() //nolint:errcheck
	defer c.Close()        //nolint:errcheck

	recv := make(chan Stats, 1)
	go func() {
		var st Stats
		if c.ReadJSON(&st) == nil {
			recv <- st
		}
	}()

	// the client is registered by the handler goroutine, so publish
	// until the snapshot comes through
	deadline := time.After(5 * time.Second)
	for {
		s.Publish(Stats{SessionID: "test", Packets: 3, Bytes: 1024})

		select {
		case st := <-recv:
			require.Equal(t, Stats{SessionID: "test", Packets: 3, Bytes: 1024}, st)
			return
		case <-deadline:
			t.Fatal("timed out waiting for a status snapshot")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
