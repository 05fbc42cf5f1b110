// Package status contains a websocket endpoint that pushes live
// capture counters to attached clients.
package status

import (
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stats is a snapshot of the capture counters, pushed to every
// attached client after each received packet.
type Stats struct {
	SessionID string `json:"session_id"`
	Packets   uint64 `json:"packets"`
	Bytes     uint64 `json:"bytes"`
}

// per-client queue of pending snapshots. Snapshots are cumulative
// counters, so dropping some on backpressure loses nothing.
const clientQueueSize = 8

// Server exposes capture statistics over a websocket endpoint.
type Server struct {
	Address string
	Log     *zap.SugaredLogger

	ln       net.Listener
	hs       *http.Server
	upgrader websocket.Upgrader
	done     chan struct{}

	mutex   sync.Mutex
	clients map[*websocket.Conn]chan Stats
}

// Start makes the server listen on its address.
func (s *Server) Start() error {
	var err error
	s.ln, err = net.Listen("tcp", s.Address)
	if err != nil {
		return err
	}

	s.clients = make(map[*websocket.Conn]chan Stats)
	s.done = make(chan struct{})
	s.hs = &http.Server{Handler: http.HandlerFunc(s.handleStatus)}

	s.Log.Infow("status endpoint available", "address", s.ln.Addr().String())

	go s.hs.Serve(s.ln) //nolint:errcheck

	return nil
}

// Close shuts the server down, disconnecting every client.
func (s *Server) Close() {
	s.hs.Close() //nolint:errcheck
	close(s.done)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for c := range s.clients {
		c.Close() //nolint:errcheck
	}
	s.clients = nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	queue := make(chan Stats, clientQueueSize)

	s.mutex.Lock()
	if s.clients == nil {
		s.mutex.Unlock()
		c.Close() //nolint:errcheck
		return
	}
	s.clients[c] = queue
	s.mutex.Unlock()

	s.Log.Debugw("status client attached", "from", c.RemoteAddr().String())

	go s.writeToClient(c, queue)
}

// writeToClient drains a client queue. It owns all writes to the
// connection, so a slow client blocks only its own queue, never the
// publisher.
func (s *Server) writeToClient(c *websocket.Conn, queue chan Stats) {
	defer s.detach(c)

	for {
		select {
		case st := <-queue:
			err := c.WriteJSON(st)
			if err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *Server) detach(c *websocket.Conn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.clients, c)
	c.Close() //nolint:errcheck
}

// Publish queues a snapshot for every attached client and never
// blocks: when a client queue is full, the snapshot is dropped for
// that client.
func (s *Server) Publish(st Stats) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, queue := range s.clients {
		select {
		case queue <- st:
		default:
		}
	}
}
