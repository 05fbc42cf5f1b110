// Package capture contains the UDP capture service. It receives
// datagrams and persists them, in arrival order, to a cat container;
// it has no protocol logic.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/vidcap/hevcdepay/internal/status"
	"github.com/vidcap/hevcdepay/pkg/cat"
)

// maximum size of a UDP datagram.
const maxDatagramSize = 65535

// Service is the UDP capture service.
type Service struct {
	Conf Config
	Log  *zap.SugaredLogger
}

func (s *Service) listen() (net.PacketConn, error) {
	addr := net.JoinHostPort(s.Conf.Host, strconv.Itoa(s.Conf.Port))

	ip := net.ParseIP(s.Conf.Host)
	if ip != nil && ip.IsMulticast() {
		return s.listenMulticast(ip)
	}

	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	err = pc.(*net.UDPConn).SetReadBuffer(s.Conf.ReadBufferSize)
	if err != nil {
		pc.Close() //nolint:errcheck
		return nil, err
	}

	return pc, nil
}

// listenMulticast joins the group on all multicast-capable interfaces.
func (s *Service) listenMulticast(group net.IP) (net.PacketConn, error) {
	pc, err := net.ListenPacket("udp4", "224.0.0.0:"+strconv.Itoa(s.Conf.Port))
	if err != nil {
		return nil, err
	}
	conn := pc.(*net.UDPConn)

	err = conn.SetReadBuffer(s.Conf.ReadBufferSize)
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	intfs, err := net.Interfaces()
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, err
	}

	connIP := ipv4.NewPacketConn(conn)
	joined := 0

	for _, intf := range intfs {
		if (intf.Flags & net.FlagMulticast) == 0 {
			continue
		}
		cintf := intf

		err = connIP.JoinGroup(&cintf, &net.UDPAddr{IP: group})
		if err != nil {
			continue
		}
		joined++
	}

	if joined == 0 {
		conn.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to join multicast group %v on any interface", group)
	}

	return conn, nil
}

// Run captures datagrams until ctx is canceled. Each capture run gets
// its own timestamped group directory and session id; packets are
// appended to a single cat container in arrival order.
func (s *Service) Run(ctx context.Context) error {
	sessionID := uuid.New()

	groupDir := filepath.Join(s.Conf.OutputDir, time.Now().Format("2006-01-02_15-04-05"))
	err := os.MkdirAll(groupDir, 0o755)
	if err != nil {
		return err
	}

	outPath := filepath.Join(groupDir, "packets.cat")
	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	pc, err := s.listen()
	if err != nil {
		return err
	}
	defer pc.Close() //nolint:errcheck

	var st *status.Server
	if s.Conf.StatusAddress != "" {
		st = &status.Server{
			Address: s.Conf.StatusAddress,
			Log:     s.Log,
		}
		err = st.Start()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	s.Log.Infow("listening",
		"address", pc.LocalAddr().String(),
		"session", sessionID.String(),
		"output", outPath)

	// unblock the read loop on cancellation
	stop := context.AfterFunc(ctx, func() {
		pc.Close() //nolint:errcheck
	})
	defer stop()

	cw := &cat.Writer{W: f}
	buf := make([]byte, maxDatagramSize)
	packets := uint64(0)
	bytes := uint64(0)

	for {
		n, src, err := pc.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
				s.Log.Infow("capture stopped", "packets", packets, "bytes", bytes)
				return nil
			}
			return err
		}

		err = cw.WriteRecord(buf[:n])
		if err != nil {
			return err
		}

		packets++
		bytes += uint64(n)

		s.Log.Debugw("received packet",
			"index", packets,
			"size", n,
			"from", src.String())

		if st != nil {
			st.Publish(status.Stats{
				SessionID: sessionID.String(),
				Packets:   packets,
				Bytes:     bytes,
			})
		}
	}
}
