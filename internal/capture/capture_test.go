package capture

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	conf, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", conf.Host)
	require.Equal(t, 5600, conf.Port)
	require.Equal(t, "output", conf.OutputDir)
	require.Equal(t, "", conf.StatusAddress)
	require.Equal(t, 425984, conf.ReadBufferSize)
}

func TestListenUnicast(t *testing.T) {
	s := &Service{
		Conf: Config{
			Host:           "127.0.0.1",
			Port:           0,
			ReadBufferSize: 425984,
		},
		Log: zap.NewNop().Sugar(),
	}

	pc, err := s.listen()
	require.NoError(t, err)
	defer pc.Close() //nolint:errcheck

	conn, err := net.Dial("udp", pc.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close() //nolint:errcheck

	_, err = conn.Write([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, maxDatagramSize)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, buf[:n])
}
