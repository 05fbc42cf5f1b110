package rtph265

import (
	"bytes"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/stretchr/testify/require"

	"github.com/vidcap/hevcdepay/pkg/liberrors"
)

func TestFragmentationUnitHeaderUnmarshal(t *testing.T) {
	for _, ca := range []struct {
		name string
		enc  []byte
		dec  FragmentationUnitHeader
	}{
		{
			"start",
			[]byte{0x93},
			FragmentationUnitHeader{
				Start: true,
				Type:  h265.NALUType_IDR_W_RADL,
			},
		},
		{
			"middle",
			[]byte{0x13},
			FragmentationUnitHeader{
				Type: h265.NALUType_IDR_W_RADL,
			},
		},
		{
			"end",
			[]byte{0x53},
			FragmentationUnitHeader{
				End:  true,
				Type: h265.NALUType_IDR_W_RADL,
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var h FragmentationUnitHeader
			err := h.Unmarshal(ca.enc)
			require.NoError(t, err)
			require.Equal(t, ca.dec, h)
		})
	}
}

func TestFragmentationUnitHeaderUnmarshalError(t *testing.T) {
	var h FragmentationUnitHeader
	err := h.Unmarshal(nil)
	require.EqualError(t, err, "invalid format: FU header must be 1 byte long")
}

func TestParseFragmentationUnit(t *testing.T) {
	fuh, frag, err := parseFragmentationUnit([]byte{0x62, 0x01, 0x81, 0xaa, 0xbb}, 0)
	require.NoError(t, err)
	require.Equal(t, FragmentationUnitHeader{
		Start: true,
		Type:  h265.NALUType_TRAIL_R,
	}, fuh)
	require.Equal(t, []byte{0xaa, 0xbb}, frag)
}

func TestParseFragmentationUnitErrors(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		_, _, err := parseFragmentationUnit([]byte{0x62, 0x01, 0x81}, 0)
		require.EqualError(t, err, "invalid format: fragmentation unit payload is too short (3 bytes)")
	})

	t.Run("wrapper type mismatch", func(t *testing.T) {
		// wrapper carries an aggregation unit type instead of 49
		_, _, err := parseFragmentationUnit([]byte{0x60, 0x01, 0x81, 0xaa}, 3)
		require.EqualError(t, err, "protocol violation at packet 3: FU wrapper NAL unit type is 48, expected 49")

		var pv liberrors.ProtocolViolationError
		require.ErrorAs(t, err, &pv)
	})

	t.Run("malformed wrapper", func(t *testing.T) {
		_, _, err := parseFragmentationUnit([]byte{0xe2, 0x01, 0x81, 0xaa}, 0)
		require.EqualError(t, err, "invalid format: forbidden zero bit is set")
	})
}

func TestReassemblerStartWhileAccumulating(t *testing.T) {
	var r reassembler

	err := r.start([]byte{0x62, 0x01, 0x81, 0xaa}, 0)
	require.NoError(t, err)
	require.True(t, r.inFlight())

	err = r.start([]byte{0x62, 0x01, 0x81, 0xbb}, 1)
	require.EqualError(t, err, "protocol violation at packet 1: fragment start while a fragment run is in flight")

	// the previous partial run is not kept
	require.False(t, r.inFlight())
}

func TestReassemblerReset(t *testing.T) {
	var r reassembler

	err := r.start([]byte{0x62, 0x01, 0x81, 0xaa}, 0)
	require.NoError(t, err)

	r.reset()
	require.False(t, r.inFlight())

	_, err = r.cont([]byte{0x62, 0x01, 0x41, 0xbb}, 1)
	require.EqualError(t, err, "protocol violation at packet 1: fragment continuation without a preceding start")
}

func TestReassemblerErrorNALUSize(t *testing.T) {
	var r reassembler

	frag := bytes.Repeat([]byte{1, 2, 3, 4}, 65000/4)

	err := r.start(append([]byte{0x62, 0x01, 0x81}, frag...), 0)
	require.NoError(t, err)

	i := 1
	for {
		var nalu *NALU
		nalu, err = r.cont(append([]byte{0x62, 0x01, 0x01}, frag...), i)
		require.Nil(t, nalu)
		if err != nil {
			break
		}
		i++
	}

	require.EqualError(t, err, "invalid format: fragmented NALU size (8450000) is too big, maximum is 8388608")

	var fe liberrors.FormatError
	require.ErrorAs(t, err, &fe)

	// the oversized run was reset
	require.False(t, r.inFlight())
}

func TestReassemblerAuthoritativeType(t *testing.T) {
	var r reassembler

	// the type of the reconstructed unit comes from the starting
	// fragment even if later fragments disagree
	err := r.start([]byte{0x62, 0x01, 0x93, 0x01}, 0)
	require.NoError(t, err)

	nalu, err := r.cont([]byte{0x62, 0x01, 0x41, 0x02}, 1)
	require.NoError(t, err)
	require.Equal(t, &NALU{
		Origin:  OriginFragmented,
		Type:    h265.NALUType_IDR_W_RADL,
		Payload: []byte{0x01, 0x02},
	}, nalu)
	require.False(t, r.inFlight())
}
