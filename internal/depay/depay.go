// Package depay contains the pipelines built on top of the
// depacketization engine: replaying a cat container into an Annex-B
// bitstream, inspecting a container, and combining raw NAL dumps.
package depay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vidcap/hevcdepay/pkg/bitstream"
	"github.com/vidcap/hevcdepay/pkg/cat"
	"github.com/vidcap/hevcdepay/pkg/rtph265"
	"github.com/vidcap/hevcdepay/pkg/rtpheader"
)

func createOutput(path string, overwrite bool) (*os.File, error) {
	if !overwrite {
		_, err := os.Stat(path)
		if err == nil {
			return nil, fmt.Errorf("%s already exists, use --overwrite to overwrite it", path)
		}
	}
	return os.Create(path)
}

// Depacketize replays the RTP packets stored in a cat container and
// writes the reconstructed NAL units as a start-code-delimited HEVC
// bitstream.
func Depacketize(log *zap.SugaredLogger, inputPath string, outputPath string, overwrite bool) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	out, err := createOutput(outputPath, overwrite)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	cr := &cat.Reader{R: in}

	d := &rtph265.Depacketizer{
		Source: cr.Next,
		OnPacket: func(i int, hdr *rtpheader.Header) {
			log.Debugw("packet",
				"index", i,
				"payload_type", hdr.PayloadType.String(),
				"sequence_number", hdr.SequenceNumber,
				"timestamp", hdr.Timestamp,
				"marker", hdr.Marker)
		},
	}

	bw := &bitstream.Writer{W: out}
	units := 0

	for {
		nalu, err := d.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		if nalu.Origin == rtph265.OriginFragmented {
			log.Debugw("fragmented NAL unit",
				"size", len(nalu.Payload),
				"type", nalu.Type.String())
		} else {
			log.Debugw("single NAL unit",
				"size", len(nalu.Payload),
				"type", nalu.Type.String())
		}

		err = bw.WriteNALU(nalu)
		if err != nil {
			return err
		}
		units++
	}

	log.Infow("bitstream written", "units", units, "output", outputPath)
	return nil
}

// Inspect logs the index and length of every record of a cat container.
func Inspect(log *zap.SugaredLogger, inputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck

	cr := &cat.Reader{R: in}

	for i := 0; ; i++ {
		payload, err := cr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		log.Infof("cat %d len %d", i, len(payload))
	}
}

// sortRawFiles orders raw NAL dump files by the numeric prefix of
// their name ("12.raw.bin" sorts by 12).
func sortRawFiles(paths []string) error {
	keys := make(map[string]int, len(paths))
	for _, p := range paths {
		stem, _, _ := strings.Cut(filepath.Base(p), ".")
		n, err := strconv.Atoi(stem)
		if err != nil {
			return fmt.Errorf("unable to order %s: %w", p, err)
		}
		keys[p] = n
	}

	sort.Slice(paths, func(i, j int) bool {
		return keys[paths[i]] < keys[paths[j]]
	})
	return nil
}

// Combine concatenates the raw NAL unit dumps of a capture group
// directory into a single start-code-delimited bitstream. The dumps
// already include their NAL unit header.
func Combine(log *zap.SugaredLogger, dirPath string, outputPath string, overwrite bool) error {
	paths, err := filepath.Glob(filepath.Join(dirPath, "*.raw.bin"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no *.raw.bin files in %s", dirPath)
	}

	err = sortRawFiles(paths)
	if err != nil {
		return err
	}

	out, err := createOutput(outputPath, overwrite)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		log.Infow("processing", "file", filepath.Base(p))

		_, err = out.Write(bitstream.StartCode)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		if err != nil {
			return err
		}
	}

	return nil
}
