package media

import (
	"github.com/lanikai/virtucam/internal/media/h264"
	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/codec/h264parser"
	errors "golang.org/x/xerrors"
)

var startCode = []byte{0, 0, 0, 1}

// AnnexB rewrites length-prefixed (AVCC) NAL units, as produced by the
// demuxers, into start-code delimited form for hardware decoders.
func AnnexB(avcc []byte) ([]byte, error) {
	units, err := h264.SplitAVCC(avcc)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(avcc)+16)
	for _, u := range units {
		out = append(out, startCode...)
		out = append(out, u...)
	}
	return out, nil
}

// MIME type and codec-specific data for configuring a decoder.
type CodecConfig struct {
	MIME          string
	Width, Height int
	CSD           [][]byte
}

// ConfigFor derives decoder configuration from demuxed codec data. Only
// H.264 is supported.
func ConfigFor(cd av.VideoCodecData) (CodecConfig, error) {
	h, ok := cd.(h264parser.CodecData)
	if !ok {
		return CodecConfig{}, errors.Errorf("%v decoding: %w", cd.Type(), ErrNotSupported)
	}
	return CodecConfig{
		MIME:   "video/avc",
		Width:  h.Width(),
		Height: h.Height(),
		CSD: [][]byte{
			append(append([]byte{}, startCode...), h.SPS()...),
			append(append([]byte{}, startCode...), h.PPS()...),
		},
	}, nil
}

// IsKeyFrame reports whether a decoder can start at pkt. Some RTSP servers
// don't flag keyframes, so the payload is checked for an IDR slice too.
func IsKeyFrame(pkt av.Packet) bool {
	if pkt.IsKeyFrame {
		return true
	}
	units, err := h264.SplitAVCC(pkt.Data)
	return err == nil && h264.HasIDR(units)
}
