//go:build !android

package media

import (
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/nareix/joy4/av"
	errors "golang.org/x/xerrors"
)

// NewMediaCodec is only available on Android.
func NewMediaCodec(codec av.VideoCodecData, surface gles.NativeWindow) (Decoder, error) {
	return nil, errors.Errorf("hardware %v decoder: %w", codec.Type(), ErrNotSupported)
}
