//////////////////////////////////////////////////////////////////////////////
//
// Hardware video decoder port
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"time"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/nareix/joy4/av"
)

// Output is a decoded buffer owned by the decoder until released.
type Output struct {
	Index       int
	PTS         time.Duration
	Size        int
	EndOfStream bool
}

// A Decoder decodes compressed video onto the surface it was created with.
// Outputs are rendered to that surface by Release(out, true).
//
// Close may be called from any goroutine, even while another call is in
// progress. Calls after Close return ErrClosed.
type Decoder interface {
	// Decode submits one packet and returns whatever outputs are ready.
	Decode(pkt av.Packet) ([]Output, error)

	Release(out Output, render bool) error

	// Flush discards queued input and pending outputs, e.g. after a seek.
	Flush() error

	Close() error
}

// A DecoderFactory creates a decoder for codec that renders onto surface.
type DecoderFactory func(codec av.VideoCodecData, surface gles.NativeWindow) (Decoder, error)
