//////////////////////////////////////////////////////////////////////////////
//
// Raw pixel delivery for destinations that expect buffers, not surfaces
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package inject converts a still image into raw frames (planar YUV 4:2:0,
// semi-planar NV21, or JPEG) and writes them into buffers handed out by a
// destination.
package inject

import (
	"strings"

	"github.com/lanikai/virtucam/internal/logging"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("inject")

var (
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrCapacity          = errors.New("destination buffer too small")
)

// Format is a destination pixel format.
type Format int

const (
	Unknown Format = iota
	YUV420         // Y plane, U plane, V plane
	NV21           // Y plane, interleaved VU plane
	JPEG           // one compressed buffer
)

func (f Format) String() string {
	switch f {
	case YUV420:
		return "yuv420"
	case NV21:
		return "nv21"
	case JPEG:
		return "jpeg"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the names produced by Format.String, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yuv420", "i420", "yuv_420_888":
		return YUV420, nil
	case "nv21":
		return NV21, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return Unknown, errors.Wrapf(ErrUnsupportedFormat, "%q", s)
}

// An Image is one destination buffer. The length of each plane is its
// capacity; writes never extend past it.
type Image struct {
	Format        Format
	Width, Height int
	Planes        [][]byte
}

// A Writer hands out destination buffers. Every image obtained from Dequeue
// must be returned through exactly one of Queue or Discard.
type Writer interface {
	Dequeue() (*Image, error)

	// Queue delivers a filled image to the consumer.
	Queue(img *Image) error

	// Discard returns an image without delivering it.
	Discard(img *Image)
}
