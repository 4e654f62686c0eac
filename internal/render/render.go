// Package render draws frames onto destination surfaces: a GraphicsContext
// per surface, and a TextureRenderer that composites one textured quad per
// frame.
package render

import (
	"github.com/lanikai/virtucam/internal/logging"
)

var log = logging.DefaultLogger.WithTag("render")

// A Frame is the per-frame state a source hands the renderer. It is consumed
// synchronously and never retained.
type Frame struct {
	// Column-major texture-coordinate transform from the surface producer.
	Transform [16]float32

	// Counter-clockwise rotation of the quad about the z axis, in degrees.
	Rotation int
}

// Identity is the 4x4 identity matrix.
var Identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}
