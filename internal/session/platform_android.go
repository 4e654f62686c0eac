//go:build android

package session

import (
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/media"
)

// NativePlatform assembles the device EGL, GLES and MediaCodec bindings. The
// host supplies what needs managed-runtime objects: intermediate surface
// textures and substitute surfaces.
func NativePlatform(surfaces gles.SurfaceTextureFactory, substitutes SubstituteFactory) Platform {
	return Platform{
		EGL:         gles.NewEGL(),
		GL:          gles.NewGL(),
		Surfaces:    surfaces,
		Decoders:    media.NewMediaCodec,
		Opener:      media.DefaultRegistry,
		Substitutes: substitutes,
	}
}
