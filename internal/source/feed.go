package source

import (
	"sync"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/pkg/errors"
)

// A surfaceFeed is the intermediate surface a decoder renders into. Only its
// producer window is touched off the render thread.
type surfaceFeed struct {
	rotation int

	mu sync.Mutex
	st gles.SurfaceTexture
}

// open creates the intermediate surface over the renderer's texture.
func (f *surfaceFeed) open(deps Deps) error {
	if deps.Surfaces == nil {
		return errors.New("no surface texture factory")
	}
	st, err := deps.Surfaces(deps.Texture)
	if err != nil {
		return errors.Wrap(err, "creating intermediate surface")
	}
	f.mu.Lock()
	f.st = st
	f.mu.Unlock()
	return nil
}

func (f *surfaceFeed) window() gles.NativeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st == nil {
		return 0
	}
	return f.st.Window()
}

func (f *surfaceFeed) latch() (render.Frame, error) {
	f.mu.Lock()
	st := f.st
	f.mu.Unlock()
	if st == nil {
		return render.Frame{}, ErrNoFrame
	}
	if err := st.UpdateTexImage(); err != nil {
		return render.Frame{}, errors.Wrap(err, "updating texture image")
	}
	return render.Frame{Transform: st.TransformMatrix(), Rotation: f.rotation}, nil
}

func (f *surfaceFeed) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.st != nil {
		f.st.Release()
		f.st = nil
	}
}

// present hands a decoded output to the surface and reports whether a frame
// was rendered. Empty buffers are dropped.
func present(dec media.Decoder, out media.Output) bool {
	show := out.Size != 0
	if err := dec.Release(out, show); err != nil {
		log.Warn("Releasing output %d: %v", out.Index, err)
		return false
	}
	return show
}
