package source

import (
	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/pkg/errors"
)

// Image shows a still picture. It is uploaded once and redrawn on a fixed
// heartbeat.
type Image struct {
	lifecycle

	locator  string
	rotation int
	deps     Deps
}

func NewImage(locator string, rotation int, deps Deps) *Image {
	img := &Image{locator: locator, rotation: rotation, deps: deps}
	img.lifecycle.init("image", 0)
	return img
}

// Start decodes the image and uploads it to the renderer's texture. It must
// run on the render thread.
func (img *Image) Start() error {
	return img.start(img.upload, img.run)
}

func (img *Image) upload() error {
	if img.deps.Upload == nil {
		return errors.New("no texture upload available")
	}
	rc, err := img.deps.opener().Open(img.locator)
	if err != nil {
		return err
	}
	defer rc.Close()

	src, err := inject.Decode(rc)
	if err != nil {
		return err
	}
	b := src.Bounds()
	pixels := inject.Scale(src, b.Dx(), b.Dy())
	if err := img.deps.Upload(b.Dx(), b.Dy(), pixels.Pix); err != nil {
		return errors.Wrap(err, "uploading image")
	}
	log.Info("Image %s uploaded: %dx%d", img.locator, b.Dx(), b.Dy())
	img.running()
	return nil
}

func (img *Image) run(quit <-chan struct{}) {
	for sleep(quit, Heartbeat) {
		img.notify()
	}
}

// Latch returns the identity transform; the texture never changes.
func (img *Image) Latch() (render.Frame, error) {
	if img.State() != Running {
		return render.Frame{}, ErrNoFrame
	}
	return render.Frame{Transform: render.Identity, Rotation: img.rotation}, nil
}

func (img *Image) Release() {}
