package source

import (
	"sync/atomic"

	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/render"
)

// RawInject writes a still picture into raw buffers for destinations that
// take pixels rather than a composited surface. It never touches graphics.
type RawInject struct {
	// Accessed atomically; kept first for 64-bit alignment on 32-bit ARM.
	delivered uint64
	skipped   uint64

	lifecycle

	locator string
	dst     inject.Writer
	deps    Deps
}

func NewRawInject(locator string, dst inject.Writer, deps Deps) *RawInject {
	r := &RawInject{locator: locator, dst: dst, deps: deps}
	r.lifecycle.init("raw-inject", 0)
	return r
}

// Start decodes the picture and begins filling buffers on a worker.
func (r *RawInject) Start() error {
	return r.start(nil, r.run)
}

// Delivered returns the number of buffers queued to the destination.
func (r *RawInject) Delivered() uint64 {
	return atomic.LoadUint64(&r.delivered)
}

// Skipped returns the number of buffers discarded unfilled.
func (r *RawInject) Skipped() uint64 {
	return atomic.LoadUint64(&r.skipped)
}

func (r *RawInject) run(quit <-chan struct{}) {
	rc, err := r.deps.opener().Open(r.locator)
	if err != nil {
		log.Error("Raw inject %s: %v", r.locator, err)
		return
	}
	src, err := inject.Decode(rc)
	rc.Close()
	if err != nil {
		log.Error("Raw inject %s: %v", r.locator, err)
		return
	}
	injector := inject.NewInjector(src)
	r.running()

	for sleep(quit, Heartbeat) {
		r.deliver(injector)
	}
}

func (r *RawInject) deliver(injector *inject.Injector) {
	img, err := r.dst.Dequeue()
	if err != nil {
		log.Debug("Raw inject: no buffer: %v", err)
		return
	}
	if err := injector.Inject(img); err != nil {
		if atomic.AddUint64(&r.skipped, 1) == 1 {
			log.Warn("Raw inject: skipping %v %dx%d frames: %v", img.Format, img.Width, img.Height, err)
		}
		r.dst.Discard(img)
		return
	}
	if err := r.dst.Queue(img); err != nil {
		log.Warn("Raw inject: queueing buffer: %v", err)
		return
	}
	atomic.AddUint64(&r.delivered, 1)
	r.notify()
}

// Latch has nothing to latch; frames go straight to the destination.
func (r *RawInject) Latch() (render.Frame, error) {
	return render.Frame{}, ErrNoFrame
}

func (r *RawInject) Release() {}
