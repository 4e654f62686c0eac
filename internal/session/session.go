//////////////////////////////////////////////////////////////////////////////
//
// Render sessions: one thread, one context, one source per destination
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package session runs one render session per destination surface and swaps
// the whole set whenever the consumer opens a new capture session.
package session

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/lanikai/virtucam/internal/config"
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/logging"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/lanikai/virtucam/internal/source"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("session")

// ErrDisabled is returned when substitution is off for this process.
var ErrDisabled = errors.New("substitution disabled")

// A Target is one destination the consumer asked for frames on. Exactly one
// of Window and Raw is set; Raw writers must be comparable, typically
// pointers.
type Target struct {
	// Window is a composited destination surface.
	Window gles.NativeWindow

	// Raw is a destination that takes pixel buffers.
	Raw inject.Writer
}

func (t Target) String() string {
	if t.Raw != nil {
		return fmt.Sprintf("raw:%p", t.Raw)
	}
	return fmt.Sprintf("window:%#x", uintptr(t.Window))
}

// A Substitute is the surface handed to the camera in place of a target.
type Substitute interface {
	Window() gles.NativeWindow
	Release()
}

// SubstituteFactory creates substitute surfaces.
type SubstituteFactory func() (Substitute, error)

// Platform is the graphics and media machinery sessions run on.
type Platform struct {
	EGL         gles.EGL
	GL          gles.GL
	Surfaces    gles.SurfaceTextureFactory
	Decoders    media.DecoderFactory
	Opener      media.Opener
	Substitutes SubstituteFactory
}

// A Session renders one source onto one target from a dedicated OS thread.
// Every graphics call for the session happens on that thread.
type Session struct {
	frames uint64 // atomic; first for alignment

	target   Target
	snap     config.Snapshot
	platform Platform

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	// Set by the render thread before done closes.
	tid int
	err error
}

func newSession(target Target, snap config.Snapshot, p Platform) *Session {
	return &Session{
		target:   target,
		snap:     snap,
		platform: p,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Session) Target() Target { return s.target }

// Snapshot returns the configuration the session was started with.
func (s *Session) Snapshot() config.Snapshot { return s.snap }

// Frames returns the number of frames presented or delivered so far.
func (s *Session) Frames() uint64 { return atomic.LoadUint64(&s.frames) }

// Done is closed once the render thread has exited and released everything.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session aborted, once Done is closed.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

// ThreadID returns the kernel id of the render thread, once Done is closed.
func (s *Session) ThreadID() int {
	<-s.done
	return s.tid
}

func (s *Session) start() {
	go s.run()
}

// stop asks the render thread to finish and waits for its teardown.
func (s *Session) stop() {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Session) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.done)

	s.tid = gettid()
	defer func() {
		if r := recover(); r != nil {
			s.err = errors.Errorf("render thread panic: %v", r)
			log.Error("Session %v: %v\n%s", s.target, s.err, debug.Stack())
		}
	}()

	log.Info("Session %v: %v on thread %d", s.target, s.snap, s.tid)
	if s.target.Raw != nil {
		s.err = s.runRaw()
	} else {
		s.err = s.runSurface()
	}
	if s.err != nil {
		log.Error("Session %v aborted: %v", s.target, s.err)
	} else {
		log.Info("Session %v finished after %d frames", s.target, s.Frames())
	}
}

func (s *Session) deps() source.Deps {
	return source.Deps{
		Opener:   s.platform.Opener,
		Decoders: s.platform.Decoders,
		Surfaces: s.platform.Surfaces,
	}
}

// runSurface owns the graphics context. Teardown runs in reverse: stop the
// source, release its surfaces, release the renderer, release the context.
func (s *Session) runSurface() error {
	gc, err := render.NewGraphicsContext(s.platform.EGL, s.target.Window)
	if err != nil {
		return err
	}
	defer gc.Release()

	if err := gc.MakeCurrent(); err != nil {
		return errors.Wrap(err, "binding context")
	}

	kind := render.Planar2D
	if s.snap.Mode == config.Stream || s.snap.Mode == config.Video {
		kind = render.External
	}
	r := render.NewTextureRenderer(s.platform.GL)
	if err := r.Init(kind); err != nil {
		return err
	}
	defer r.Release()

	deps := s.deps()
	deps.Texture = r.Texture()
	deps.Upload = r.Upload

	var src source.Source
	switch s.snap.Mode {
	case config.Stream:
		src = source.NewStream(s.snap.StreamURL, s.snap.Rotation, deps)
	case config.Video:
		src = source.NewFileVideo(s.snap.Media, s.snap.Rotation, deps)
	default:
		src = source.NewImage(s.snap.Media, s.snap.Rotation, deps)
	}
	defer src.Release()
	defer src.Stop()

	if err := src.Start(); err != nil {
		// Source failures stall the session rather than end it.
		log.Error("Session %v: starting source: %v", s.target, err)
	}

	for {
		select {
		case <-s.quit:
			return nil
		case <-src.Available():
			frame, err := src.Latch()
			if err != nil {
				log.Debug("Session %v: latch: %v", s.target, err)
				continue
			}
			if w, h, err := gc.Size(); err == nil {
				r.SetViewport(w, h)
			} else {
				log.Debug("Session %v: surface size: %v", s.target, err)
			}
			r.Draw(frame.Transform, frame.Rotation)
			if err := gc.SwapBuffers(); err != nil {
				log.Warn("Session %v: swap: %v", s.target, err)
				continue
			}
			n := atomic.AddUint64(&s.frames, 1)
			log.Trace(2, "Session %v: frame %d", s.target, n)
		}
	}
}

// runRaw feeds a buffer destination. No graphics are involved.
func (s *Session) runRaw() error {
	src := source.NewRawInject(s.snap.Media, s.target.Raw, s.deps())
	defer src.Stop()

	if err := src.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-s.quit:
			return nil
		case <-src.Available():
			atomic.StoreUint64(&s.frames, src.Delivered())
		}
	}
}
