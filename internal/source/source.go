//////////////////////////////////////////////////////////////////////////////
//
// Frame sources feeding a render session
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package source implements the frame sources a render session can draw
// from: a network stream, a looped local video, a static image, and raw
// pixel injection for buffer-based destinations.
package source

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/logging"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/pkg/errors"
)

var log = logging.DefaultLogger.WithTag("source")

var (
	ErrAlreadyStarted = errors.New("source already started")
	ErrStopped        = errors.New("source stopped")
	ErrNoFrame        = errors.New("no frame to latch")
)

// Heartbeat is the redraw interval for sources without their own clock.
const Heartbeat = 33 * time.Millisecond

// State is a position in the source lifecycle. States only move forward.
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	}
	return "State(?)"
}

// A Source produces frames for one render session.
//
// Start, Latch and Release are called on the session's render thread. Stop
// may be called from any goroutine, in any state, any number of times; it
// returns once the source's workers have exited.
type Source interface {
	Start() error
	Stop() error
	State() State

	// Available signals that a new frame can be latched. Signals coalesce:
	// several frames arriving before the render thread looks yield one.
	Available() <-chan struct{}

	// Latch makes the newest frame current on the source's texture.
	Latch() (render.Frame, error)

	// Release frees intermediate surfaces. Call after Stop.
	Release()
}

// Deps are the collaborators a source borrows from its session.
type Deps struct {
	// Opener resolves media locators for file and image sources.
	Opener media.Opener

	// Decoders create hardware decoders for stream and file sources.
	Decoders media.DecoderFactory

	// Surfaces wraps Texture in an intermediate surface decoders render to.
	Surfaces gles.SurfaceTextureFactory

	// Texture is the renderer's texture.
	Texture gles.Texture

	// Upload loads RGBA pixels into a Planar2D texture.
	Upload func(width, height int, rgba []byte) error

	// Demux opens a container; defaults to media.OpenFile.
	Demux func(r io.ReadSeeker) (media.Demuxer, error)

	// Dial connects to a stream; defaults to media.OpenStream.
	Dial func(ctx context.Context, url string) (media.Demuxer, error)
}

func (d Deps) opener() media.Opener {
	if d.Opener == nil {
		return media.DefaultRegistry
	}
	return d.Opener
}

func (d Deps) demux(r io.ReadSeeker) (media.Demuxer, error) {
	if d.Demux == nil {
		return media.OpenFile(r)
	}
	return d.Demux(r)
}

func (d Deps) dial(ctx context.Context, url string) (media.Demuxer, error) {
	if d.Dial == nil {
		return media.OpenStream(ctx, url)
	}
	return d.Dial(ctx, url)
}

// lifecycle carries the state machine and notification channel shared by
// every source.
type lifecycle struct {
	name  string
	state int32 // State
	avail chan struct{}

	// Serializes Start and Stop.
	mu     sync.Mutex
	worker *worker

	// Bounded join for workers that may block in a decoder.
	joinTimeout time.Duration

	// unblock is called when the worker misses joinTimeout. It must make
	// the worker return, e.g. by closing what it is blocked on.
	unblock func()
}

func (l *lifecycle) init(name string, joinTimeout time.Duration) {
	l.name = name
	l.avail = make(chan struct{}, 1)
	l.joinTimeout = joinTimeout
}

func (l *lifecycle) State() State {
	return State(atomic.LoadInt32(&l.state))
}

func (l *lifecycle) Available() <-chan struct{} {
	return l.avail
}

// start moves Idle to Starting, runs setup on the calling thread, then hands
// run to a worker goroutine.
func (l *lifecycle) start(setup func() error, run loopFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case Idle:
	case Stopping, Stopped:
		return ErrStopped
	default:
		return ErrAlreadyStarted
	}
	atomic.StoreInt32(&l.state, int32(Starting))
	log.Debug("%s: starting", l.name)

	if setup != nil {
		if err := setup(); err != nil {
			return err
		}
	}
	if run != nil {
		l.worker = newWorker(l.name, run)
		l.worker.start()
	}
	return nil
}

// running marks setup complete. It has no effect once Stop has begun.
func (l *lifecycle) running() bool {
	ok := atomic.CompareAndSwapInt32(&l.state, int32(Starting), int32(Running))
	if ok {
		log.Info("%s: running", l.name)
	}
	return ok
}

// notify raises frame-available, coalescing with any pending signal.
func (l *lifecycle) notify() {
	if l.State() != Running {
		return
	}
	select {
	case l.avail <- struct{}{}:
	default:
	}
}

func (l *lifecycle) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.State() {
	case Stopped:
		return nil
	case Idle:
		atomic.StoreInt32(&l.state, int32(Stopped))
		return nil
	}

	atomic.StoreInt32(&l.state, int32(Stopping))
	if l.worker != nil && !l.worker.stop(l.joinTimeout) {
		log.Warn("%s: worker did not exit within %v, unblocking it", l.name, l.joinTimeout)
		if l.unblock != nil {
			l.unblock()
		}
		if !l.worker.stop(l.joinTimeout) {
			log.Error("%s: worker still running, abandoning it", l.name)
		}
	}
	atomic.StoreInt32(&l.state, int32(Stopped))
	log.Debug("%s: stopped", l.name)
	return nil
}

// sleep waits for d or until quit closes. It reports whether the full
// duration elapsed.
func sleep(quit <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-quit:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-quit:
		return false
	case <-t.C:
		return true
	}
}
