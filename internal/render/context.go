//////////////////////////////////////////////////////////////////////////////
//
// GraphicsContext binds a rendering context to one destination surface
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package render

import (
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/pkg/errors"
)

// RGBA8888, ES 2.0, and recordable so the surface can sit on either side of
// a hardware codec.
var configAttribs = []int32{
	gles.EGL_RED_SIZE, 8,
	gles.EGL_GREEN_SIZE, 8,
	gles.EGL_BLUE_SIZE, 8,
	gles.EGL_ALPHA_SIZE, 8,
	gles.EGL_RENDERABLE_TYPE, gles.EGL_OPENGL_ES2_BIT,
	gles.EGL_RECORDABLE_ANDROID, 1,
	gles.EGL_NONE,
}

var contextAttribs = []int32{
	gles.EGL_CONTEXT_CLIENT_VERSION, 2,
	gles.EGL_NONE,
}

// A GraphicsContext owns the display/config/context/surface tuple for exactly
// one destination window. It must be created, used and released on a single
// OS thread.
type GraphicsContext struct {
	egl gles.EGL

	display gles.Display
	config  gles.Config
	context gles.Context
	surface gles.Surface

	window gles.NativeWindow
}

// NewGraphicsContext binds the default display, picks a recordable ES 2.0
// config, creates a context, and creates a window surface over win. On
// failure everything created so far is released.
func NewGraphicsContext(egl gles.EGL, win gles.NativeWindow) (*GraphicsContext, error) {
	gc := &GraphicsContext{egl: egl, window: win}
	if err := gc.init(); err != nil {
		gc.Release()
		return nil, err
	}
	return gc, nil
}

func (gc *GraphicsContext) init() (err error) {
	gc.display, err = gc.egl.GetDisplay()
	if err != nil {
		return errors.Wrap(err, "unable to get display")
	}

	major, minor, err := gc.egl.Initialize(gc.display)
	if err != nil {
		return errors.Wrap(err, "unable to initialize display")
	}
	log.Debug("EGL %d.%d initialized for window %#x", major, minor, uintptr(gc.window))

	gc.config, err = gc.egl.ChooseConfig(gc.display, configAttribs)
	if err != nil {
		return errors.Wrap(err, "no recordable RGBA8888 config")
	}

	gc.context, err = gc.egl.CreateContext(gc.display, gc.config, contextAttribs)
	if err != nil {
		return errors.Wrap(err, "unable to create context")
	}

	gc.surface, err = gc.egl.CreateWindowSurface(gc.display, gc.config, gc.window)
	if err != nil {
		return errors.Wrapf(err, "window %#x was released or is invalid", uintptr(gc.window))
	}

	return nil
}

// Window returns the destination surface this context presents to.
func (gc *GraphicsContext) Window() gles.NativeWindow {
	return gc.window
}

// MakeCurrent binds the context and surface to the calling thread.
func (gc *GraphicsContext) MakeCurrent() error {
	if gc.context == gles.NoContext {
		return errors.New("graphics context released")
	}
	return gc.egl.MakeCurrent(gc.display, gc.surface, gc.context)
}

// SwapBuffers presents the back buffer on the destination surface.
func (gc *GraphicsContext) SwapBuffers() error {
	if gc.surface == gles.NoSurface {
		return errors.New("graphics context released")
	}
	return gc.egl.SwapBuffers(gc.display, gc.surface)
}

// Size returns the current size of the destination surface. It changes when
// the consumer resizes its buffers.
func (gc *GraphicsContext) Size() (width, height int, err error) {
	if gc.surface == gles.NoSurface {
		return 0, 0, errors.New("graphics context released")
	}
	return gc.egl.QuerySurfaceSize(gc.display, gc.surface)
}

// Release unbinds the current context, then destroys context, surface and
// display, in that order. Safe to call more than once.
func (gc *GraphicsContext) Release() {
	if gc.display == gles.NoDisplay {
		return
	}

	if err := gc.egl.MakeCurrent(gc.display, gles.NoSurface, gles.NoContext); err != nil {
		log.Warn("Unbinding context: %v", err)
	}
	if gc.context != gles.NoContext {
		if err := gc.egl.DestroyContext(gc.display, gc.context); err != nil {
			log.Warn("Destroying context: %v", err)
		}
		gc.context = gles.NoContext
	}
	if gc.surface != gles.NoSurface {
		if err := gc.egl.DestroySurface(gc.display, gc.surface); err != nil {
			log.Warn("Destroying surface: %v", err)
		}
		gc.surface = gles.NoSurface
	}
	if err := gc.egl.ReleaseThread(); err != nil {
		log.Warn("Releasing thread: %v", err)
	}
	if err := gc.egl.Terminate(gc.display); err != nil {
		log.Warn("Terminating display: %v", err)
	}
	gc.display = gles.NoDisplay
}
