//go:build android

//////////////////////////////////////////////////////////////////////////////
//
// EGL binding for Android
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package gles

/*
#cgo LDFLAGS: -lEGL
#include <stdint.h>
#include <EGL/egl.h>
#include <EGL/eglext.h>

static uintptr_t vc_get_display(void) {
	return (uintptr_t)eglGetDisplay(EGL_DEFAULT_DISPLAY);
}

static int vc_initialize(uintptr_t d, EGLint *major, EGLint *minor) {
	return eglInitialize((EGLDisplay)d, major, minor);
}

static uintptr_t vc_choose_config(uintptr_t d, const EGLint *attribs) {
	EGLConfig c = 0;
	EGLint n = 0;
	if (!eglChooseConfig((EGLDisplay)d, attribs, &c, 1, &n) || n == 0) {
		return 0;
	}
	return (uintptr_t)c;
}

static uintptr_t vc_create_context(uintptr_t d, uintptr_t c, const EGLint *attribs) {
	return (uintptr_t)eglCreateContext((EGLDisplay)d, (EGLConfig)c, EGL_NO_CONTEXT, attribs);
}

static uintptr_t vc_create_window_surface(uintptr_t d, uintptr_t c, uintptr_t win) {
	const EGLint attribs[] = { EGL_NONE };
	return (uintptr_t)eglCreateWindowSurface((EGLDisplay)d, (EGLConfig)c, (EGLNativeWindowType)win, attribs);
}

static int vc_make_current(uintptr_t d, uintptr_t s, uintptr_t ctx) {
	return eglMakeCurrent((EGLDisplay)d, (EGLSurface)s, (EGLSurface)s, (EGLContext)ctx);
}

static int vc_swap_buffers(uintptr_t d, uintptr_t s) {
	return eglSwapBuffers((EGLDisplay)d, (EGLSurface)s);
}

static int vc_destroy_surface(uintptr_t d, uintptr_t s) {
	return eglDestroySurface((EGLDisplay)d, (EGLSurface)s);
}

static int vc_destroy_context(uintptr_t d, uintptr_t ctx) {
	return eglDestroyContext((EGLDisplay)d, (EGLContext)ctx);
}

static int vc_query_size(uintptr_t d, uintptr_t s, EGLint *w, EGLint *h) {
	return eglQuerySurface((EGLDisplay)d, (EGLSurface)s, EGL_WIDTH, w) &&
		eglQuerySurface((EGLDisplay)d, (EGLSurface)s, EGL_HEIGHT, h);
}

static int vc_terminate(uintptr_t d) {
	return eglTerminate((EGLDisplay)d);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

type eglBinding struct{}

// NewEGL returns the platform EGL implementation.
func NewEGL() EGL {
	return eglBinding{}
}

func eglFailure(op string) error {
	return errors.Errorf("%s failed: EGL error 0x%04x", op, int(C.eglGetError()))
}

func (eglBinding) GetDisplay() (Display, error) {
	d := Display(C.vc_get_display())
	if d == NoDisplay {
		return NoDisplay, eglFailure("eglGetDisplay")
	}
	return d, nil
}

func (eglBinding) Initialize(d Display) (int, int, error) {
	var major, minor C.EGLint
	if C.vc_initialize(C.uintptr_t(d), &major, &minor) == 0 {
		return 0, 0, eglFailure("eglInitialize")
	}
	return int(major), int(minor), nil
}

func (eglBinding) ChooseConfig(d Display, attribs []int32) (Config, error) {
	c := Config(C.vc_choose_config(C.uintptr_t(d), (*C.EGLint)(unsafe.Pointer(&attribs[0]))))
	if c == 0 {
		return 0, eglFailure("eglChooseConfig")
	}
	return c, nil
}

func (eglBinding) CreateContext(d Display, c Config, attribs []int32) (Context, error) {
	ctx := Context(C.vc_create_context(C.uintptr_t(d), C.uintptr_t(c), (*C.EGLint)(unsafe.Pointer(&attribs[0]))))
	if ctx == NoContext {
		return NoContext, eglFailure("eglCreateContext")
	}
	return ctx, nil
}

func (eglBinding) CreateWindowSurface(d Display, c Config, win NativeWindow) (Surface, error) {
	s := Surface(C.vc_create_window_surface(C.uintptr_t(d), C.uintptr_t(c), C.uintptr_t(win)))
	if s == NoSurface {
		return NoSurface, eglFailure("eglCreateWindowSurface")
	}
	return s, nil
}

func (eglBinding) MakeCurrent(d Display, s Surface, ctx Context) error {
	if C.vc_make_current(C.uintptr_t(d), C.uintptr_t(s), C.uintptr_t(ctx)) == 0 {
		return eglFailure("eglMakeCurrent")
	}
	return nil
}

func (eglBinding) SwapBuffers(d Display, s Surface) error {
	if C.vc_swap_buffers(C.uintptr_t(d), C.uintptr_t(s)) == 0 {
		return eglFailure("eglSwapBuffers")
	}
	return nil
}

func (eglBinding) QuerySurfaceSize(d Display, s Surface) (int, int, error) {
	var w, h C.EGLint
	if C.vc_query_size(C.uintptr_t(d), C.uintptr_t(s), &w, &h) == 0 {
		return 0, 0, eglFailure("eglQuerySurface")
	}
	return int(w), int(h), nil
}

func (eglBinding) DestroySurface(d Display, s Surface) error {
	if C.vc_destroy_surface(C.uintptr_t(d), C.uintptr_t(s)) == 0 {
		return eglFailure("eglDestroySurface")
	}
	return nil
}

func (eglBinding) DestroyContext(d Display, ctx Context) error {
	if C.vc_destroy_context(C.uintptr_t(d), C.uintptr_t(ctx)) == 0 {
		return eglFailure("eglDestroyContext")
	}
	return nil
}

func (eglBinding) ReleaseThread() error {
	if C.eglReleaseThread() == 0 {
		return eglFailure("eglReleaseThread")
	}
	return nil
}

func (eglBinding) Terminate(d Display) error {
	if C.vc_terminate(C.uintptr_t(d)) == 0 {
		return eglFailure("eglTerminate")
	}
	return nil
}
