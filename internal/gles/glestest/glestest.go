// Package glestest provides recording fakes of the gles ports for tests.
package glestest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/pkg/errors"
)

// Recorder collects an ordered call log shared by fakes, so tests can assert
// ordering across EGL, GL and SurfaceTexture calls.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *Recorder) record(format string, a ...interface{}) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, a...))
	r.mu.Unlock()
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many recorded calls start with prefix.
func (r *Recorder) Count(prefix string) int {
	n := 0
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Index returns the position of the first call starting with prefix, or -1.
func (r *Recorder) Index(prefix string) int {
	for i, c := range r.Calls() {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

// EGL is a fake gles.EGL. Set Fail[method] to make that method fail.
type EGL struct {
	*Recorder

	Fail map[string]error

	mu   sync.Mutex
	next uintptr
	live map[string]int

	width, height int
}

func NewEGL(rec *Recorder) *EGL {
	if rec == nil {
		rec = new(Recorder)
	}
	return &EGL{Recorder: rec, Fail: map[string]error{}, next: 0x100, live: map[string]int{}, width: 640, height: 480}
}

func (e *EGL) fail(method string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Fail[method]
}

func (e *EGL) alloc(kind string) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.live[kind]++
	return e.next
}

func (e *EGL) free(kind string) {
	e.mu.Lock()
	e.live[kind]--
	e.mu.Unlock()
}

// Live returns the number of live objects of the given kind: "display",
// "context" or "surface".
func (e *EGL) Live(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live[kind]
}

// SetFail makes method fail with err (nil clears it).
func (e *EGL) SetFail(method string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.Fail, method)
	} else {
		e.Fail[method] = err
	}
}

func (e *EGL) GetDisplay() (gles.Display, error) {
	e.record("eglGetDisplay")
	if err := e.fail("GetDisplay"); err != nil {
		return gles.NoDisplay, err
	}
	return gles.Display(e.alloc("display")), nil
}

func (e *EGL) Initialize(d gles.Display) (int, int, error) {
	e.record("eglInitialize")
	if err := e.fail("Initialize"); err != nil {
		return 0, 0, err
	}
	return 1, 4, nil
}

func (e *EGL) ChooseConfig(d gles.Display, attribs []int32) (gles.Config, error) {
	e.record("eglChooseConfig %v", attribs)
	if err := e.fail("ChooseConfig"); err != nil {
		return 0, err
	}
	return gles.Config(0x42), nil
}

func (e *EGL) CreateContext(d gles.Display, c gles.Config, attribs []int32) (gles.Context, error) {
	e.record("eglCreateContext")
	if err := e.fail("CreateContext"); err != nil {
		return gles.NoContext, err
	}
	return gles.Context(e.alloc("context")), nil
}

func (e *EGL) CreateWindowSurface(d gles.Display, c gles.Config, win gles.NativeWindow) (gles.Surface, error) {
	e.record("eglCreateWindowSurface %#x", uintptr(win))
	if err := e.fail("CreateWindowSurface"); err != nil {
		return gles.NoSurface, err
	}
	return gles.Surface(e.alloc("surface")), nil
}

func (e *EGL) MakeCurrent(d gles.Display, s gles.Surface, ctx gles.Context) error {
	if ctx == gles.NoContext {
		e.record("eglMakeCurrent none")
	} else {
		e.record("eglMakeCurrent")
	}
	return e.fail("MakeCurrent")
}

func (e *EGL) SwapBuffers(d gles.Display, s gles.Surface) error {
	e.record("eglSwapBuffers")
	return e.fail("SwapBuffers")
}

// SetSize changes the size window surfaces report. The default is 640x480.
func (e *EGL) SetSize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = width, height
}

func (e *EGL) QuerySurfaceSize(d gles.Display, s gles.Surface) (int, int, error) {
	if err := e.fail("QuerySurfaceSize"); err != nil {
		return 0, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, nil
}

func (e *EGL) DestroySurface(d gles.Display, s gles.Surface) error {
	e.record("eglDestroySurface")
	e.free("surface")
	return nil
}

func (e *EGL) DestroyContext(d gles.Display, ctx gles.Context) error {
	e.record("eglDestroyContext")
	e.free("context")
	return nil
}

func (e *EGL) ReleaseThread() error {
	e.record("eglReleaseThread")
	return nil
}

func (e *EGL) Terminate(d gles.Display) error {
	e.record("eglTerminate")
	e.free("display")
	return nil
}

// ErrInjected is a convenient failure for Fail maps.
var ErrInjected = errors.New("injected failure")
