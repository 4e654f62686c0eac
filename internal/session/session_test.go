package session

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"io/ioutil"
	"sync"
	"testing"
	"time"

	"github.com/lanikai/virtucam/internal/config"
	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/gles/glestest"
	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingEGL counts live window surfaces per destination and can refuse
// one destination.
type trackingEGL struct {
	*glestest.EGL

	failWindow gles.NativeWindow

	mu      sync.Mutex
	windows map[gles.Surface]gles.NativeWindow
	live    map[gles.NativeWindow]int
	overlap bool
}

func newTrackingEGL(rec *glestest.Recorder) *trackingEGL {
	return &trackingEGL{
		EGL:     glestest.NewEGL(rec),
		windows: map[gles.Surface]gles.NativeWindow{},
		live:    map[gles.NativeWindow]int{},
	}
}

func (e *trackingEGL) CreateWindowSurface(d gles.Display, c gles.Config, win gles.NativeWindow) (gles.Surface, error) {
	if win == e.failWindow {
		return gles.NoSurface, errors.New("window abandoned")
	}
	s, err := e.EGL.CreateWindowSurface(d, c, win)
	if err != nil {
		return s, err
	}
	e.mu.Lock()
	e.windows[s] = win
	e.live[win]++
	if e.live[win] > 1 {
		e.overlap = true
	}
	e.mu.Unlock()
	return s, nil
}

func (e *trackingEGL) DestroySurface(d gles.Display, s gles.Surface) error {
	e.mu.Lock()
	e.live[e.windows[s]]--
	delete(e.windows, s)
	e.mu.Unlock()
	return e.EGL.DestroySurface(d, s)
}

func (e *trackingEGL) sawOverlap() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlap
}

type panicGL struct{ *glestest.GL }

func (panicGL) DrawArrays(mode gles.Enum, first, count int) { panic("driver crashed") }

type fixture struct {
	rec  *glestest.Recorder
	egl  *trackingEGL
	gl   *glestest.GL
	subs *glestest.SurfaceTextures

	mu   sync.Mutex
	next gles.Texture

	platform Platform
}

func pngBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func newFixture() *fixture {
	f := &fixture{rec: new(glestest.Recorder), next: 100}
	f.egl = newTrackingEGL(f.rec)
	f.gl = glestest.NewGL(f.rec)
	f.subs = glestest.NewSurfaceTextures(f.rec)

	data := pngBytes(4, 4)
	f.platform = Platform{
		EGL:      f.egl,
		GL:       f.gl,
		Surfaces: glestest.NewSurfaceTextures(f.rec).Factory,
		Opener: media.OpenerFunc(func(string) (io.ReadCloser, error) {
			return ioutil.NopCloser(bytes.NewReader(data)), nil
		}),
		Substitutes: func() (Substitute, error) {
			f.mu.Lock()
			f.next++
			tex := f.next
			f.mu.Unlock()
			st, err := f.subs.Factory(tex)
			if err != nil {
				return nil, err
			}
			return st, nil
		},
	}
	return f
}

var imageConfig = config.Static(config.Snapshot{
	Enabled:  true,
	Mode:     config.Image,
	Media:    "/sdcard/pic.png",
	Rotation: 90,
})

func windows(ws ...gles.NativeWindow) []Target {
	var ts []Target
	for _, w := range ws {
		ts = append(ts, Target{Window: w})
	}
	return ts
}

func waitFrames(t *testing.T, s *Session, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Frames() < n {
		if time.Now().After(deadline) {
			t.Fatalf("session %v: %d of %d frames", s.Target(), s.Frames(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReplaceStartsOneSessionPerTarget(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	subs, err := m.Replace(windows(0xa1, 0xa2))
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.NotEqual(t, subs[0], subs[1])

	sessions := m.Sessions()
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		waitFrames(t, s, 3)
	}
	assert.Len(t, m.Bindings(), 2)

	m.Close()
	assert.Empty(t, m.Sessions())
	assert.Empty(t, m.Bindings())
	for _, s := range sessions {
		assert.NoError(t, s.Err())
	}
	assert.NotEqual(t, sessions[0].ThreadID(), 0)
	assert.NotEqual(t, sessions[0].ThreadID(), sessions[1].ThreadID())

	assert.Equal(t, 0, f.egl.Live("display"))
	assert.Equal(t, 0, f.egl.Live("surface"))
	assert.Equal(t, 0, f.gl.LivePrograms())
	assert.Equal(t, 0, f.gl.LiveTextures())
	for _, st := range f.subs.Created() {
		assert.True(t, st.Released())
	}
}

func TestReplaceStopsPreviousSessionsFirst(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	_, err := m.Replace(windows(0xb1, 0xb2))
	require.NoError(t, err)
	old := m.Sessions()
	oldSubs := f.subs.Created()

	_, err = m.Replace(windows(0xb2, 0xb3))
	require.NoError(t, err)

	for _, s := range old {
		select {
		case <-s.Done():
		default:
			t.Fatalf("session %v still running after Replace", s.Target())
		}
	}
	for _, st := range oldSubs {
		assert.True(t, st.Released())
	}
	assert.Len(t, m.Bindings(), 2)
	assert.False(t, f.egl.sawOverlap())
}

func TestConcurrentReplaceNeverOverlaps(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := m.Replace(windows(0xc0, gles.NativeWindow(0xc1+g), 0xc0))
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()
	m.Close()

	assert.False(t, f.egl.sawOverlap())
	assert.Equal(t, 0, f.egl.Live("surface"))
}

func TestDuplicateTargetsShareSession(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	subs, err := m.Replace(windows(0xd1, 0xd1, 0xd2))
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, subs[0], subs[1])
	assert.NotEqual(t, subs[0], subs[2])
	assert.Len(t, m.Sessions(), 2)
}

func TestDisabled(t *testing.T) {
	f := newFixture()

	running := NewManager(imageConfig, f.platform, "com.example.camera")
	_, err := running.Replace(windows(0xe1))
	require.NoError(t, err)
	before := running.Sessions()

	// Configuration changes take effect at the next capture session.
	running.config = config.Static(config.Default())
	_, err = running.Replace(windows(0xe1))
	assert.Equal(t, ErrDisabled, err)
	assert.Empty(t, running.Sessions())
	<-before[0].Done()

	snap, _ := imageConfig.Read()
	snap.TargetApps = []string{"com.example.other"}
	m := NewManager(config.Static(snap), f.platform, "com.example.camera")
	_, err = m.Replace(windows(0xe2))
	assert.Equal(t, ErrDisabled, err)
}

func TestSetupFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.egl.failWindow = 0xf1
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	_, err := m.Replace(windows(0xf1, 0xf2))
	require.NoError(t, err)

	sessions := m.Sessions()
	require.Len(t, sessions, 2)
	assert.Error(t, sessions[0].Err())
	waitFrames(t, sessions[1], 3)

	select {
	case <-sessions[1].Done():
		t.Fatal("healthy session ended")
	default:
	}
}

func TestRenderPanicIsContained(t *testing.T) {
	f := newFixture()
	f.platform.GL = panicGL{f.gl}
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	_, err := m.Replace(windows(0x101))
	require.NoError(t, err)

	s := m.Sessions()[0]
	err = s.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver crashed")
	assert.Equal(t, 0, f.egl.Live("display"))
	assert.Equal(t, 0, f.gl.LivePrograms())
}

func TestTeardownOrder(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")

	_, err := m.Replace(windows(0x111))
	require.NoError(t, err)
	waitFrames(t, m.Sessions()[0], 1)
	m.Close()

	calls := f.rec.Calls()
	last := func(prefix string) int {
		idx := -1
		for i, c := range calls {
			if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
				idx = i
			}
		}
		return idx
	}
	program := last("glDeleteProgram")
	unbind := last("eglMakeCurrent none")
	terminate := last("eglTerminate")
	substitute := last("surfaceTexture.Release")
	assert.True(t, program >= 0 && program < unbind, "renderer before context")
	assert.True(t, unbind < terminate)
	assert.True(t, terminate < substitute, "context before binding")
}

// rawWriter hands out NV21 buffers.
type rawWriter struct {
	mu     sync.Mutex
	queued int
}

func (w *rawWriter) Dequeue() (*inject.Image, error) {
	return &inject.Image{Format: inject.NV21, Width: 4, Height: 4, Planes: [][]byte{make([]byte, 24)}}, nil
}

func (w *rawWriter) Queue(img *inject.Image) error {
	w.mu.Lock()
	w.queued++
	w.mu.Unlock()
	return nil
}

func (w *rawWriter) Discard(img *inject.Image) {}

func TestRawTargetSkipsGraphics(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")

	raw := &rawWriter{}
	subs, err := m.Replace([]Target{{Raw: raw}})
	require.NoError(t, err)
	require.Len(t, subs, 1)

	waitFrames(t, m.Sessions()[0], 2)
	m.Close()

	assert.Equal(t, 0, f.rec.Count("eglGetDisplay"))
	raw.mu.Lock()
	assert.True(t, raw.queued >= 2)
	raw.mu.Unlock()
}

func TestEmptyTargetRejected(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	_, err := m.Replace([]Target{{Window: 0x121}, {}})
	assert.Error(t, err)
	assert.Empty(t, m.Sessions())
}

func TestDrawUsesSurfaceSize(t *testing.T) {
	f := newFixture()
	f.egl.SetSize(320, 240)
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	_, err := m.Replace(windows(0xd1))
	require.NoError(t, err)
	waitFrames(t, m.Sessions()[0], 2)
	m.Close()

	assert.True(t, f.rec.Count("glViewport 0 0 320 240") >= 2)
}

func TestReplaceWithNoTargetsEndsPreviousSessions(t *testing.T) {
	f := newFixture()
	m := NewManager(imageConfig, f.platform, "com.example.camera")
	defer m.Close()

	_, err := m.Replace(windows(0xe1, 0xe2))
	require.NoError(t, err)
	prev := m.Sessions()
	require.Len(t, prev, 2)

	subs, err := m.Replace(nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.Empty(t, m.Sessions())
	assert.Empty(t, m.Bindings())
	for _, s := range prev {
		select {
		case <-s.Done():
		default:
			t.Errorf("session %v still running", s.Target())
		}
	}
	assert.Equal(t, 0, f.egl.Live("surface"))
}
