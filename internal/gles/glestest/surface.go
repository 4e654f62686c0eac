package glestest

import (
	"sync"

	"github.com/lanikai/virtucam/internal/gles"
)

// SurfaceTexture is a fake gles.SurfaceTexture.
type SurfaceTexture struct {
	rec *Recorder

	Texture gles.Texture
	Matrix  [16]float32

	mu       sync.Mutex
	updates  int
	released bool
}

// Updates returns the number of UpdateTexImage calls.
func (st *SurfaceTexture) Updates() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.updates
}

func (st *SurfaceTexture) Released() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.released
}

func (st *SurfaceTexture) Window() gles.NativeWindow {
	return gles.NativeWindow(0x5000 + uintptr(st.Texture))
}

func (st *SurfaceTexture) UpdateTexImage() error {
	st.mu.Lock()
	st.updates++
	st.mu.Unlock()
	st.rec.record("updateTexImage")
	return nil
}

func (st *SurfaceTexture) TransformMatrix() [16]float32 {
	return st.Matrix
}

func (st *SurfaceTexture) Release() {
	st.mu.Lock()
	st.released = true
	st.mu.Unlock()
	st.rec.record("surfaceTexture.Release")
}

// SurfaceTextures hands out fake SurfaceTextures and remembers them.
type SurfaceTextures struct {
	rec *Recorder

	// Matrix is copied into each SurfaceTexture created.
	Matrix [16]float32

	mu      sync.Mutex
	created []*SurfaceTexture
}

func NewSurfaceTextures(rec *Recorder) *SurfaceTextures {
	if rec == nil {
		rec = new(Recorder)
	}
	return &SurfaceTextures{rec: rec, Matrix: Identity()}
}

// Factory is a gles.SurfaceTextureFactory.
func (f *SurfaceTextures) Factory(tex gles.Texture) (gles.SurfaceTexture, error) {
	st := &SurfaceTexture{rec: f.rec, Texture: tex, Matrix: f.Matrix}
	f.mu.Lock()
	f.created = append(f.created, st)
	f.mu.Unlock()
	f.rec.record("surfaceTexture.New %d", tex)
	return st, nil
}

// Created returns the SurfaceTextures created so far.
func (f *SurfaceTextures) Created() []*SurfaceTexture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*SurfaceTexture(nil), f.created...)
}

func Identity() [16]float32 {
	return [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}
