//////////////////////////////////////////////////////////////////////////////
//
// Graphics ports
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// Package gles declares the narrow slice of EGL and OpenGL ES 2.0 that the
// render pipeline depends on. The android build provides cgo bindings; tests
// use the recording fakes in package glestest.
//
// Every method on EGL and GL must be called from the goroutine (locked to its
// OS thread) that owns the current context.
package gles

// NativeWindow is an opaque handle to a platform surface that frames can be
// presented on or produced into (an ANativeWindow* on Android).
type NativeWindow uintptr

// EGL object handles.
type (
	Display uintptr
	Config  uintptr
	Context uintptr
	Surface uintptr
)

const (
	NoDisplay Display = 0
	NoContext Context = 0
	NoSurface Surface = 0
)

// GL object handles.
type (
	Enum    uint32
	Shader  uint32
	Program uint32
	Texture uint32
	Buffer  uint32
	Attrib  int32
	Uniform int32
)

type EGL interface {
	GetDisplay() (Display, error)
	Initialize(d Display) (major, minor int, err error)
	ChooseConfig(d Display, attribs []int32) (Config, error)
	CreateContext(d Display, c Config, attribs []int32) (Context, error)
	CreateWindowSurface(d Display, c Config, win NativeWindow) (Surface, error)
	MakeCurrent(d Display, s Surface, ctx Context) error
	SwapBuffers(d Display, s Surface) error
	QuerySurfaceSize(d Display, s Surface) (width, height int, err error)
	DestroySurface(d Display, s Surface) error
	DestroyContext(d Display, ctx Context) error
	ReleaseThread() error
	Terminate(d Display) error
}

type GL interface {
	CreateShader(ty Enum) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)
	GetAttribLocation(p Program, name string) Attrib
	GetUniformLocation(p Program, name string) Uniform

	CreateTexture() Texture
	DeleteTexture(t Texture)
	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	TexParameteri(target, pname Enum, param int)
	TexImage2D(target Enum, level, width, height int, format, ty Enum, pixels []byte)

	CreateBuffer() Buffer
	DeleteBuffer(b Buffer)
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []float32, usage Enum)

	VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int)
	EnableVertexAttribArray(a Attrib)
	DisableVertexAttribArray(a Attrib)
	UniformMatrix4fv(u Uniform, m []float32)
	Uniform1i(u Uniform, v int)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)
	DrawArrays(mode Enum, first, count int)
	GetError() Enum
}

// SurfaceTexture is an intermediate GPU-backed surface. A decoder renders
// into Window(); the render thread latches the newest image into the
// external texture the SurfaceTexture was created over.
type SurfaceTexture interface {
	// Window returns the producer side handed to decoders.
	Window() NativeWindow

	// UpdateTexImage latches the most recent producer image into the texture.
	UpdateTexImage() error

	// TransformMatrix returns the column-major texture-coordinate transform
	// (crop and flip) for the latched image.
	TransformMatrix() [16]float32

	Release()
}

// SurfaceTextureFactory creates a SurfaceTexture over an external texture.
// Creating one needs a managed-runtime object on Android, so the host
// supplies it.
type SurfaceTextureFactory func(tex Texture) (SurfaceTexture, error)
