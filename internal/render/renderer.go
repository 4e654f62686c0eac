//////////////////////////////////////////////////////////////////////////////
//
// TextureRenderer draws one textured quad per frame
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package render

import (
	"math"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/pkg/errors"
)

// SamplerKind selects the texture target, and with it the fragment shader.
type SamplerKind int

const (
	// External textures are fed by a decoder through a SurfaceTexture.
	External SamplerKind = iota

	// Planar2D textures receive a one-shot pixel upload.
	Planar2D
)

func (k SamplerKind) String() string {
	switch k {
	case External:
		return "External"
	case Planar2D:
		return "Planar2D"
	default:
		return "SamplerKind(?)"
	}
}

// Target returns the GL texture target for this sampler kind.
func (k SamplerKind) Target() gles.Enum {
	if k == External {
		return gles.TEXTURE_EXTERNAL_OES
	}
	return gles.TEXTURE_2D
}

const vertexShader = `
uniform mat4 uMVPMatrix;
uniform mat4 uSTMatrix;
attribute vec4 aPosition;
attribute vec4 aTextureCoord;
varying vec2 vTextureCoord;
void main() {
    gl_Position = uMVPMatrix * aPosition;
    vTextureCoord = (uSTMatrix * aTextureCoord).xy;
}
`

const externalFragmentShader = `
#extension GL_OES_EGL_image_external : require
precision mediump float;
varying vec2 vTextureCoord;
uniform samplerExternalOES sTexture;
void main() {
    gl_FragColor = texture2D(sTexture, vTextureCoord);
}
`

const planarFragmentShader = `
precision mediump float;
varying vec2 vTextureCoord;
uniform sampler2D sTexture;
void main() {
    gl_FragColor = texture2D(sTexture, vTextureCoord);
}
`

// Interleaved (x, y, s, t) for a full-viewport triangle strip.
var quad = []float32{
	-1, -1, 0, 0, // bottom left
	1, -1, 1, 0, // bottom right
	-1, 1, 0, 1, // top left
	1, 1, 1, 1, // top right
}

const (
	quadVertices = 4
	quadStride   = 4 * 4
	texOffset    = 2 * 4
)

// TextureRenderer composites a single texture onto the current surface. All
// methods must be called on the thread that owns the current context.
// Presentation is left to the caller.
type TextureRenderer struct {
	gl gles.GL

	kind    SamplerKind
	program gles.Program
	texture gles.Texture
	vbo     gles.Buffer

	aPosition     gles.Attrib
	aTextureCoord gles.Attrib
	uMVPMatrix    gles.Uniform
	uSTMatrix     gles.Uniform
	sTexture      gles.Uniform

	// Destination size; zero keeps the context's default viewport.
	width, height int
}

func NewTextureRenderer(gl gles.GL) *TextureRenderer {
	return &TextureRenderer{gl: gl}
}

// Init compiles the program for kind and allocates the texture it samples.
func (r *TextureRenderer) Init(kind SamplerKind) error {
	if r.program != 0 {
		return errors.New("renderer already initialized")
	}

	fragment := planarFragmentShader
	if kind == External {
		fragment = externalFragmentShader
	}

	program, err := r.createProgram(vertexShader, fragment)
	if err != nil {
		return err
	}
	r.kind = kind
	r.program = program

	r.aPosition = r.gl.GetAttribLocation(program, "aPosition")
	r.aTextureCoord = r.gl.GetAttribLocation(program, "aTextureCoord")
	r.uMVPMatrix = r.gl.GetUniformLocation(program, "uMVPMatrix")
	r.uSTMatrix = r.gl.GetUniformLocation(program, "uSTMatrix")
	r.sTexture = r.gl.GetUniformLocation(program, "sTexture")
	if r.aPosition < 0 || r.aTextureCoord < 0 {
		r.Release()
		return errors.New("vertex attributes missing from linked program")
	}

	target := kind.Target()
	r.texture = r.gl.CreateTexture()
	r.gl.BindTexture(target, r.texture)
	r.gl.TexParameteri(target, gles.TEXTURE_MIN_FILTER, gles.LINEAR)
	r.gl.TexParameteri(target, gles.TEXTURE_MAG_FILTER, gles.LINEAR)
	r.gl.TexParameteri(target, gles.TEXTURE_WRAP_S, gles.CLAMP_TO_EDGE)
	r.gl.TexParameteri(target, gles.TEXTURE_WRAP_T, gles.CLAMP_TO_EDGE)
	r.gl.BindTexture(target, 0)

	r.vbo = r.gl.CreateBuffer()
	r.gl.BindBuffer(gles.ARRAY_BUFFER, r.vbo)
	r.gl.BufferData(gles.ARRAY_BUFFER, quad, gles.STATIC_DRAW)
	r.gl.BindBuffer(gles.ARRAY_BUFFER, 0)

	if e := r.gl.GetError(); e != gles.NO_ERROR {
		r.Release()
		return errors.Errorf("GL error %#x during renderer init", uint32(e))
	}

	log.Debug("Renderer ready: %v sampler, texture %d", kind, r.texture)
	return nil
}

// Kind returns the sampler kind chosen at Init.
func (r *TextureRenderer) Kind() SamplerKind {
	return r.kind
}

// Texture returns the texture sampled by the program.
func (r *TextureRenderer) Texture() gles.Texture {
	return r.texture
}

// SetViewport sets the destination size used by subsequent draws.
func (r *TextureRenderer) SetViewport(width, height int) {
	r.width, r.height = width, height
}

// Draw clears the surface and draws the texture as a full-viewport quad.
// transform is applied to the texture coordinates as supplied; rotation is
// rebuilt from scratch on every call.
func (r *TextureRenderer) Draw(transform [16]float32, rotationDegrees int) {
	if r.program == 0 {
		return
	}
	target := r.kind.Target()
	mvp := rotation(rotationDegrees)

	if r.width > 0 && r.height > 0 {
		r.gl.Viewport(0, 0, r.width, r.height)
	}
	r.gl.ClearColor(0, 0, 0, 1)
	r.gl.Clear(gles.COLOR_BUFFER_BIT)

	r.gl.UseProgram(r.program)
	r.gl.ActiveTexture(gles.TEXTURE0)
	r.gl.BindTexture(target, r.texture)
	r.gl.Uniform1i(r.sTexture, 0)

	r.gl.BindBuffer(gles.ARRAY_BUFFER, r.vbo)
	r.gl.VertexAttribPointer(r.aPosition, 2, gles.FLOAT, false, quadStride, 0)
	r.gl.EnableVertexAttribArray(r.aPosition)
	r.gl.VertexAttribPointer(r.aTextureCoord, 2, gles.FLOAT, false, quadStride, texOffset)
	r.gl.EnableVertexAttribArray(r.aTextureCoord)

	r.gl.UniformMatrix4fv(r.uSTMatrix, transform[:])
	r.gl.UniformMatrix4fv(r.uMVPMatrix, mvp[:])

	r.gl.DrawArrays(gles.TRIANGLE_STRIP, 0, quadVertices)

	r.gl.DisableVertexAttribArray(r.aPosition)
	r.gl.DisableVertexAttribArray(r.aTextureCoord)
	r.gl.BindBuffer(gles.ARRAY_BUFFER, 0)
	r.gl.BindTexture(target, 0)
	r.gl.UseProgram(0)
}

// Upload replaces the contents of a Planar2D texture with RGBA pixels.
func (r *TextureRenderer) Upload(width, height int, rgba []byte) error {
	if r.kind != Planar2D || r.texture == 0 {
		return errors.Errorf("cannot upload pixels to a %v texture", r.kind)
	}
	if len(rgba) < width*height*4 {
		return errors.Errorf("short pixel buffer: %d bytes for %dx%d", len(rgba), width, height)
	}
	r.gl.BindTexture(gles.TEXTURE_2D, r.texture)
	r.gl.TexImage2D(gles.TEXTURE_2D, 0, width, height, gles.RGBA, gles.UNSIGNED_BYTE, rgba)
	r.gl.BindTexture(gles.TEXTURE_2D, 0)
	return nil
}

// Release deletes the program, texture and vertex buffer.
func (r *TextureRenderer) Release() {
	if r.program != 0 {
		r.gl.DeleteProgram(r.program)
		r.program = 0
	}
	if r.texture != 0 {
		r.gl.DeleteTexture(r.texture)
		r.texture = 0
	}
	if r.vbo != 0 {
		r.gl.DeleteBuffer(r.vbo)
		r.vbo = 0
	}
}

func (r *TextureRenderer) loadShader(ty gles.Enum, source string) (gles.Shader, error) {
	shader := r.gl.CreateShader(ty)
	if shader == 0 {
		return 0, errors.Errorf("glCreateShader(%#x) failed", uint32(ty))
	}
	r.gl.ShaderSource(shader, source)
	r.gl.CompileShader(shader)
	if r.gl.GetShaderi(shader, gles.COMPILE_STATUS) == 0 {
		msg := r.gl.GetShaderInfoLog(shader)
		r.gl.DeleteShader(shader)
		return 0, errors.Errorf("could not compile shader %#x: %s", uint32(ty), msg)
	}
	return shader, nil
}

func (r *TextureRenderer) createProgram(vertexSource, fragmentSource string) (gles.Program, error) {
	vs, err := r.loadShader(gles.VERTEX_SHADER, vertexSource)
	if err != nil {
		return 0, err
	}
	defer r.gl.DeleteShader(vs)

	fs, err := r.loadShader(gles.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return 0, err
	}
	defer r.gl.DeleteShader(fs)

	program := r.gl.CreateProgram()
	if program == 0 {
		return 0, errors.New("glCreateProgram failed")
	}
	r.gl.AttachShader(program, vs)
	r.gl.AttachShader(program, fs)
	r.gl.LinkProgram(program)
	if r.gl.GetProgrami(program, gles.LINK_STATUS) == 0 {
		msg := r.gl.GetProgramInfoLog(program)
		r.gl.DeleteProgram(program)
		return 0, errors.Errorf("could not link program: %s", msg)
	}
	return program, nil
}

// rotation returns a column-major rotation about the z axis. Quarter turns
// are exact.
func rotation(degrees int) [16]float32 {
	m := Identity
	if degrees%360 == 0 {
		return m
	}

	var s, c float32
	switch ((degrees % 360) + 360) % 360 {
	case 90:
		s, c = 1, 0
	case 180:
		s, c = 0, -1
	case 270:
		s, c = -1, 0
	default:
		sin, cos := math.Sincos(float64(degrees) * math.Pi / 180)
		s, c = float32(sin), float32(cos)
	}
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}
