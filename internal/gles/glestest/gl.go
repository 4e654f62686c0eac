package glestest

import (
	"strings"
	"sync"

	"github.com/lanikai/virtucam/internal/gles"
)

// GL is a fake gles.GL. Shaders compile and programs link unless
// FailCompile or FailLink is set.
type GL struct {
	*Recorder

	FailCompile bool
	FailLink    bool

	mu       sync.Mutex
	next     uint32
	textures map[gles.Texture]gles.Enum // texture -> target it was bound to
	programs map[gles.Program]bool
	uniforms map[gles.Uniform][]float32
	names    map[gles.Uniform]string
	uploads  []Upload
}

// Upload records one TexImage2D call.
type Upload struct {
	Target        gles.Enum
	Texture       gles.Texture
	Width, Height int
	Pixels        int
}

func NewGL(rec *Recorder) *GL {
	if rec == nil {
		rec = new(Recorder)
	}
	return &GL{
		Recorder: rec,
		textures: map[gles.Texture]gles.Enum{},
		programs: map[gles.Program]bool{},
		uniforms: map[gles.Uniform][]float32{},
		names:    map[gles.Uniform]string{},
	}
}

func (g *GL) id() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.next
}

// LiveTextures returns the number of textures created and not yet deleted.
func (g *GL) LiveTextures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.textures)
}

// LivePrograms returns the number of programs created and not yet deleted.
func (g *GL) LivePrograms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.programs)
}

// TextureTarget reports the target a texture was last bound to.
func (g *GL) TextureTarget(t gles.Texture) gles.Enum {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.textures[t]
}

// UniformByName returns the last matrix set on the named uniform.
func (g *GL) UniformByName(name string) []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	for u, n := range g.names {
		if n == name {
			return append([]float32(nil), g.uniforms[u]...)
		}
	}
	return nil
}

// Uploads returns the TexImage2D calls made so far.
func (g *GL) Uploads() []Upload {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Upload(nil), g.uploads...)
}

func (g *GL) CreateShader(ty gles.Enum) gles.Shader {
	g.record("glCreateShader %#x", uint32(ty))
	return gles.Shader(g.id())
}

func (g *GL) ShaderSource(s gles.Shader, src string) {
	g.record("glShaderSource %d %q", s, firstLine(src))
}

func (g *GL) CompileShader(s gles.Shader) { g.record("glCompileShader %d", s) }

func (g *GL) GetShaderi(s gles.Shader, pname gles.Enum) int {
	if pname == gles.COMPILE_STATUS && g.FailCompile {
		return 0
	}
	return 1
}

func (g *GL) GetShaderInfoLog(s gles.Shader) string { return "fake compile error" }

func (g *GL) DeleteShader(s gles.Shader) { g.record("glDeleteShader %d", s) }

func (g *GL) CreateProgram() gles.Program {
	p := gles.Program(g.id())
	g.mu.Lock()
	g.programs[p] = true
	g.mu.Unlock()
	g.record("glCreateProgram")
	return p
}

func (g *GL) AttachShader(p gles.Program, s gles.Shader) { g.record("glAttachShader %d %d", p, s) }

func (g *GL) LinkProgram(p gles.Program) { g.record("glLinkProgram %d", p) }

func (g *GL) GetProgrami(p gles.Program, pname gles.Enum) int {
	if pname == gles.LINK_STATUS && g.FailLink {
		return 0
	}
	return 1
}

func (g *GL) GetProgramInfoLog(p gles.Program) string { return "fake link error" }

func (g *GL) UseProgram(p gles.Program) { g.record("glUseProgram %d", p) }

func (g *GL) DeleteProgram(p gles.Program) {
	g.mu.Lock()
	delete(g.programs, p)
	g.mu.Unlock()
	g.record("glDeleteProgram %d", p)
}

func (g *GL) GetAttribLocation(p gles.Program, name string) gles.Attrib {
	return gles.Attrib(g.id())
}

func (g *GL) GetUniformLocation(p gles.Program, name string) gles.Uniform {
	u := gles.Uniform(g.id())
	g.mu.Lock()
	g.names[u] = name
	g.mu.Unlock()
	return u
}

func (g *GL) CreateTexture() gles.Texture {
	t := gles.Texture(g.id())
	g.mu.Lock()
	g.textures[t] = 0
	g.mu.Unlock()
	g.record("glGenTextures")
	return t
}

func (g *GL) DeleteTexture(t gles.Texture) {
	g.mu.Lock()
	delete(g.textures, t)
	g.mu.Unlock()
	g.record("glDeleteTextures %d", t)
}

func (g *GL) ActiveTexture(unit gles.Enum) { g.record("glActiveTexture %#x", uint32(unit)) }

func (g *GL) BindTexture(target gles.Enum, t gles.Texture) {
	g.mu.Lock()
	if _, ok := g.textures[t]; ok {
		g.textures[t] = target
	}
	g.mu.Unlock()
	g.record("glBindTexture %#x %d", uint32(target), t)
}

func (g *GL) TexParameteri(target, pname gles.Enum, param int) {
	g.record("glTexParameteri %#x %#x %#x", uint32(target), uint32(pname), param)
}

func (g *GL) TexImage2D(target gles.Enum, level, width, height int, format, ty gles.Enum, pixels []byte) {
	g.mu.Lock()
	var bound gles.Texture
	for t, tgt := range g.textures {
		if tgt == target {
			bound = t
		}
	}
	g.uploads = append(g.uploads, Upload{target, bound, width, height, len(pixels)})
	g.mu.Unlock()
	g.record("glTexImage2D %#x %dx%d", uint32(target), width, height)
}

func (g *GL) CreateBuffer() gles.Buffer {
	g.record("glGenBuffers")
	return gles.Buffer(g.id())
}

func (g *GL) DeleteBuffer(b gles.Buffer) { g.record("glDeleteBuffers %d", b) }

func (g *GL) BindBuffer(target gles.Enum, b gles.Buffer) {
	g.record("glBindBuffer %#x %d", uint32(target), b)
}

func (g *GL) BufferData(target gles.Enum, data []float32, usage gles.Enum) {
	g.record("glBufferData %d", len(data))
}

func (g *GL) VertexAttribPointer(a gles.Attrib, size int, ty gles.Enum, normalized bool, stride, offset int) {
	g.record("glVertexAttribPointer %d %d %d", a, size, offset)
}

func (g *GL) EnableVertexAttribArray(a gles.Attrib)  { g.record("glEnableVertexAttribArray %d", a) }
func (g *GL) DisableVertexAttribArray(a gles.Attrib) { g.record("glDisableVertexAttribArray %d", a) }

func (g *GL) UniformMatrix4fv(u gles.Uniform, m []float32) {
	g.mu.Lock()
	g.uniforms[u] = append([]float32(nil), m...)
	g.mu.Unlock()
	g.record("glUniformMatrix4fv %d", u)
}

func (g *GL) Uniform1i(u gles.Uniform, v int) { g.record("glUniform1i %d %d", u, v) }

func (g *GL) Viewport(x, y, width, height int) {
	g.record("glViewport %d %d %d %d", x, y, width, height)
}

func (g *GL) ClearColor(r, gr, b, a float32) { g.record("glClearColor") }

func (g *GL) Clear(mask gles.Enum) { g.record("glClear %#x", uint32(mask)) }

func (g *GL) DrawArrays(mode gles.Enum, first, count int) {
	g.record("glDrawArrays %#x %d %d", uint32(mode), first, count)
}

func (g *GL) GetError() gles.Enum { return gles.NO_ERROR }

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
