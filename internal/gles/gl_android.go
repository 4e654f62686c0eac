//go:build android

//////////////////////////////////////////////////////////////////////////////
//
// OpenGL ES 2.0 binding for Android
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package gles

/*
#cgo LDFLAGS: -lGLESv2
#include <stdint.h>
#include <stdlib.h>
#include <GLES2/gl2.h>
#include <GLES2/gl2ext.h>

static void vc_shader_source(GLuint s, const char *src) {
	glShaderSource(s, 1, &src, NULL);
}

static GLint vc_shader_iv(GLuint s, GLenum pname) {
	GLint v = 0;
	glGetShaderiv(s, pname, &v);
	return v;
}

static int vc_shader_info_log(GLuint s, char *buf, int n) {
	GLsizei len = 0;
	glGetShaderInfoLog(s, n, &len, buf);
	return len;
}

static GLint vc_program_iv(GLuint p, GLenum pname) {
	GLint v = 0;
	glGetProgramiv(p, pname, &v);
	return v;
}

static int vc_program_info_log(GLuint p, char *buf, int n) {
	GLsizei len = 0;
	glGetProgramInfoLog(p, n, &len, buf);
	return len;
}

static GLuint vc_gen_texture(void) {
	GLuint t = 0;
	glGenTextures(1, &t);
	return t;
}

static void vc_delete_texture(GLuint t) {
	glDeleteTextures(1, &t);
}

static GLuint vc_gen_buffer(void) {
	GLuint b = 0;
	glGenBuffers(1, &b);
	return b;
}

static void vc_delete_buffer(GLuint b) {
	glDeleteBuffers(1, &b);
}

static void vc_vertex_attrib_pointer(GLuint a, GLint size, GLenum ty, GLboolean norm, GLsizei stride, uintptr_t offset) {
	glVertexAttribPointer(a, size, ty, norm, stride, (const void *)offset);
}
*/
import "C"

import (
	"unsafe"
)

const infoLogSize = 1024

type glBinding struct{}

// NewGL returns the platform OpenGL ES 2.0 implementation.
func NewGL() GL {
	return glBinding{}
}

func (glBinding) CreateShader(ty Enum) Shader {
	return Shader(C.glCreateShader(C.GLenum(ty)))
}

func (glBinding) ShaderSource(s Shader, src string) {
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	C.vc_shader_source(C.GLuint(s), csrc)
}

func (glBinding) CompileShader(s Shader) {
	C.glCompileShader(C.GLuint(s))
}

func (glBinding) GetShaderi(s Shader, pname Enum) int {
	return int(C.vc_shader_iv(C.GLuint(s), C.GLenum(pname)))
}

func (glBinding) GetShaderInfoLog(s Shader) string {
	buf := make([]byte, infoLogSize)
	n := C.vc_shader_info_log(C.GLuint(s), (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	return string(buf[:int(n)])
}

func (glBinding) DeleteShader(s Shader) {
	C.glDeleteShader(C.GLuint(s))
}

func (glBinding) CreateProgram() Program {
	return Program(C.glCreateProgram())
}

func (glBinding) AttachShader(p Program, s Shader) {
	C.glAttachShader(C.GLuint(p), C.GLuint(s))
}

func (glBinding) LinkProgram(p Program) {
	C.glLinkProgram(C.GLuint(p))
}

func (glBinding) GetProgrami(p Program, pname Enum) int {
	return int(C.vc_program_iv(C.GLuint(p), C.GLenum(pname)))
}

func (glBinding) GetProgramInfoLog(p Program) string {
	buf := make([]byte, infoLogSize)
	n := C.vc_program_info_log(C.GLuint(p), (*C.char)(unsafe.Pointer(&buf[0])), C.int(len(buf)))
	return string(buf[:int(n)])
}

func (glBinding) UseProgram(p Program) {
	C.glUseProgram(C.GLuint(p))
}

func (glBinding) DeleteProgram(p Program) {
	C.glDeleteProgram(C.GLuint(p))
}

func (glBinding) GetAttribLocation(p Program, name string) Attrib {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return Attrib(C.glGetAttribLocation(C.GLuint(p), (*C.GLchar)(unsafe.Pointer(cname))))
}

func (glBinding) GetUniformLocation(p Program, name string) Uniform {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return Uniform(C.glGetUniformLocation(C.GLuint(p), (*C.GLchar)(unsafe.Pointer(cname))))
}

func (glBinding) CreateTexture() Texture {
	return Texture(C.vc_gen_texture())
}

func (glBinding) DeleteTexture(t Texture) {
	C.vc_delete_texture(C.GLuint(t))
}

func (glBinding) ActiveTexture(unit Enum) {
	C.glActiveTexture(C.GLenum(unit))
}

func (glBinding) BindTexture(target Enum, t Texture) {
	C.glBindTexture(C.GLenum(target), C.GLuint(t))
}

func (glBinding) TexParameteri(target, pname Enum, param int) {
	C.glTexParameteri(C.GLenum(target), C.GLenum(pname), C.GLint(param))
}

func (glBinding) TexImage2D(target Enum, level, width, height int, format, ty Enum, pixels []byte) {
	var p unsafe.Pointer
	if len(pixels) > 0 {
		p = unsafe.Pointer(&pixels[0])
	}
	C.glTexImage2D(C.GLenum(target), C.GLint(level), C.GLint(format), C.GLsizei(width), C.GLsizei(height), 0, C.GLenum(format), C.GLenum(ty), p)
}

func (glBinding) CreateBuffer() Buffer {
	return Buffer(C.vc_gen_buffer())
}

func (glBinding) DeleteBuffer(b Buffer) {
	C.vc_delete_buffer(C.GLuint(b))
}

func (glBinding) BindBuffer(target Enum, b Buffer) {
	C.glBindBuffer(C.GLenum(target), C.GLuint(b))
}

func (glBinding) BufferData(target Enum, data []float32, usage Enum) {
	if len(data) == 0 {
		return
	}
	C.glBufferData(C.GLenum(target), C.GLsizeiptr(len(data)*4), unsafe.Pointer(&data[0]), C.GLenum(usage))
}

func (glBinding) VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int) {
	var norm C.GLboolean
	if normalized {
		norm = 1
	}
	C.vc_vertex_attrib_pointer(C.GLuint(a), C.GLint(size), C.GLenum(ty), norm, C.GLsizei(stride), C.uintptr_t(offset))
}

func (glBinding) EnableVertexAttribArray(a Attrib) {
	C.glEnableVertexAttribArray(C.GLuint(a))
}

func (glBinding) DisableVertexAttribArray(a Attrib) {
	C.glDisableVertexAttribArray(C.GLuint(a))
}

func (glBinding) UniformMatrix4fv(u Uniform, m []float32) {
	C.glUniformMatrix4fv(C.GLint(u), C.GLsizei(len(m)/16), 0, (*C.GLfloat)(unsafe.Pointer(&m[0])))
}

func (glBinding) Uniform1i(u Uniform, v int) {
	C.glUniform1i(C.GLint(u), C.GLint(v))
}

func (glBinding) Viewport(x, y, width, height int) {
	C.glViewport(C.GLint(x), C.GLint(y), C.GLsizei(width), C.GLsizei(height))
}

func (glBinding) ClearColor(r, g, b, a float32) {
	C.glClearColor(C.GLfloat(r), C.GLfloat(g), C.GLfloat(b), C.GLfloat(a))
}

func (glBinding) Clear(mask Enum) {
	C.glClear(C.GLbitfield(mask))
}

func (glBinding) DrawArrays(mode Enum, first, count int) {
	C.glDrawArrays(C.GLenum(mode), C.GLint(first), C.GLsizei(count))
}

func (glBinding) GetError() Enum {
	return Enum(C.glGetError())
}
