package gles

// EGL attributes and values.
const (
	EGL_NONE                   = 0x3038
	EGL_RED_SIZE               = 0x3024
	EGL_GREEN_SIZE             = 0x3023
	EGL_BLUE_SIZE              = 0x3022
	EGL_ALPHA_SIZE             = 0x3021
	EGL_RENDERABLE_TYPE        = 0x3040
	EGL_OPENGL_ES2_BIT         = 0x0004
	EGL_CONTEXT_CLIENT_VERSION = 0x3098

	// Required for surfaces fed to, or fed by, hardware codecs.
	EGL_RECORDABLE_ANDROID = 0x3142
)

// OpenGL ES 2.0 enums.
const (
	VERTEX_SHADER   Enum = 0x8B31
	FRAGMENT_SHADER Enum = 0x8B30
	COMPILE_STATUS  Enum = 0x8B81
	LINK_STATUS     Enum = 0x8B82

	TEXTURE_2D           Enum = 0x0DE1
	TEXTURE_EXTERNAL_OES Enum = 0x8D65
	TEXTURE0             Enum = 0x84C0
	TEXTURE_MIN_FILTER   Enum = 0x2801
	TEXTURE_MAG_FILTER   Enum = 0x2800
	TEXTURE_WRAP_S       Enum = 0x2802
	TEXTURE_WRAP_T       Enum = 0x2803
	LINEAR                    = 0x2601
	CLAMP_TO_EDGE             = 0x812F

	RGBA          Enum = 0x1908
	UNSIGNED_BYTE Enum = 0x1401
	FLOAT         Enum = 0x1406

	ARRAY_BUFFER Enum = 0x8892
	STATIC_DRAW  Enum = 0x88E4

	COLOR_BUFFER_BIT Enum = 0x00004000
	TRIANGLE_STRIP   Enum = 0x0005

	NO_ERROR Enum = 0
)
