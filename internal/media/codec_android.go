//go:build android

//////////////////////////////////////////////////////////////////////////////
//
// AMediaCodec binding for Android
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

/*
#cgo LDFLAGS: -lmediandk
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>
#include <media/NdkMediaCodec.h>
#include <media/NdkMediaFormat.h>
#include <android/native_window.h>

static AMediaCodec *vc_codec_create(const char *mime, int w, int h,
		const void *csd0, size_t n0, const void *csd1, size_t n1, uintptr_t win) {
	AMediaCodec *codec = AMediaCodec_createDecoderByType(mime);
	if (codec == NULL) {
		return NULL;
	}
	AMediaFormat *f = AMediaFormat_new();
	AMediaFormat_setString(f, AMEDIAFORMAT_KEY_MIME, mime);
	AMediaFormat_setInt32(f, AMEDIAFORMAT_KEY_WIDTH, w);
	AMediaFormat_setInt32(f, AMEDIAFORMAT_KEY_HEIGHT, h);
	if (n0 > 0) {
		AMediaFormat_setBuffer(f, "csd-0", (void *)csd0, n0);
	}
	if (n1 > 0) {
		AMediaFormat_setBuffer(f, "csd-1", (void *)csd1, n1);
	}
	media_status_t st = AMediaCodec_configure(codec, f, (ANativeWindow *)win, NULL, 0);
	AMediaFormat_delete(f);
	if (st != AMEDIA_OK || AMediaCodec_start(codec) != AMEDIA_OK) {
		AMediaCodec_delete(codec);
		return NULL;
	}
	return codec;
}

// Returns 0 on success, 1 if no input buffer was free, negative on error.
static int vc_codec_queue(AMediaCodec *codec, const void *data, size_t n,
		int64_t ptsUs, uint32_t flags, int64_t timeoutUs) {
	ssize_t idx = AMediaCodec_dequeueInputBuffer(codec, timeoutUs);
	if (idx == AMEDIACODEC_INFO_TRY_AGAIN_LATER) {
		return 1;
	}
	if (idx < 0) {
		return -1;
	}
	size_t cap = 0;
	uint8_t *buf = AMediaCodec_getInputBuffer(codec, idx, &cap);
	if (buf == NULL) {
		return -2;
	}
	if (n > cap) {
		n = cap;
	}
	memcpy(buf, data, n);
	return AMediaCodec_queueInputBuffer(codec, idx, 0, n, ptsUs, flags) == AMEDIA_OK ? 0 : -3;
}

// Returns the output index, or -1 when nothing is ready.
static ssize_t vc_codec_dequeue(AMediaCodec *codec, int64_t timeoutUs,
		int64_t *ptsUs, int32_t *size, uint32_t *flags) {
	AMediaCodecBufferInfo info;
	for (;;) {
		ssize_t idx = AMediaCodec_dequeueOutputBuffer(codec, &info, timeoutUs);
		if (idx == AMEDIACODEC_INFO_OUTPUT_FORMAT_CHANGED ||
		    idx == AMEDIACODEC_INFO_OUTPUT_BUFFERS_CHANGED) {
			continue;
		}
		if (idx < 0) {
			return -1;
		}
		*ptsUs = info.presentationTimeUs;
		*size = info.size;
		*flags = info.flags;
		return idx;
	}
}
*/
import "C"

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/nareix/joy4/av"
	errors "golang.org/x/xerrors"
)

const (
	inputTimeout = 10 * time.Millisecond
	inputRetries = 50
)

// mediaCodec may be closed from another goroutine while a decode is in
// progress; closing makes the pending call give up at its next retry.
type mediaCodec struct {
	closing int32 // atomic

	mu    sync.Mutex
	codec *C.AMediaCodec
}

// NewMediaCodec creates a hardware decoder through the NDK. It is a
// DecoderFactory.
func NewMediaCodec(codec av.VideoCodecData, surface gles.NativeWindow) (Decoder, error) {
	cfg, err := ConfigFor(codec)
	if err != nil {
		return nil, err
	}

	mime := C.CString(cfg.MIME)
	defer C.free(unsafe.Pointer(mime))

	csd0, csd1 := C.CBytes(cfg.CSD[0]), C.CBytes(cfg.CSD[1])
	defer C.free(csd0)
	defer C.free(csd1)

	c := C.vc_codec_create(mime, C.int(cfg.Width), C.int(cfg.Height),
		csd0, C.size_t(len(cfg.CSD[0])),
		csd1, C.size_t(len(cfg.CSD[1])),
		C.uintptr_t(surface))
	if c == nil {
		return nil, errors.Errorf("no %s decoder for %dx%d", cfg.MIME, cfg.Width, cfg.Height)
	}
	log.Info("Created %s decoder %dx%d on surface %#x", cfg.MIME, cfg.Width, cfg.Height, uintptr(surface))
	return &mediaCodec{codec: c}, nil
}

func (m *mediaCodec) queue(data []byte, pts time.Duration) ([]Output, error) {
	var ready []Output
	var p unsafe.Pointer
	if len(data) > 0 {
		p = C.CBytes(data)
		defer C.free(p)
	}
	for i := 0; i < inputRetries; i++ {
		if atomic.LoadInt32(&m.closing) != 0 {
			return ready, ErrClosed
		}
		switch rc := C.vc_codec_queue(m.codec, p, C.size_t(len(data)),
			C.int64_t(pts/time.Microsecond), 0, C.int64_t(inputTimeout/time.Microsecond)); {
		case rc == 0:
			return append(ready, m.drain()...), nil
		case rc < 0:
			return ready, errors.Errorf("queueing input buffer: status %d", int(rc))
		}
		// No input buffer free; outputs may be holding the codec up.
		ready = append(ready, m.drain()...)
	}
	return ready, errors.New("decoder input stalled")
}

func (m *mediaCodec) drain() []Output {
	var out []Output
	for {
		var pts C.int64_t
		var size C.int32_t
		var flags C.uint32_t
		idx := C.vc_codec_dequeue(m.codec, 0, &pts, &size, &flags)
		if idx < 0 {
			return out
		}
		o := Output{
			Index:       int(idx),
			PTS:         time.Duration(pts) * time.Microsecond,
			Size:        int(size),
			EndOfStream: flags&C.AMEDIACODEC_BUFFER_FLAG_END_OF_STREAM != 0,
		}
		out = append(out, o)
		if o.EndOfStream {
			return out
		}
	}
}

func (m *mediaCodec) Decode(pkt av.Packet) ([]Output, error) {
	data, err := AnnexB(pkt.Data)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codec == nil {
		return nil, ErrClosed
	}
	return m.queue(data, pkt.Time+pkt.CompositionTime)
}

func (m *mediaCodec) Release(out Output, render bool) error {
	if out.Index < 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codec == nil {
		return ErrClosed
	}
	if st := C.AMediaCodec_releaseOutputBuffer(m.codec, C.size_t(out.Index), C.bool(render)); st != C.AMEDIA_OK {
		return errors.Errorf("releasing output %d: status %d", out.Index, int(st))
	}
	return nil
}

func (m *mediaCodec) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codec == nil {
		return ErrClosed
	}
	if st := C.AMediaCodec_flush(m.codec); st != C.AMEDIA_OK {
		return errors.Errorf("flushing decoder: status %d", int(st))
	}
	return nil
}

func (m *mediaCodec) Close() error {
	atomic.StoreInt32(&m.closing, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codec == nil {
		return nil
	}
	C.AMediaCodec_stop(m.codec)
	C.AMediaCodec_delete(m.codec)
	m.codec = nil
	return nil
}
