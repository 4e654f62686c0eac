package source

import (
	"bytes"
	"io"
	"io/ioutil"
	"sync"
	"time"

	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/pkg/errors"
)

// StopTimeout bounds how long Stop waits for the decode loop before closing
// the decoder under it.
const StopTimeout = time.Second

// FileVideo plays a local video file in an endless loop, paced to the
// file's presentation timestamps.
type FileVideo struct {
	lifecycle
	feed surfaceFeed

	locator string
	deps    Deps

	loops int32 // completed loops, for logging

	decMu sync.Mutex
	dec   media.Decoder
}

func NewFileVideo(locator string, rotation int, deps Deps) *FileVideo {
	v := &FileVideo{locator: locator, deps: deps}
	v.lifecycle.init("file-video", StopTimeout)
	v.lifecycle.unblock = v.closeDecoder
	v.feed.rotation = rotation
	return v
}

// Start creates the intermediate surface; demuxing and decoding happen on a
// worker.
func (v *FileVideo) Start() error {
	return v.start(func() error { return v.feed.open(v.deps) }, v.run)
}

func (v *FileVideo) Latch() (render.Frame, error) {
	return v.feed.latch()
}

func (v *FileVideo) Release() {
	v.feed.release()
}

func (v *FileVideo) setDecoder(dec media.Decoder) {
	v.decMu.Lock()
	v.dec = dec
	v.decMu.Unlock()
}

// closeDecoder closes the current decoder once; a decode loop blocked in it
// then fails out.
func (v *FileVideo) closeDecoder() {
	v.decMu.Lock()
	dec := v.dec
	v.dec = nil
	v.decMu.Unlock()
	if dec != nil {
		if err := dec.Close(); err != nil {
			log.Warn("Video %s: closing decoder: %v", v.locator, err)
		}
	}
}

func (v *FileVideo) open() (media.Demuxer, error) {
	rc, err := v.deps.opener().Open(v.locator)
	if err != nil {
		return nil, err
	}
	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		// Containers need random access; buffer non-seekable resources.
		data, err := ioutil.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(err, "reading media")
		}
		rs = bytes.NewReader(data)
	}
	d, err := v.deps.demux(rs)
	if err != nil {
		if c, ok := rs.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return d, nil
}

func (v *FileVideo) run(quit <-chan struct{}) {
	d, err := v.open()
	if err != nil {
		log.Error("Video %s: %v", v.locator, err)
		return
	}
	defer d.Close()

	seeker, ok := d.(media.Seeker)
	if !ok {
		log.Error("Video %s: container cannot seek, looping impossible", v.locator)
		return
	}
	streams, err := d.Streams()
	if err != nil {
		log.Error("Video %s: %v", v.locator, err)
		return
	}
	idx, codec, err := media.VideoTrack(streams)
	if err != nil {
		log.Error("Video %s: %v", v.locator, err)
		return
	}
	dec, err := v.deps.Decoders(codec, v.feed.window())
	if err != nil {
		log.Error("Video %s: %v", v.locator, err)
		return
	}
	v.setDecoder(dec)
	defer v.closeDecoder()

	v.running()

	// Wall clock time of PTS zero for the current loop.
	start := time.Now()
	rewind := func() bool {
		if err := seeker.SeekToTime(0); err != nil {
			log.Error("Video %s: rewinding: %v", v.locator, err)
			return false
		}
		if err := dec.Flush(); err != nil {
			log.Warn("Video %s: flushing decoder: %v", v.locator, err)
		}
		v.loops++
		log.Debug("Video %s: loop %d", v.locator, v.loops)
		start = time.Now()
		return true
	}

	for {
		select {
		case <-quit:
			return
		default:
		}

		pkt, err := d.ReadPacket()
		if err == io.EOF {
			if !rewind() {
				return
			}
			continue
		} else if err != nil {
			log.Error("Video %s: reading packet: %v", v.locator, err)
			return
		}
		if int(pkt.Idx) != idx {
			continue
		}

		outs, err := dec.Decode(pkt)
		if errors.Cause(err) == media.ErrClosed {
			return
		} else if err != nil {
			log.Warn("Video %s: decode: %v", v.locator, err)
		}
		for i, out := range outs {
			if out.EndOfStream {
				dec.Release(out, false)
				for _, rest := range outs[i+1:] {
					dec.Release(rest, false)
				}
				if !rewind() {
					return
				}
				break
			}

			// Hold the buffer until its presentation time.
			if !sleep(quit, out.PTS-time.Since(start)) {
				for _, rest := range outs[i:] {
					dec.Release(rest, false)
				}
				return
			}
			if present(dec, out) {
				v.notify()
			}
		}
	}
}
