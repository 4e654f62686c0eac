package source

import (
	"context"
	"io"
	"sync"

	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
)

// Stream plays a live RTSP or RTMP stream. Connection and decode failures
// are logged and the last presented frame stays on screen; there is no
// reconnection.
type Stream struct {
	lifecycle
	feed surfaceFeed

	url  string
	deps Deps
}

func NewStream(url string, rotation int, deps Deps) *Stream {
	s := &Stream{url: url, deps: deps}
	s.lifecycle.init("stream", 0)
	s.feed.rotation = rotation
	return s
}

// Start creates the intermediate surface and connects in the background.
func (s *Stream) Start() error {
	return s.start(func() error { return s.feed.open(s.deps) }, s.run)
}

func (s *Stream) Latch() (render.Frame, error) {
	return s.feed.latch()
}

func (s *Stream) Release() {
	s.feed.release()
}

func (s *Stream) run(quit <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), media.ConnectTimeout)
	go func() {
		select {
		case <-quit:
			cancel()
		case <-ctx.Done():
		}
	}()
	d, err := s.deps.dial(ctx, s.url)
	cancel()
	if err != nil {
		log.Error("Stream %s: %v", s.url, err)
		return
	}

	// Closing the demuxer is what unblocks a pending read on stop.
	var closeOnce sync.Once
	closeDemuxer := func() { closeOnce.Do(func() { d.Close() }) }
	defer closeDemuxer()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-quit:
			closeDemuxer()
		case <-done:
		}
	}()

	streams, err := d.Streams()
	if err != nil {
		log.Error("Stream %s: reading stream info: %v", s.url, err)
		return
	}
	idx, codec, err := media.VideoTrack(streams)
	if err != nil {
		log.Error("Stream %s: %v", s.url, err)
		return
	}
	dec, err := s.deps.Decoders(codec, s.feed.window())
	if err != nil {
		log.Error("Stream %s: %v", s.url, err)
		return
	}
	defer dec.Close()

	s.running()
	first, synced := true, false
	for {
		select {
		case <-quit:
			return
		default:
		}

		pkt, err := d.ReadPacket()
		if err != nil {
			select {
			case <-quit:
			default:
				if err == io.EOF {
					log.Warn("Stream %s ended, holding last frame", s.url)
				} else {
					log.Error("Stream %s: %v, holding last frame", s.url, err)
				}
			}
			return
		}
		if int(pkt.Idx) != idx {
			continue
		}
		if !synced {
			if !media.IsKeyFrame(pkt) {
				continue
			}
			synced = true
		}

		outs, err := dec.Decode(pkt)
		if err != nil {
			log.Warn("Stream %s: decode: %v", s.url, err)
		}
		for _, out := range outs {
			if present(dec, out) {
				if first {
					log.Info("Stream %s: first frame rendered", s.url)
					first = false
				}
				s.notify()
			}
		}
	}
}
