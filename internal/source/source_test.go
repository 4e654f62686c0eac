package source

import (
	"context"
	"image/color"
	"io"
	"testing"
	"time"

	"github.com/lanikai/virtucam/internal/gles/glestest"
	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/lanikai/virtucam/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allSources() map[string]Source {
	ev := new(events)
	dec := &decoders{ev: ev}
	deps := testDeps(dec, glestest.NewSurfaceTextures(nil))
	deps.Dial = blockingDial
	return map[string]Source{
		"stream":     NewStream("rtsp://192.0.2.1/live", 90, deps),
		"file-video": NewFileVideo("/sdcard/clip.mp4", 90, deps),
		"image":      NewImage("/sdcard/pic.png", 90, deps),
		"raw-inject": NewRawInject("/sdcard/pic.png", &writer{}, deps),
	}
}

// finishes fails the test if f does not return within d.
func finishes(t *testing.T, d time.Duration, f func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		f()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not finish within %v", d)
	}
}

// frames waits for n frame-available signals, latching each.
func frames(t *testing.T, s Source, n int, within time.Duration) []render.Frame {
	t.Helper()
	var got []render.Frame
	deadline := time.After(within)
	for len(got) < n {
		select {
		case <-s.Available():
			f, err := s.Latch()
			require.NoError(t, err)
			got = append(got, f)
		case <-deadline:
			t.Fatalf("got %d of %d frames within %v", len(got), n, within)
		}
	}
	return got
}

func TestStopIsIdempotent(t *testing.T) {
	for name, s := range allSources() {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Idle, s.State())
			finishes(t, time.Second, func() {
				assert.NoError(t, s.Stop())
				assert.NoError(t, s.Stop())
			})
			assert.Equal(t, Stopped, s.State())
			assert.Equal(t, ErrStopped, s.Start())
			s.Release()
		})
	}
}

func TestStopBeforeRunning(t *testing.T) {
	ev := new(events)
	deps := testDeps(&decoders{ev: ev}, glestest.NewSurfaceTextures(nil))
	deps.Dial = blockingDial

	s := NewStream("rtsp://192.0.2.1/live", 90, deps)
	require.NoError(t, s.Start())
	assert.Equal(t, Starting, s.State())
	assert.Equal(t, ErrAlreadyStarted, s.Start())

	finishes(t, time.Second, func() {
		assert.NoError(t, s.Stop())
		assert.NoError(t, s.Stop())
	})
	assert.Equal(t, Stopped, s.State())
	s.Release()
}

func TestAvailableCoalesces(t *testing.T) {
	var l lifecycle
	l.init("test", 0)
	l.notify() // not running yet
	assert.Len(t, l.avail, 0)

	l.state = int32(Running)
	l.notify()
	l.notify()
	l.notify()
	assert.Len(t, l.avail, 1)
}

func TestFileVideoLoopsForever(t *testing.T) {
	const interval = 40 * time.Millisecond

	ev := new(events)
	dec := &decoders{ev: ev}
	sts := glestest.NewSurfaceTextures(nil)
	demuxer := newFakeDemuxer(ev, videoPackets(3, interval)...)

	deps := testDeps(dec, sts)
	deps.Demux = func(r io.ReadSeeker) (media.Demuxer, error) { return demuxer, nil }

	v := NewFileVideo("/sdcard/clip.mp4", 90, deps)
	require.NoError(t, v.Start())

	// Three loops' worth of frames.
	got := frames(t, v, 7, 2*time.Second)
	assert.Equal(t, 90, got[0].Rotation)
	assert.Equal(t, Running, v.State())
	assert.True(t, ev.count("seek") >= 2)
	assert.True(t, ev.count("flush") >= 2)

	// After each rewind the first frame renders within one frame interval.
	history := ev.all()
	for i, e := range history {
		if e.what != "seek" {
			continue
		}
		for _, next := range history[i+1:] {
			if next.what == "render" {
				assert.True(t, next.at.Sub(e.at) < interval, "frame %v after rewind", next.at.Sub(e.at))
				break
			}
		}
	}

	decoder := dec.last()
	require.NotNil(t, decoder)
	assert.Equal(t, sts.Created()[0].Window(), decoder.surface)

	finishes(t, 2*time.Second, func() { assert.NoError(t, v.Stop()) })
	assert.Equal(t, Stopped, v.State())
	assert.True(t, decoder.isClosed())
	assert.True(t, demuxer.isClosed())

	v.Release()
	assert.True(t, sts.Created()[0].Released())
}

func TestFileVideoLoopsOnDecoderEndOfStream(t *testing.T) {
	const interval = 20 * time.Millisecond

	ev := new(events)
	dec := &decoders{ev: ev, eosEvery: 3}
	sts := glestest.NewSurfaceTextures(nil)
	demuxer := newFakeDemuxer(ev, videoPackets(50, interval)...)

	deps := testDeps(dec, sts)
	deps.Demux = func(r io.ReadSeeker) (media.Demuxer, error) { return demuxer, nil }

	v := NewFileVideo("/sdcard/clip.mp4", 0, deps)
	require.NoError(t, v.Start())

	frames(t, v, 6, 2*time.Second)
	assert.Equal(t, Running, v.State())
	assert.True(t, ev.count("eos") >= 2)
	assert.True(t, ev.count("seek") >= 2)
	assert.True(t, ev.count("flush") >= 2)
	assert.Equal(t, 0, ev.count("eof"))

	// Every end-of-stream buffer is followed by a rewind before anything
	// else renders.
	history := ev.all()
	for i, e := range history {
		if e.what != "eos" {
			continue
		}
		for _, next := range history[i+1:] {
			if next.what == "render" {
				t.Errorf("rendered before rewinding at event %d", i)
			}
			if next.what == "seek" {
				break
			}
		}
	}

	finishes(t, 2*time.Second, func() { assert.NoError(t, v.Stop()) })
	assert.Equal(t, Stopped, v.State())
	assert.True(t, dec.last().isClosed())
	v.Release()
}

func TestFileVideoStopClosesHungDecoder(t *testing.T) {
	ev := new(events)
	dec := &decoders{ev: ev, hang: true}
	sts := glestest.NewSurfaceTextures(nil)
	deps := testDeps(dec, sts)
	deps.Demux = func(r io.ReadSeeker) (media.Demuxer, error) {
		return newFakeDemuxer(ev, videoPackets(3, 10*time.Millisecond)...), nil
	}

	v := NewFileVideo("/sdcard/clip.mp4", 0, deps)
	require.NoError(t, v.Start())

	deadline := time.Now().Add(time.Second)
	for ev.count("hang") == 0 {
		require.True(t, time.Now().Before(deadline), "decoder never entered")
		time.Sleep(5 * time.Millisecond)
	}

	begin := time.Now()
	finishes(t, 3*StopTimeout, func() { assert.NoError(t, v.Stop()) })
	assert.True(t, time.Since(begin) >= StopTimeout)
	assert.Equal(t, Stopped, v.State())
	assert.True(t, dec.last().isClosed())
	assert.Equal(t, 1, ev.count("decoder.Close"))

	// The worker has exited, so the decoder is done with the surface before
	// it is released.
	closed := ev.count("demuxer.Close")
	assert.Equal(t, 1, closed)
	v.Release()
	assert.True(t, sts.Created()[0].Released())
	assert.Equal(t, 0, ev.count("render"))
}

func TestFileVideoPacing(t *testing.T) {
	const interval = 50 * time.Millisecond

	ev := new(events)
	deps := testDeps(&decoders{ev: ev}, glestest.NewSurfaceTextures(nil))
	deps.Demux = func(r io.ReadSeeker) (media.Demuxer, error) {
		return newFakeDemuxer(ev, videoPackets(3, interval)...), nil
	}

	v := NewFileVideo("/sdcard/clip.mp4", 0, deps)
	begin := time.Now()
	require.NoError(t, v.Start())
	frames(t, v, 3, 2*time.Second)
	assert.True(t, time.Since(begin) >= 2*interval, "three frames in %v", time.Since(begin))
	require.NoError(t, v.Stop())
}

func TestFileVideoOpenFailureStalls(t *testing.T) {
	ev := new(events)
	deps := testDeps(&decoders{ev: ev}, glestest.NewSurfaceTextures(nil))
	deps.Opener = failingOpener

	v := NewFileVideo("/sdcard/missing.mp4", 0, deps)
	require.NoError(t, v.Start())
	select {
	case <-v.Available():
		t.Fatal("frame from a source that failed to open")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, Starting, v.State())
	finishes(t, time.Second, func() { assert.NoError(t, v.Stop()) })
}

func TestStreamHoldsLastFrameOnFailure(t *testing.T) {
	ev := new(events)
	dec := &decoders{ev: ev}
	sts := glestest.NewSurfaceTextures(nil)
	sts.Matrix[13] = 1
	demuxer := newFakeDemuxer(ev, videoPackets(2, 0)...)
	demuxer.failAt = 4

	deps := testDeps(dec, sts)
	deps.Dial = func(ctx context.Context, url string) (media.Demuxer, error) {
		assert.Equal(t, "rtsp://camera.local/live", url)
		return demuxer, nil
	}

	s := NewStream("rtsp://camera.local/live", 90, deps)
	require.NoError(t, s.Start())
	got := frames(t, s, 1, time.Second)
	assert.Equal(t, float32(1), got[0].Transform[13])

	// The read failure ends decoding but not the source.
	finishes(t, time.Second, func() {
		for !demuxer.isClosed() {
			time.Sleep(5 * time.Millisecond)
		}
	})
	assert.Equal(t, Running, s.State())
	f, err := s.Latch()
	require.NoError(t, err)
	assert.Equal(t, got[0], f)

	require.NoError(t, s.Stop())
	s.Release()
	assert.True(t, sts.Created()[0].Released())
}

func TestStreamStopUnblocksRead(t *testing.T) {
	ev := new(events)
	demuxer := newFakeDemuxer(ev)
	demuxer.block = true

	deps := testDeps(&decoders{ev: ev}, glestest.NewSurfaceTextures(nil))
	deps.Dial = func(ctx context.Context, url string) (media.Demuxer, error) { return demuxer, nil }

	s := NewStream("rtmp://10.0.0.2/app/key", 0, deps)
	require.NoError(t, s.Start())
	finishes(t, time.Second, func() {
		for s.State() != Running {
			time.Sleep(5 * time.Millisecond)
		}
	})
	finishes(t, time.Second, func() { assert.NoError(t, s.Stop()) })
	assert.True(t, demuxer.isClosed())
}

func TestImageUploadsOnceAndBeats(t *testing.T) {
	var uploads int
	var width, height, length int
	deps := Deps{
		Opener: bytesOpener(pngBytes(6, 4, color.White)),
		Upload: func(w, h int, rgba []byte) error {
			uploads++
			width, height, length = w, h, len(rgba)
			return nil
		},
	}

	img := NewImage("/sdcard/pic.png", 90, deps)
	require.NoError(t, img.Start())
	assert.Equal(t, Running, img.State())
	assert.Equal(t, 1, uploads)
	assert.Equal(t, []int{6, 4, 96}, []int{width, height, length})

	got := frames(t, img, 3, time.Second)
	assert.Equal(t, render.Identity, got[2].Transform)
	assert.Equal(t, 90, got[2].Rotation)
	assert.Equal(t, 1, uploads)

	finishes(t, time.Second, func() { assert.NoError(t, img.Stop()) })
}

func TestImageDecodeFailure(t *testing.T) {
	deps := Deps{
		Opener: bytesOpener([]byte("not an image")),
		Upload: func(w, h int, rgba []byte) error { return nil },
	}
	img := NewImage("/sdcard/pic.png", 0, deps)
	assert.Error(t, img.Start())
	_, err := img.Latch()
	assert.Equal(t, ErrNoFrame, err)
	assert.NoError(t, img.Stop())
}

func TestRawInjectDelivers(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	w := &writer{format: inject.NV21, w: 4, h: 4, sizes: []int{16, 8}}
	r := NewRawInject("/sdcard/pic.png", w, Deps{Opener: bytesOpener(pngBytes(4, 4, red))})

	require.NoError(t, r.Start())
	finishes(t, time.Second, func() {
		for r.Delivered() < 2 {
			time.Sleep(5 * time.Millisecond)
		}
	})
	require.NoError(t, r.Stop())

	img := w.first()
	assert.Equal(t, byte(82), img.Planes[0][0])
	assert.Equal(t, []byte{240, 90}, img.Planes[1][:2])

	_, err := r.Latch()
	assert.Equal(t, ErrNoFrame, err)
}

func TestRawInjectSkipsUnsupported(t *testing.T) {
	w := &writer{format: inject.Unknown, w: 4, h: 4, sizes: []int{24}}
	r := NewRawInject("/sdcard/pic.png", w, Deps{Opener: bytesOpener(pngBytes(4, 4, color.Black))})

	require.NoError(t, r.Start())
	finishes(t, time.Second, func() {
		for r.Skipped() < 2 {
			time.Sleep(5 * time.Millisecond)
		}
	})
	require.NoError(t, r.Stop())

	queued, discarded := w.counts()
	assert.Equal(t, 0, queued)
	assert.True(t, discarded >= 2)
	assert.Equal(t, uint64(0), r.Delivered())
}
