package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/ioutil"
	"sync"
	"time"

	"github.com/lanikai/virtucam/internal/gles"
	"github.com/lanikai/virtucam/internal/gles/glestest"
	"github.com/lanikai/virtucam/internal/inject"
	"github.com/lanikai/virtucam/internal/media"
	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/codec/h264parser"
	"github.com/pkg/errors"
)

// events is a timestamped log shared by the fakes.
type events struct {
	mu  sync.Mutex
	log []event
}

type event struct {
	what string
	at   time.Time
}

func (e *events) add(what string) {
	e.mu.Lock()
	e.log = append(e.log, event{what, time.Now()})
	e.mu.Unlock()
}

func (e *events) all() []event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]event(nil), e.log...)
}

func (e *events) count(what string) int {
	n := 0
	for _, ev := range e.all() {
		if ev.what == what {
			n++
		}
	}
	return n
}

func testCodec() av.VideoCodecData {
	cd := h264parser.CodecData{}
	cd.SPSInfo.Width = 320
	cd.SPSInfo.Height = 240
	return cd
}

type audioCodec struct{}

func (audioCodec) Type() av.CodecType { return av.AAC }

// fakeDemuxer replays packets. With block set, ReadPacket past the end waits
// for Close instead of returning io.EOF.
type fakeDemuxer struct {
	ev      *events
	streams []av.CodecData
	packets []av.Packet
	block   bool
	failAt  int // ReadPacket fails at this position if > 0

	mu     sync.Mutex
	pos    int
	closed chan struct{}
}

func newFakeDemuxer(ev *events, packets ...av.Packet) *fakeDemuxer {
	return &fakeDemuxer{
		ev:      ev,
		streams: []av.CodecData{audioCodec{}, testCodec()},
		packets: packets,
		closed:  make(chan struct{}),
	}
}

func (d *fakeDemuxer) Streams() ([]av.CodecData, error) { return d.streams, nil }

func (d *fakeDemuxer) ReadPacket() (av.Packet, error) {
	d.mu.Lock()
	pos := d.pos
	if d.failAt > 0 && pos == d.failAt {
		d.mu.Unlock()
		return av.Packet{}, errors.New("connection reset")
	}
	if pos < len(d.packets) {
		d.pos++
		d.mu.Unlock()
		return d.packets[pos], nil
	}
	d.mu.Unlock()

	if d.block {
		<-d.closed
		return av.Packet{}, errors.New("use of closed connection")
	}
	d.ev.add("eof")
	return av.Packet{}, io.EOF
}

func (d *fakeDemuxer) SeekToTime(t time.Duration) error {
	d.mu.Lock()
	d.pos = 0
	d.mu.Unlock()
	d.ev.add("seek")
	return nil
}

func (d *fakeDemuxer) Close() error {
	select {
	case <-d.closed:
	default:
		close(d.closed)
		d.ev.add("demuxer.Close")
	}
	return nil
}

func (d *fakeDemuxer) isClosed() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// fakeDecoder turns every packet into one output with the packet's PTS.
// With eosEvery set, every eosEvery-th output is an empty end-of-stream
// buffer instead. With hang set, Decode blocks until Close.
type fakeDecoder struct {
	ev       *events
	surface  gles.NativeWindow
	eosEvery int
	hang     bool
	done     chan struct{}

	mu     sync.Mutex
	next   int
	closed bool
}

func (d *fakeDecoder) Decode(pkt av.Packet) ([]media.Output, error) {
	if d.hang {
		d.ev.add("hang")
		<-d.done
		return nil, media.ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	if d.eosEvery > 0 && d.next%d.eosEvery == 0 {
		d.ev.add("eos")
		return []media.Output{{Index: d.next, EndOfStream: true}}, nil
	}
	return []media.Output{{Index: d.next, PTS: pkt.Time, Size: len(pkt.Data)}}, nil
}

func (d *fakeDecoder) Release(out media.Output, render bool) error {
	if render {
		d.ev.add("render")
	} else {
		d.ev.add("drop")
	}
	return nil
}

func (d *fakeDecoder) Flush() error {
	d.ev.add("flush")
	return nil
}

func (d *fakeDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.done)
		d.ev.add("decoder.Close")
	}
	return nil
}

func (d *fakeDecoder) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// decoders is a DecoderFactory remembering what it made.
type decoders struct {
	ev       *events
	eosEvery int
	hang     bool

	mu   sync.Mutex
	made []*fakeDecoder
}

func (f *decoders) factory(codec av.VideoCodecData, surface gles.NativeWindow) (media.Decoder, error) {
	d := &fakeDecoder{ev: f.ev, surface: surface, eosEvery: f.eosEvery, hang: f.hang, done: make(chan struct{})}
	f.mu.Lock()
	f.made = append(f.made, d)
	f.mu.Unlock()
	return d, nil
}

func (f *decoders) last() *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.made) == 0 {
		return nil
	}
	return f.made[len(f.made)-1]
}

// video packets on stream 1, one every interval.
func videoPackets(n int, interval time.Duration) []av.Packet {
	var pkts []av.Packet
	for i := 0; i < n; i++ {
		pkts = append(pkts,
			av.Packet{Idx: 0, Time: time.Duration(i) * interval, Data: []byte{0xff}},
			av.Packet{Idx: 1, Time: time.Duration(i) * interval, Data: []byte{0, 0, 0, 1, 0x65}, IsKeyFrame: i == 0},
		)
	}
	return pkts
}

func pngBytes(w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func bytesOpener(data []byte) media.Opener {
	return media.OpenerFunc(func(string) (io.ReadCloser, error) {
		return ioutil.NopCloser(bytes.NewReader(data)), nil
	})
}

var failingOpener = media.OpenerFunc(func(locator string) (io.ReadCloser, error) {
	return nil, errors.Errorf("%s: permission denied", locator)
})

func testDeps(dec *decoders, sts *glestest.SurfaceTextures) Deps {
	return Deps{
		Opener:   bytesOpener([]byte("mp4")),
		Decoders: dec.factory,
		Surfaces: sts.Factory,
		Texture:  7,
	}
}

// writer is a fake inject.Writer with one reusable buffer.
type writer struct {
	format inject.Format
	w, h   int
	sizes  []int

	mu        sync.Mutex
	queued    []*inject.Image
	discarded int
}

func (w *writer) Dequeue() (*inject.Image, error) {
	img := &inject.Image{Format: w.format, Width: w.w, Height: w.h}
	for _, n := range w.sizes {
		img.Planes = append(img.Planes, make([]byte, n))
	}
	return img, nil
}

func (w *writer) Queue(img *inject.Image) error {
	w.mu.Lock()
	w.queued = append(w.queued, img)
	w.mu.Unlock()
	return nil
}

func (w *writer) Discard(img *inject.Image) {
	w.mu.Lock()
	w.discarded++
	w.mu.Unlock()
}

func (w *writer) counts() (queued, discarded int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queued), w.discarded
}

func (w *writer) first() *inject.Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queued[0]
}

// blockingDial waits for the context, like a connect to a dead host.
func blockingDial(ctx context.Context, url string) (media.Demuxer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
