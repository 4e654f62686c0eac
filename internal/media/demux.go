package media

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/av/avutil"
	"github.com/nareix/joy4/format"
	"github.com/nareix/joy4/format/mp4"
	"github.com/nareix/joy4/format/rtmp"
	"github.com/nareix/joy4/format/rtsp"
	errors "golang.org/x/xerrors"
)

// ConnectTimeout bounds stream connection when the context has no deadline.
const ConnectTimeout = 10 * time.Second

// A Demuxer yields compressed packets from a container or stream.
type Demuxer interface {
	Streams() ([]av.CodecData, error)
	ReadPacket() (av.Packet, error)
	Close() error
}

// A Seeker can rewind to the keyframe at or before a time.
type Seeker interface {
	SeekToTime(t time.Duration) error
}

type fileDemuxer struct {
	*mp4.Demuxer
	r io.ReadSeeker
}

func (d *fileDemuxer) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// OpenFile demuxes an MP4 container. The result also implements Seeker.
// Closing it closes r if r is an io.Closer.
func OpenFile(r io.ReadSeeker) (Demuxer, error) {
	d := &fileDemuxer{mp4.NewDemuxer(r), r}
	if _, err := d.Streams(); err != nil {
		d.Close()
		return nil, errors.Errorf("reading mp4 header: %w", err)
	}
	return d, nil
}

// Default ports per stream scheme.
var defaultPorts = map[string]string{
	"rtsp": "554",
	"rtmp": "1935",
}

// ParseURL validates a stream URL and fills in the default port.
func ParseURL(rawurl string) (*url.URL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	port, ok := defaultPorts[u.Scheme]
	if !ok {
		return nil, errors.Errorf("stream URL %q: %w", rawurl, ErrNotSupported)
	}
	if u.Host == "" {
		return nil, errors.Errorf("stream URL %q has no host", rawurl)
	}
	if u.Port() == "" {
		u.Host += ":" + port
	}
	return u, nil
}

var registerFormats sync.Once

// OpenStream connects to an RTSP or RTMP stream. The connection attempt is
// bounded by ctx, or by ConnectTimeout if ctx has no deadline.
func OpenStream(ctx context.Context, rawurl string) (Demuxer, error) {
	u, err := ParseURL(rawurl)
	if err != nil {
		return nil, err
	}
	registerFormats.Do(format.RegisterAll)

	timeout := ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	type result struct {
		d   Demuxer
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := dial(u, timeout)
		done <- result{d, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Errorf("connecting to %s: %w", u.Redacted(), r.err)
		}
		log.Info("Connected to %s", u.Redacted())
		return r.d, nil
	case <-ctx.Done():
		// Close whatever the dialer eventually returns.
		go func() {
			if r := <-done; r.d != nil {
				r.d.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func dial(u *url.URL, timeout time.Duration) (Demuxer, error) {
	switch strings.ToLower(u.Scheme) {
	case "rtsp":
		c, err := rtsp.DialTimeout(u.String(), timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "rtmp":
		c, err := rtmp.DialTimeout(u.String(), timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return avutil.Open(u.String())
}

// VideoTrack returns the index and codec of the first video stream.
func VideoTrack(streams []av.CodecData) (int, av.VideoCodecData, error) {
	for i, s := range streams {
		if !s.Type().IsVideo() {
			log.Debug("Skipping %v stream", s.Type())
			continue
		}
		if v, ok := s.(av.VideoCodecData); ok {
			log.Info("%v stream: %dx%d", v.Type(), v.Width(), v.Height())
			return i, v, nil
		}
	}
	return -1, nil, ErrNoVideoTrack
}
