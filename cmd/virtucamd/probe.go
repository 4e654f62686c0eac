package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/lanikai/virtucam/internal/media"
	"github.com/spf13/cobra"
)

func isStream(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "rtsp://") || strings.HasPrefix(l, "rtmp://")
}

func openDemuxer(ctx context.Context, locator string) (media.Demuxer, error) {
	if isStream(locator) {
		return media.OpenStream(ctx, locator)
	}
	rc, err := media.OpenResource(locator)
	if err != nil {
		return nil, err
	}
	if rs, ok := rc.(io.ReadSeeker); ok {
		return media.OpenFile(rs)
	}
	defer rc.Close()
	buf, err := ioutil.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return media.OpenFile(bytes.NewReader(buf))
}

// probe prints the streams of a media file or network stream.
func probe(ctx context.Context, w io.Writer, locator string) error {
	d, err := openDemuxer(ctx, locator)
	if err != nil {
		return err
	}
	defer d.Close()

	streams, err := d.Streams()
	if err != nil {
		return err
	}
	for i, s := range streams {
		fmt.Fprintf(w, "stream %d: %v\n", i, s.Type())
	}

	idx, v, err := media.VideoTrack(streams)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "video: stream %d, %dx%d\n", idx, v.Width(), v.Height())
	if cfg, err := media.ConfigFor(v); err == nil {
		fmt.Fprintf(w, "decoder: %s, %d bytes codec config\n", cfg.MIME, len(cfg.CSD))
	} else {
		fmt.Fprintf(w, "decoder: %v\n", err)
	}
	return nil
}

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe LOCATOR|URL",
		Short: "List the tracks of a video file or RTSP/RTMP stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), media.ConnectTimeout)
			defer cancel()
			return probe(ctx, cmd.OutOrStdout(), args[0])
		},
	}
}
