package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/lanikai/virtucam/internal/inject"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// parseGeometry parses "WIDTHxHEIGHT".
func parseGeometry(s string) (w, h int, err error) {
	if n, err := fmt.Sscanf(s, "%dx%d", &w, &h); n != 2 || err != nil {
		return 0, 0, errors.Errorf("invalid geometry %q (want WIDTHxHEIGHT)", s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, errors.Errorf("invalid geometry %q", s)
	}
	return w, h, nil
}

// convertFile decodes the image at in and writes it to out as a raw frame.
func convertFile(in, out string, f inject.Format, w, h int) (int, error) {
	r, err := os.Open(in)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	img, err := inject.Decode(r)
	if err != nil {
		return 0, err
	}
	data, err := inject.Convert(img, f, w, h)
	if err != nil {
		return 0, err
	}
	if err := ioutil.WriteFile(out, data, 0644); err != nil {
		return 0, errors.Wrap(err, "writing frame")
	}
	return len(data), nil
}

func newInjectCommand() *cobra.Command {
	var format, geometry string
	cmd := &cobra.Command{
		Use:   "inject [flags] IMAGE OUTPUT",
		Short: "Convert an image to the raw frame a still capture would receive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := inject.ParseFormat(format)
			if err != nil {
				return err
			}
			w, h, err := parseGeometry(geometry)
			if err != nil {
				return err
			}
			n, err := convertFile(args[0], args[1], f, w, h)
			if err != nil {
				return err
			}
			log.Info("Wrote %d bytes of %v %dx%d to %s", n, f, w, h, args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "nv21", "Frame format: yuv420, nv21 or jpeg")
	cmd.Flags().StringVarP(&geometry, "geometry", "g", "1280x720", "Frame size, in pixels")
	return cmd
}
