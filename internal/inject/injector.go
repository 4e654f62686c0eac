package inject

import (
	"image"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"
)

// Destinations rarely reconfigure, so a handful of geometries is plenty.
const cacheEntries = 8

type cacheKey struct {
	format        Format
	width, height int
}

// An Injector fills destination images from one still source. Each
// (format, geometry) is converted once and reused for every later frame.
type Injector struct {
	src image.Image

	mu    sync.Mutex
	cache *lru.Cache
}

func NewInjector(src image.Image) *Injector {
	return &Injector{
		src:   src,
		cache: lru.New(cacheEntries),
	}
}

// Frame returns the converted source for format f at w x h.
func (in *Injector) Frame(f Format, w, h int) ([]byte, error) {
	key := cacheKey{f, w, h}

	in.mu.Lock()
	defer in.mu.Unlock()

	if v, ok := in.cache.Get(key); ok {
		return v.([]byte), nil
	}
	data, err := Convert(in.src, f, w, h)
	if err != nil {
		return nil, err
	}
	log.Debug("Converted source to %v %dx%d: %d bytes", f, w, h, len(data))
	in.cache.Add(key, data)
	return data, nil
}

// Inject writes the source into dst. Plane writes are truncated to plane
// capacity. A compressed frame that does not fit, too few planes, or an
// unsupported format leave dst untouched and return an error.
func (in *Injector) Inject(dst *Image) error {
	data, err := in.Frame(dst.Format, dst.Width, dst.Height)
	if err != nil {
		return err
	}

	w, h := dst.Width, dst.Height
	ySize := w * h
	switch dst.Format {
	case YUV420:
		if len(dst.Planes) < 3 {
			return errors.Wrapf(ErrCapacity, "yuv420 needs 3 planes, have %d", len(dst.Planes))
		}
		cSize := ySize / 4
		writePlane(dst.Planes[0], data[:ySize], "Y")
		writePlane(dst.Planes[1], data[ySize:ySize+cSize], "U")
		writePlane(dst.Planes[2], data[ySize+cSize:], "V")

	case NV21:
		switch len(dst.Planes) {
		case 0:
			return errors.Wrap(ErrCapacity, "nv21 needs at least 1 plane")
		case 1:
			writePlane(dst.Planes[0], data, "YVU")
		default:
			writePlane(dst.Planes[0], data[:ySize], "Y")
			writePlane(dst.Planes[1], data[ySize:], "VU")
		}

	case JPEG:
		if len(dst.Planes) < 1 {
			return errors.Wrap(ErrCapacity, "jpeg needs 1 plane")
		}
		if len(data) > len(dst.Planes[0]) {
			return errors.Wrapf(ErrCapacity, "jpeg is %d bytes, buffer holds %d", len(data), len(dst.Planes[0]))
		}
		n := copy(dst.Planes[0], data)
		dst.Planes[0] = dst.Planes[0][:n]
	}
	return nil
}

func writePlane(plane, data []byte, name string) {
	if n := copy(plane, data); n < len(data) {
		log.Warn("%s plane truncated: wrote %d of %d bytes", name, n, len(data))
	}
}
