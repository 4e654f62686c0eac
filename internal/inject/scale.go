package inject

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	// Decoders for the formats a media locator may point at.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
)

// JPEGQuality is the fixed quality for compressed delivery.
const JPEGQuality = 90

// Decode reads a still image in any registered format.
func Decode(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	b := img.Bounds()
	log.Debug("Decoded %s image: %dx%d", format, b.Dx(), b.Dy())
	return img, nil
}

// Scale resamples src to w x h with bilinear filtering. A source that is
// already the right size is copied unchanged.
func Scale(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, dst.Rect, src, sb.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Rect, src, sb, draw.Src, nil)
	}
	return dst
}

// EncodeJPEG compresses img at JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, errors.Wrap(err, "encoding jpeg")
	}
	return buf.Bytes(), nil
}

// Convert scales img and encodes it in format f.
func Convert(img image.Image, f Format, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("invalid geometry %dx%d", w, h)
	}
	switch f {
	case YUV420:
		return ToI420(Scale(img, w, h)), nil
	case NV21:
		return ToNV21(Scale(img, w, h)), nil
	case JPEG:
		return EncodeJPEG(Scale(img, w, h))
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "%v", f)
}
