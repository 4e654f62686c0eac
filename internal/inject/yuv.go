package inject

import "image"

// rgbToYUV applies the BT.601 studio-swing integer transform.
func rgbToYUV(r, g, b int) (y, u, v byte) {
	return clamp(((66*r+129*g+25*b+128)>>8)+16),
		clamp(((-38*r-74*g+112*b+128)>>8)+128),
		clamp(((112*r-94*g-18*b+128)>>8)+128)
}

func clamp(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// I420Size returns the length of a planar 4:2:0 frame.
func I420Size(w, h int) int {
	return w*h + 2*(w*h/4)
}

// NV21Size returns the length of a semi-planar NV21 frame.
func NV21Size(w, h int) int {
	return w*h + w*h/2
}

// ToI420 converts img to Y, U and V planes, back to back. Chroma is taken
// from the pixel at each even (row, col).
func ToI420(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	ySize := w * h
	out := make([]byte, I420Size(w, h))
	uIndex, vIndex := ySize, ySize+ySize/4
	uEnd := vIndex

	for j := 0; j < h; j++ {
		row := img.Pix[j*img.Stride:]
		for i := 0; i < w; i++ {
			p := row[i*4:]
			y, u, v := rgbToYUV(int(p[0]), int(p[1]), int(p[2]))
			out[j*w+i] = y
			if j%2 == 0 && i%2 == 0 && uIndex < uEnd {
				out[uIndex] = u
				out[vIndex] = v
				uIndex++
				vIndex++
			}
		}
	}
	return out
}

// ToNV21 converts img to a Y plane followed by interleaved V, U pairs.
func ToNV21(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]byte, NV21Size(w, h))
	uvIndex := w * h

	for j := 0; j < h; j++ {
		row := img.Pix[j*img.Stride:]
		for i := 0; i < w; i++ {
			p := row[i*4:]
			y, u, v := rgbToYUV(int(p[0]), int(p[1]), int(p[2]))
			out[j*w+i] = y
			if j%2 == 0 && i%2 == 0 && uvIndex+1 < len(out) {
				out[uvIndex] = v
				out[uvIndex+1] = u
				uvIndex += 2
			}
		}
	}
	return out
}
