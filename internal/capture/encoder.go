package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// EncoderOptions is the capture-quality policy: lossy JPEG re-encoding tuned
// for a balance of recognizability and payload size. Both knobs are
// configuration, not constants; the right values are a product decision.
type EncoderOptions struct {
	// Quality is the JPEG quality factor in (0, 1].
	Quality float64

	// MaxEdge caps the long edge of the encoded frame in pixels. Frames
	// already within the cap are not resampled.
	MaxEdge int
}

// DefaultEncoderOptions returns the default capture policy.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		Quality: 0.75,
		MaxEdge: 1280,
	}
}

// MimeType is the encoding every captured frame is normalized to.
const MimeType = "image/jpeg"

// EncodeFrame rasterizes one still frame into the upload payload: downscale
// to the long-edge cap with box sampling, then JPEG-encode at the configured
// quality.
func EncodeFrame(img image.Image, opts EncoderOptions) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame has zero dimensions (%dx%d)", width, height)
	}

	if opts.MaxEdge > 0 {
		img = downscale(img, opts.MaxEdge)
	}

	quality := int(opts.Quality * 100)
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale box-samples img so its long edge is at most maxEdge.
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	long := width
	if height > long {
		long = height
	}
	if long <= maxEdge {
		return img
	}

	scale := float64(long) / float64(maxEdge)
	dstW := int(float64(width) / scale)
	dstH := int(float64(height) / scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for dy := 0; dy < dstH; dy++ {
		sy0 := bounds.Min.Y + int(float64(dy)*scale)
		sy1 := bounds.Min.Y + int(float64(dy+1)*scale)
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		if sy1 > bounds.Max.Y {
			sy1 = bounds.Max.Y
		}
		for dx := 0; dx < dstW; dx++ {
			sx0 := bounds.Min.X + int(float64(dx)*scale)
			sx1 := bounds.Min.X + int(float64(dx+1)*scale)
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			if sx1 > bounds.Max.X {
				sx1 = bounds.Max.X
			}

			var r, g, b, a, n uint64
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					pr, pg, pb, pa := img.At(sx, sy).RGBA()
					r += uint64(pr)
					g += uint64(pg)
					b += uint64(pb)
					a += uint64(pa)
					n++
				}
			}

			i := dst.PixOffset(dx, dy)
			dst.Pix[i+0] = uint8(r / n >> 8)
			dst.Pix[i+1] = uint8(g / n >> 8)
			dst.Pix[i+2] = uint8(b / n >> 8)
			dst.Pix[i+3] = uint8(a / n >> 8)
		}
	}
	return dst
}
