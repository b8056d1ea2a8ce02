package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"

	"github.com/pixelbend/pixelbend/internal/domain"
)

// ErrFilter marks a failure while applying a parsed filter to pixel data.
// Parsing already rejected unknown filters and bad parameters, so this is an
// internal fault rather than a client one.
var ErrFilter = errors.New("apply filter")

// applyFilter runs one filter over the buffer and returns the new buffer.
// Filters never mutate their input; each application produces a fresh NRGBA
// image so the chain stays a single linear ownership handoff.
func applyFilter(img image.Image, filter domain.Filter) (image.Image, error) {
	switch f := filter.(type) {
	case domain.Grayscale:
		return imaging.Grayscale(img), nil

	case domain.Invert:
		return imaging.Invert(img), nil

	case domain.Blur:
		return imaging.Blur(img, f.Sigma), nil

	case domain.Sharpen:
		return unsharpMask(img, f.Sigma, f.Threshold), nil

	case domain.Brighten:
		return brighten(img, f.Value), nil

	case domain.Contrast:
		return imaging.AdjustContrast(img, f.Value), nil

	default:
		return nil, fmt.Errorf("%w: unhandled filter %q", ErrFilter, filter.Directive())
	}
}

// unsharpMask sharpens with a noise-suppression threshold. The threshold is
// given as a 0..255 channel delta and scaled to gift's 0..1 range.
func unsharpMask(img image.Image, sigma float64, threshold int) image.Image {
	g := gift.New(gift.UnsharpMask(float32(sigma), 1.0, float32(threshold)/255.0))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}

// brighten adds value to each color channel, clamped to the channel range.
// Alpha is untouched.
func brighten(img image.Image, value int) image.Image {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(int(c.R) + value),
			G: clampChannel(int(c.G) + value),
			B: clampChannel(int(c.B) + value),
			A: c.A,
		}
	})
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
