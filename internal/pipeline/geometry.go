package pipeline

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/pixelbend/pixelbend/internal/domain"
)

var (
	// ErrCropOutOfBounds is returned when the requested crop window does
	// not fit inside the source image. Out-of-bounds crops are rejected,
	// never clamped.
	ErrCropOutOfBounds = errors.New("crop window is outside the image bounds")

	// ErrDegenerateGeometry is returned when a stage would operate on a
	// zero-area image.
	ErrDegenerateGeometry = errors.New("image has degenerate dimensions")
)

// ResolvedGeometry is the concrete crop window and resize target computed
// for one request against the actual source dimensions.
type ResolvedGeometry struct {
	Crop     *image.Rectangle
	ResizeTo *image.Point
}

// ResolveGeometry turns the request's crop and resize intent into pixel
// coordinates. The resize target is computed against the post-crop
// dimensions; when only one dimension is requested the other is derived from
// the aspect ratio, when both are requested they are used exactly.
func ResolveGeometry(srcW, srcH int, crop *domain.CropRect, resize *domain.ResizeSpec) (ResolvedGeometry, error) {
	if srcW <= 0 || srcH <= 0 {
		return ResolvedGeometry{}, fmt.Errorf("%w: source is %dx%d", ErrDegenerateGeometry, srcW, srcH)
	}

	var resolved ResolvedGeometry
	w0, h0 := srcW, srcH

	if crop != nil {
		// Compared without summing so adversarial near-MaxInt values
		// cannot wrap around the bounds check.
		if crop.X < 0 || crop.Y < 0 ||
			crop.X > srcW || crop.Width > srcW-crop.X ||
			crop.Y > srcH || crop.Height > srcH-crop.Y {
			return ResolvedGeometry{}, fmt.Errorf("%w: %dx%d at (%d,%d) in %dx%d source",
				ErrCropOutOfBounds, crop.Width, crop.Height, crop.X, crop.Y, srcW, srcH)
		}
		rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)
		resolved.Crop = &rect
		w0, h0 = crop.Width, crop.Height
	}

	if resize != nil {
		target, err := resolveResize(w0, h0, resize)
		if err != nil {
			return ResolvedGeometry{}, err
		}
		resolved.ResizeTo = target
	}

	return resolved, nil
}

func resolveResize(w0, h0 int, resize *domain.ResizeSpec) (*image.Point, error) {
	if w0 <= 0 || h0 <= 0 {
		return nil, fmt.Errorf("%w: %dx%d before resize", ErrDegenerateGeometry, w0, h0)
	}

	var target image.Point
	switch {
	case resize.Width > 0 && resize.Height > 0:
		target = image.Pt(resize.Width, resize.Height)
	case resize.Width > 0:
		height := int(math.Round(float64(h0) * float64(resize.Width) / float64(w0)))
		target = image.Pt(resize.Width, max(1, height))
	case resize.Height > 0:
		width := int(math.Round(float64(w0) * float64(resize.Height) / float64(h0)))
		target = image.Pt(max(1, width), resize.Height)
	default:
		return nil, nil
	}
	return &target, nil
}
