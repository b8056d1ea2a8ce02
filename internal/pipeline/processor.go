package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/pixelbend/pixelbend/internal/domain"
)

// Processor runs the transform pipeline: decode, crop, resize, filter chain,
// encode, in that fixed order. A Processor holds no per-request state and is
// safe to share across concurrent requests.
type Processor struct {
	maxSourcePixels int64
}

// NewProcessor builds a Processor. maxSourcePixels bounds the pixel count of
// both the decoded source and the resize target; zero or negative disables
// the bound.
func NewProcessor(maxSourcePixels int64) *Processor {
	return &Processor{maxSourcePixels: maxSourcePixels}
}

// Process applies the validated request to the raw source bytes and returns
// the encoded result. Any stage failure aborts the whole request; partial
// output is never returned and nothing is retried.
func (p *Processor) Process(ctx context.Context, raw []byte, req domain.TransformRequest) (EncodedImage, error) {
	img, _, err := decodeBounded(raw, p.maxSourcePixels)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("decode stage: %w", err)
	}

	bounds := img.Bounds()
	geometry, err := ResolveGeometry(bounds.Dx(), bounds.Dy(), req.Crop, req.Resize)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("geometry stage: %w", err)
	}

	// The source pixel bound applies to the resize target as well, so a
	// small source cannot request a multi-gigapixel output buffer.
	if geometry.ResizeTo != nil && p.maxSourcePixels > 0 {
		tw, th := int64(geometry.ResizeTo.X), int64(geometry.ResizeTo.Y)
		if tw > p.maxSourcePixels || th > p.maxSourcePixels || tw*th > p.maxSourcePixels {
			return EncodedImage{}, fmt.Errorf("geometry stage: %w: %dx%d target, limit is %d pixels",
				ErrTargetTooLarge, tw, th, p.maxSourcePixels)
		}
	}

	if geometry.Crop != nil {
		if err := ctx.Err(); err != nil {
			return EncodedImage{}, err
		}
		img = cropImage(img, *geometry.Crop)
	}

	if geometry.ResizeTo != nil {
		if err := ctx.Err(); err != nil {
			return EncodedImage{}, err
		}
		img = imaging.Resize(img, geometry.ResizeTo.X, geometry.ResizeTo.Y, imaging.Lanczos)
	}

	for i, filter := range req.Filters {
		if err := ctx.Err(); err != nil {
			return EncodedImage{}, err
		}
		img, err = applyFilter(img, filter)
		if err != nil {
			return EncodedImage{}, fmt.Errorf("filter stage %d (%s): %w", i, filter.Directive(), err)
		}
	}

	if err := ctx.Err(); err != nil {
		return EncodedImage{}, err
	}

	encoded, err := encodeImage(img, req.OutputFormat, req.Quality)
	if err != nil {
		return EncodedImage{}, fmt.Errorf("encode stage: %w", err)
	}
	return encoded, nil
}

// cropImage restricts the buffer to the resolved window. ResolveGeometry
// computes the window in (0,0)-anchored coordinates, so it is shifted to the
// buffer's own origin before cropping.
func cropImage(img image.Image, rect image.Rectangle) image.Image {
	return imaging.Crop(img, rect.Add(img.Bounds().Min))
}
