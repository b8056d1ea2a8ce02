package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/webp" // webp decode support

	"github.com/pixelbend/pixelbend/internal/domain"
)

// DefaultQuality is used for JPEG and WebP output when the request does not
// carry an explicit quality value.
const DefaultQuality = 80

var (
	ErrDecode         = errors.New("decode source image")
	ErrEncode         = errors.New("encode output image")
	ErrSourceTooLarge = errors.New("source image exceeds the pixel limit")
	ErrTargetTooLarge = errors.New("resize target exceeds the pixel limit")
)

// EncodedImage is the final output of one pipeline run.
type EncodedImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// decodeBounded decodes the source bytes into a pixel buffer. The dimensions
// are probed from the header first so an oversized image is rejected before
// its pixel data is ever allocated.
func decodeBounded(data []byte, maxPixels int64) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if maxPixels > 0 {
		pixels := int64(cfg.Width) * int64(cfg.Height)
		if pixels > maxPixels {
			return nil, "", fmt.Errorf("%w: %dx%d is %d pixels, limit is %d",
				ErrSourceTooLarge, cfg.Width, cfg.Height, pixels, maxPixels)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// encodeImage renders the buffer into the requested format. Quality is
// honored by the lossy encoders and ignored by the lossless ones.
func encodeImage(img image.Image, format domain.OutputFormat, quality int) (EncodedImage, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	switch format {
	case domain.FormatUnset, domain.FormatPNG:
		format = domain.FormatPNG
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return EncodedImage{}, fmt.Errorf("%w: png: %v", ErrEncode, err)
		}
	case domain.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return EncodedImage{}, fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
		}
	case domain.FormatWebP:
		data, err := encodeWebP(img, quality)
		if err != nil {
			return EncodedImage{}, fmt.Errorf("%w: webp: %v", ErrEncode, err)
		}
		buf.Write(data)
	case domain.FormatBMP:
		if err := bmp.Encode(&buf, img); err != nil {
			return EncodedImage{}, fmt.Errorf("%w: bmp: %v", ErrEncode, err)
		}
	case domain.FormatGIF:
		if err := gif.Encode(&buf, img, &gif.Options{NumColors: 256}); err != nil {
			return EncodedImage{}, fmt.Errorf("%w: gif: %v", ErrEncode, err)
		}
	default:
		return EncodedImage{}, fmt.Errorf("%w: unsupported output format %q", ErrEncode, format)
	}

	bounds := img.Bounds()
	return EncodedImage{
		Data:     buf.Bytes(),
		MIMEType: format.MIMEType(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
