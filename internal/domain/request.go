package domain

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// OutputFormat names a supported target encoding. The zero value means the
// request did not specify one; the pipeline treats that as PNG unless the
// handler substitutes a format inferred from the source name.
type OutputFormat string

const (
	FormatUnset OutputFormat = ""
	FormatPNG   OutputFormat = "png"
	FormatJPEG  OutputFormat = "jpeg"
	FormatWebP  OutputFormat = "webp"
	FormatBMP   OutputFormat = "bmp"
	FormatGIF   OutputFormat = "gif"
)

// MIMEType returns the Content-Type for the encoded result.
func (f OutputFormat) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatGIF:
		return "image/gif"
	default:
		return "image/png"
	}
}

// ParseOutputFormat matches a format name case-insensitively. "jpg" is
// accepted as an alias for "jpeg".
func ParseOutputFormat(given string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(given)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "bmp":
		return FormatBMP, nil
	case "gif":
		return FormatGIF, nil
	default:
		return FormatUnset, &UnknownFormatError{Given: given}
	}
}

// FormatFromPath infers an output format from a URL path or upload filename
// extension. Unrecognizable extensions fall back to PNG.
func FormatFromPath(name string) OutputFormat {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	format, err := ParseOutputFormat(ext)
	if err != nil {
		return FormatPNG
	}
	return format
}

// CropRect is the requested crop window in source pixel coordinates.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ResizeSpec holds the requested target dimensions. A zero dimension means
// "derive from the aspect ratio"; at least one dimension is always set.
type ResizeSpec struct {
	Width  int
	Height int
}

// TransformRequest is the validated intent of one request. It is built once
// from the raw fields, consumed once by the pipeline, and never reused.
type TransformRequest struct {
	Crop         *CropRect
	Resize       *ResizeSpec
	Filters      []Filter
	OutputFormat OutputFormat

	// Quality is 0 when unset; otherwise 1..100. Only JPEG and WebP
	// encoders consume it.
	Quality int
}

var cropFields = [4]string{"crop_x", "crop_y", "crop_w", "crop_h"}

// ParseTransformRequest validates the flat field mapping of a request (query
// parameters or multipart form values) into a TransformRequest. It is a pure
// function of its input: no field is ever guessed or silently defaulted to
// zero, and every failure names the offending field.
func ParseTransformRequest(values url.Values) (TransformRequest, error) {
	var req TransformRequest

	w, wSet, err := optionalInt(values, "w")
	if err != nil {
		return TransformRequest{}, err
	}
	h, hSet, err := optionalInt(values, "h")
	if err != nil {
		return TransformRequest{}, err
	}
	if wSet || hSet {
		if (wSet && w <= 0) || (hSet && h <= 0) {
			return TransformRequest{}, &InvalidResizeError{Reason: "w and h must be greater than 0"}
		}
		req.Resize = &ResizeSpec{Width: w, Height: h}
	}

	crop, err := parseCrop(values)
	if err != nil {
		return TransformRequest{}, err
	}
	req.Crop = crop

	for i, directive := range values["filter"] {
		if strings.TrimSpace(directive) == "" {
			continue
		}
		filter, err := ParseFilter(directive)
		if err != nil {
			return TransformRequest{}, &FilterDirectiveError{Index: i, Err: err}
		}
		req.Filters = append(req.Filters, filter)
	}

	if given := values.Get("output_format"); given != "" {
		format, err := ParseOutputFormat(given)
		if err != nil {
			return TransformRequest{}, err
		}
		req.OutputFormat = format
	}

	quality, qualitySet, err := optionalInt(values, "quality")
	if err != nil {
		return TransformRequest{}, err
	}
	if qualitySet {
		if quality < 1 || quality > 100 {
			return TransformRequest{}, &QualityOutOfRangeError{Given: quality}
		}
		req.Quality = quality
	}

	return req, nil
}

func parseCrop(values url.Values) (*CropRect, error) {
	var (
		parsed  [4]int
		missing []string
	)
	for i, field := range cropFields {
		v, set, err := optionalInt(values, field)
		if err != nil {
			return nil, err
		}
		if !set {
			missing = append(missing, field)
			continue
		}
		parsed[i] = v
	}

	// All four absent means no crop; a partial set is never guessed at.
	if len(missing) == len(cropFields) {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, &IncompleteCropError{Missing: missing}
	}

	crop := &CropRect{X: parsed[0], Y: parsed[1], Width: parsed[2], Height: parsed[3]}
	if crop.X < 0 || crop.Y < 0 {
		return nil, &InvalidCropError{Reason: "crop_x and crop_y must not be negative"}
	}
	if crop.Width <= 0 || crop.Height <= 0 {
		return nil, &InvalidCropError{Reason: "crop_w and crop_h must be greater than 0"}
	}
	return crop, nil
}

// optionalInt reports whether the field was present; a present but
// unparsable value is an error, never a zero.
func optionalInt(values url.Values, field string) (int, bool, error) {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &InvalidNumberError{Field: field}
	}
	return v, true, nil
}
