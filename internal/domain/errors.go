package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors carry the offending field, filter name, or argument position
// so handlers can produce an actionable client message without exposing
// anything internal.

type InvalidNumberError struct {
	Field string
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("field %q must be a valid number", e.Field)
}

type IncompleteCropError struct {
	Missing []string
}

func (e *IncompleteCropError) Error() string {
	return fmt.Sprintf("crop requires crop_x, crop_y, crop_w and crop_h; missing %s",
		strings.Join(e.Missing, ", "))
}

type InvalidCropError struct {
	Reason string
}

func (e *InvalidCropError) Error() string {
	return "invalid crop: " + e.Reason
}

type InvalidResizeError struct {
	Reason string
}

func (e *InvalidResizeError) Error() string {
	return "invalid resize: " + e.Reason
}

type UnknownFormatError struct {
	Given string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q", e.Given)
}

type QualityOutOfRangeError struct {
	Given int
}

func (e *QualityOutOfRangeError) Error() string {
	return fmt.Sprintf("quality %d is out of range, must be between 1 and 100", e.Given)
}

type UnknownFilterError struct {
	Given string
}

func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("unsupported filter type %q", e.Given)
}

type ArityError struct {
	Filter   string
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("filter %q accepts at most %d argument(s), got %d", e.Filter, e.Expected, e.Got)
}

type InvalidArgumentError struct {
	Filter   string
	Position int
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("filter %q has an invalid argument at position %d", e.Filter, e.Position)
}

type ParameterRangeError struct {
	Filter string
	Reason string
}

func (e *ParameterRangeError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Filter, e.Reason)
}

// FilterDirectiveError annotates a filter parse failure with the index of the
// directive inside the request, since the filter field is repeatable.
type FilterDirectiveError struct {
	Index int
	Err   error
}

func (e *FilterDirectiveError) Error() string {
	return fmt.Sprintf("filter directive %d: %v", e.Index, e.Err)
}

func (e *FilterDirectiveError) Unwrap() error { return e.Err }

// IsParseError reports whether err is one of the request parse errors, i.e.
// a fault in the client's input rather than in the service.
func IsParseError(err error) bool {
	var (
		invalidNumber   *InvalidNumberError
		incompleteCrop  *IncompleteCropError
		invalidCrop     *InvalidCropError
		invalidResize   *InvalidResizeError
		unknownFormat   *UnknownFormatError
		qualityRange    *QualityOutOfRangeError
		unknownFilter   *UnknownFilterError
		arity           *ArityError
		invalidArgument *InvalidArgumentError
		parameterRange  *ParameterRangeError
		directive       *FilterDirectiveError
	)
	return errors.As(err, &invalidNumber) ||
		errors.As(err, &incompleteCrop) ||
		errors.As(err, &invalidCrop) ||
		errors.As(err, &invalidResize) ||
		errors.As(err, &unknownFormat) ||
		errors.As(err, &qualityRange) ||
		errors.As(err, &unknownFilter) ||
		errors.As(err, &arity) ||
		errors.As(err, &invalidArgument) ||
		errors.As(err, &parameterRange) ||
		errors.As(err, &directive)
}
