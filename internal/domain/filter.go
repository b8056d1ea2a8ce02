package domain

import (
	"strconv"
	"strings"
)

// Directive argument defaults, used when trailing arguments are omitted
// (e.g. "blur" is equivalent to "blur:1").
const (
	DefaultBlurSigma        = 1.0
	DefaultSharpenSigma     = 1.0
	DefaultSharpenThreshold = 0
	DefaultBrightenValue    = 10
	DefaultContrastValue    = 10.0
)

// Filter is one parsed filter directive. The set of implementations is
// closed: the unexported method keeps callers from introducing variants the
// pipeline does not know how to apply.
type Filter interface {
	// Directive renders the filter back into its wire form, e.g. "blur:3.5".
	Directive() string

	filterName() string
}

type Grayscale struct{}

type Invert struct{}

type Blur struct {
	Sigma float64
}

type Sharpen struct {
	Sigma     float64
	Threshold int
}

type Brighten struct {
	Value int
}

type Contrast struct {
	Value float64
}

func (Grayscale) filterName() string { return "grayscale" }
func (Invert) filterName() string    { return "invert" }
func (Blur) filterName() string      { return "blur" }
func (Sharpen) filterName() string   { return "sharpen" }
func (Brighten) filterName() string  { return "brighten" }
func (Contrast) filterName() string  { return "contrast" }

func (f Grayscale) Directive() string { return f.filterName() }
func (f Invert) Directive() string    { return f.filterName() }

func (f Blur) Directive() string {
	return f.filterName() + ":" + formatFloat(f.Sigma)
}

func (f Sharpen) Directive() string {
	return f.filterName() + ":" + formatFloat(f.Sigma) + ":" + strconv.Itoa(f.Threshold)
}

func (f Brighten) Directive() string {
	return f.filterName() + ":" + strconv.Itoa(f.Value)
}

func (f Contrast) Directive() string {
	return f.filterName() + ":" + formatFloat(f.Value)
}

// ParseFilter parses a single directive string of the form
// "name[:arg1[:arg2]]". The name is case-insensitive and arguments are
// positional. Omitted trailing arguments take the package defaults; extra
// arguments are an arity error.
func ParseFilter(directive string) (Filter, error) {
	parts := strings.Split(strings.TrimSpace(directive), ":")
	name := strings.ToLower(strings.TrimSpace(parts[0]))
	args := parts[1:]

	switch name {
	case "grayscale":
		if len(args) > 0 {
			return nil, &ArityError{Filter: "grayscale", Expected: 0, Got: len(args)}
		}
		return Grayscale{}, nil

	case "invert":
		if len(args) > 0 {
			return nil, &ArityError{Filter: "invert", Expected: 0, Got: len(args)}
		}
		return Invert{}, nil

	case "blur":
		if len(args) > 1 {
			return nil, &ArityError{Filter: "blur", Expected: 1, Got: len(args)}
		}
		sigma := DefaultBlurSigma
		if len(args) == 1 {
			v, err := parseFloatArg(args[0])
			if err != nil {
				return nil, &InvalidArgumentError{Filter: "blur", Position: 1}
			}
			sigma = v
		}
		if sigma <= 0 {
			return nil, &ParameterRangeError{Filter: "blur", Reason: "sigma must be greater than 0"}
		}
		return Blur{Sigma: sigma}, nil

	case "sharpen":
		if len(args) > 2 {
			return nil, &ArityError{Filter: "sharpen", Expected: 2, Got: len(args)}
		}
		sigma := DefaultSharpenSigma
		threshold := DefaultSharpenThreshold
		if len(args) >= 1 {
			v, err := parseFloatArg(args[0])
			if err != nil {
				return nil, &InvalidArgumentError{Filter: "sharpen", Position: 1}
			}
			sigma = v
		}
		if len(args) == 2 {
			v, err := parseIntArg(args[1])
			if err != nil {
				return nil, &InvalidArgumentError{Filter: "sharpen", Position: 2}
			}
			threshold = v
		}
		if sigma <= 0 {
			return nil, &ParameterRangeError{Filter: "sharpen", Reason: "sigma must be greater than 0"}
		}
		return Sharpen{Sigma: sigma, Threshold: threshold}, nil

	case "brighten":
		if len(args) > 1 {
			return nil, &ArityError{Filter: "brighten", Expected: 1, Got: len(args)}
		}
		value := DefaultBrightenValue
		if len(args) == 1 {
			v, err := parseIntArg(args[0])
			if err != nil {
				return nil, &InvalidArgumentError{Filter: "brighten", Position: 1}
			}
			value = v
		}
		return Brighten{Value: value}, nil

	case "contrast":
		if len(args) > 1 {
			return nil, &ArityError{Filter: "contrast", Expected: 1, Got: len(args)}
		}
		value := DefaultContrastValue
		if len(args) == 1 {
			v, err := parseFloatArg(args[0])
			if err != nil {
				return nil, &InvalidArgumentError{Filter: "contrast", Position: 1}
			}
			value = v
		}
		return Contrast{Value: value}, nil

	default:
		return nil, &UnknownFilterError{Given: name}
	}
}

func parseFloatArg(arg string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(arg), 64)
}

func parseIntArg(arg string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(arg))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
