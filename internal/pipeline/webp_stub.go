//go:build !govips || !cgo

package pipeline

import (
	"errors"
	"image"
)

func Startup() error {
	return nil
}

func Shutdown() {}

func encodeWebP(_ image.Image, _ int) ([]byte, error) {
	return nil, errors.New("webp encoding requires the govips build tag")
}
