package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/pixelbend/pixelbend/internal/domain"
	"github.com/pixelbend/pixelbend/internal/fetch"
	"github.com/pixelbend/pixelbend/internal/pipeline"
)

// statusClientClosedRequest is the nginx convention for a request aborted by
// the client before a response was written.
const statusClientClosedRequest = 499

// classifyError maps an error from the parse, fetch or pipeline layers to an
// HTTP status and a client-safe message. Parse and geometry faults are the
// client's, upstream fetch faults map to 502, and filter or encode faults
// are internal.
func classifyError(err error) (int, string) {
	switch {
	case domain.IsParseError(err):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, fetch.ErrBadSourceURL):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, fetch.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, fetch.ErrUpstreamStatus):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, fetch.ErrFetchFailed):
		return http.StatusBadGateway, "failed to fetch the source image"

	case errors.Is(err, pipeline.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, pipeline.ErrTargetTooLarge):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, pipeline.ErrDecode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, pipeline.ErrCropOutOfBounds),
		errors.Is(err, pipeline.ErrDegenerateGeometry):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusClientClosedRequest, "request canceled"

	default:
		return http.StatusInternalServerError, "image processing failed"
	}
}
