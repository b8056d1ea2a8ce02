package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/pixelbend/pixelbend/internal/domain"
	"github.com/pixelbend/pixelbend/internal/id"
	"github.com/pixelbend/pixelbend/internal/pipeline"
)

type imageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type transformProcessor interface {
	Process(ctx context.Context, raw []byte, req domain.TransformRequest) (pipeline.EncodedImage, error)
}

// Options carries the optional server collaborators. The zero value runs the
// server with rate limiting and tracing disabled.
type Options struct {
	RateLimiter           RateLimiter
	RateLimitUserIDHeader string
	Tracer                trace.Tracer
	MaxUploadBytes        int64
}

type Server struct {
	logger                zerolog.Logger
	fetcher               imageFetcher
	processor             transformProcessor
	metrics               *metrics
	tracer                trace.Tracer
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	maxUploadBytes        int64
	mux                   *http.ServeMux
}

func NewServer(logger zerolog.Logger, fetcher imageFetcher, processor transformProcessor, opts Options) *Server {
	maxUploadBytes := opts.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}

	userIDHeader := strings.TrimSpace(opts.RateLimitUserIDHeader)
	if userIDHeader == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:                logger,
		fetcher:               fetcher,
		processor:             processor,
		metrics:               newMetrics(),
		tracer:                opts.Tracer,
		rateLimiter:           opts.RateLimiter,
		rateLimitUserIDHeader: userIDHeader,
		maxUploadBytes:        maxUploadBytes,
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the full middleware chain around the route mux.
func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("GET /v1/transform", s.handleTransformURL)
	s.mux.HandleFunc("POST /v1/transform", s.handleTransformUpload)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTransformURL serves GET /v1/transform: the source image is fetched
// from the url query parameter, transformed per the remaining parameters and
// returned in the response body.
func (s *Server) handleTransformURL(w http.ResponseWriter, r *http.Request) {
	requestID := id.New()
	start := time.Now()

	source := strings.TrimSpace(r.URL.Query().Get("url"))
	if source == "" {
		s.writeRequestError(w, requestID, http.StatusBadRequest, "url parameter is required")
		return
	}

	req, err := domain.ParseTransformRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, requestID, err)
		return
	}

	raw, err := s.fetcher.Fetch(r.Context(), source)
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", requestID).Str("url", source).Msg("source fetch failed")
		s.writeError(w, requestID, err)
		return
	}

	if req.OutputFormat == domain.FormatUnset {
		req.OutputFormat = formatHintFromURL(source)
	}

	s.finishTransform(w, r, requestID, start, "url", raw, req)
}

// handleTransformUpload serves POST /v1/transform: the source image arrives
// as the multipart "image" part and the transform fields as form values.
func (s *Server) handleTransformUpload(w http.ResponseWriter, r *http.Request) {
	requestID := id.New()
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeRequestError(w, requestID, http.StatusBadRequest, "invalid multipart data: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeRequestError(w, requestID, http.StatusBadRequest, "no image file found in upload")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeRequestError(w, requestID, http.StatusBadRequest, "read image part: "+err.Error())
		return
	}

	req, err := domain.ParseTransformRequest(url.Values(r.MultipartForm.Value))
	if err != nil {
		s.writeError(w, requestID, err)
		return
	}

	if req.OutputFormat == domain.FormatUnset {
		req.OutputFormat = domain.FormatFromPath(header.Filename)
	}

	s.finishTransform(w, r, requestID, start, "upload", raw, req)
}

func (s *Server) finishTransform(w http.ResponseWriter, r *http.Request, requestID string, start time.Time, source string, raw []byte, req domain.TransformRequest) {
	result, err := s.processor.Process(r.Context(), raw, req)
	if err != nil {
		s.metrics.transformsTotal.WithLabelValues(string(req.OutputFormat), "error").Inc()
		s.logger.Warn().Err(err).
			Str("request_id", requestID).
			Str("source", source).
			Msg("transform failed")
		s.writeError(w, requestID, err)
		return
	}

	s.metrics.transformsTotal.WithLabelValues(string(req.OutputFormat), "ok").Inc()
	s.logger.Info().
		Str("request_id", requestID).
		Str("source", source).
		Str("format", string(req.OutputFormat)).
		Int("width", result.Width).
		Int("height", result.Height).
		Int("bytes", len(result.Data)).
		Dur("duration", time.Since(start)).
		Msg("transform complete")

	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// formatHintFromURL infers the output format from the source URL's path
// extension, matching the behavior of omitting output_format on an upload.
func formatHintFromURL(source string) domain.OutputFormat {
	parsed, err := url.Parse(source)
	if err != nil {
		return domain.FormatFromPath(source)
	}
	return domain.FormatFromPath(parsed.Path)
}

func (s *Server) writeRequestError(w http.ResponseWriter, requestID string, status int, message string) {
	w.Header().Set("X-Request-ID", requestID)
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, err error) {
	status, message := classifyError(err)
	s.writeRequestError(w, requestID, status, message)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
