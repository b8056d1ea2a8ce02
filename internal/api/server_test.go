package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pixelbend/pixelbend/internal/fetch"
	"github.com/pixelbend/pixelbend/internal/pipeline"
	"github.com/pixelbend/pixelbend/internal/ratelimit"
)

type stubFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(_ context.Context, _ string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, Remaining: 0, RetryAfter: 0}, nil
}

func buildTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(fetcher *stubFetcher, opts Options) *Server {
	return NewServer(zerolog.Nop(), fetcher, pipeline.NewProcessor(0), opts)
}

func TestHandleTransformURL(t *testing.T) {
	fetcher := &stubFetcher{data: buildTestPNG(t, 100, 100)}
	server := newTestServer(fetcher, Options{})

	target := "/v1/transform?" + url.Values{
		"url":           {"http://images.example/source.png"},
		"w":             {"50"},
		"filter":        {"grayscale"},
		"output_format": {"jpeg"},
		"quality":       {"90"},
	}.Encode()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %s", got)
	}

	out, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode response image: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Fatalf("expected 50x50, got %v", b)
	}
}

func TestHandleTransformURL_MissingURL(t *testing.T) {
	server := newTestServer(&stubFetcher{}, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transform", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleTransformURL_ParseFailsBeforeFetch(t *testing.T) {
	fetcher := &stubFetcher{data: buildTestPNG(t, 10, 10)}
	server := newTestServer(fetcher, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/v1/transform?url=http://images.example/a.png&quality=150", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fetcher.calls != 0 {
		t.Fatalf("expected no fetch for an invalid request, got %d calls", fetcher.calls)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message")
	}
}

func TestHandleTransformURL_FormatInferredFromExtension(t *testing.T) {
	fetcher := &stubFetcher{data: buildTestPNG(t, 20, 20)}
	server := newTestServer(fetcher, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/v1/transform?url=http://images.example/photo.bmp", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/bmp" {
		t.Fatalf("expected image/bmp, got %s", got)
	}
}

func TestHandleTransformURL_UpstreamFailure(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("%w: 404 Not Found", fetch.ErrUpstreamStatus)}
	server := newTestServer(fetcher, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/v1/transform?url=http://images.example/a.png", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleTransformUpload(t *testing.T) {
	server := newTestServer(&stubFetcher{}, Options{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "photo.gif")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(buildTestPNG(t, 40, 40)); err != nil {
		t.Fatalf("write image part: %v", err)
	}
	if err := writer.WriteField("w", "20"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/transform", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/gif" {
		t.Fatalf("expected image/gif inferred from filename, got %s", got)
	}

	out, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode response image: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Fatalf("expected 20x20, got %v", b)
	}
}

func TestHandleTransformUpload_MissingImagePart(t *testing.T) {
	server := newTestServer(&stubFetcher{}, Options{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("w", "20"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/transform", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRateLimitRejection(t *testing.T) {
	server := newTestServer(&stubFetcher{data: buildTestPNG(t, 10, 10)}, Options{
		RateLimiter: denyAllLimiter{},
	})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/v1/transform?url=http://images.example/a.png", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&stubFetcher{}, Options{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

