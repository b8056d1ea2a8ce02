package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/pixelbend/pixelbend/internal/domain"
)

func buildTestNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}
	return img
}

func toNRGBA(t *testing.T, img image.Image) *image.NRGBA {
	t.Helper()
	out, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", img)
	}
	return out
}

func TestApplyFilter_InvertTwiceIsIdentity(t *testing.T) {
	src := buildTestNRGBA(16, 16)

	once, err := applyFilter(src, domain.Invert{})
	if err != nil {
		t.Fatalf("first invert: %v", err)
	}
	twice, err := applyFilter(once, domain.Invert{})
	if err != nil {
		t.Fatalf("second invert: %v", err)
	}

	got := toNRGBA(t, twice)
	for i := range src.Pix {
		if src.Pix[i] != got.Pix[i] {
			t.Fatalf("pixel byte %d changed: %d != %d", i, src.Pix[i], got.Pix[i])
		}
	}
}

func TestApplyFilter_GrayscaleEqualizesChannels(t *testing.T) {
	out, err := applyFilter(buildTestNRGBA(8, 8), domain.Grayscale{})
	if err != nil {
		t.Fatalf("grayscale: %v", err)
	}

	img := toNRGBA(t, out)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := img.NRGBAAt(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) is not gray: %v", x, y, c)
			}
			if c.A != 255 {
				t.Fatalf("pixel (%d,%d) alpha changed: %d", x, y, c.A)
			}
		}
	}
}

func TestApplyFilter_BrightenClamps(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 250, G: 128, B: 5, A: 200})
	src.SetNRGBA(0, 1, color.NRGBA{R: 10, G: 10, B: 10, A: 255})

	out, err := applyFilter(src, domain.Brighten{Value: 20})
	if err != nil {
		t.Fatalf("brighten: %v", err)
	}
	img := toNRGBA(t, out)

	top := img.NRGBAAt(0, 0)
	if top.R != 255 || top.G != 148 || top.B != 25 {
		t.Fatalf("unexpected brightened pixel: %v", top)
	}
	if top.A != 200 {
		t.Fatalf("alpha changed: %d", top.A)
	}

	out, err = applyFilter(src, domain.Brighten{Value: -20})
	if err != nil {
		t.Fatalf("darken: %v", err)
	}
	bottom := toNRGBA(t, out).NRGBAAt(0, 1)
	if bottom.R != 0 || bottom.G != 0 || bottom.B != 0 {
		t.Fatalf("expected clamp to zero, got %v", bottom)
	}
}

func TestApplyFilter_OrderMatters(t *testing.T) {
	src := buildTestNRGBA(16, 16)

	brightenFirst, err := applyFilter(src, domain.Brighten{Value: 15})
	if err != nil {
		t.Fatalf("brighten: %v", err)
	}
	brightenFirst, err = applyFilter(brightenFirst, domain.Contrast{Value: 25.5})
	if err != nil {
		t.Fatalf("contrast: %v", err)
	}

	contrastFirst, err := applyFilter(src, domain.Contrast{Value: 25.5})
	if err != nil {
		t.Fatalf("contrast: %v", err)
	}
	contrastFirst, err = applyFilter(contrastFirst, domain.Brighten{Value: 15})
	if err != nil {
		t.Fatalf("brighten: %v", err)
	}

	a := toNRGBA(t, brightenFirst)
	b := toNRGBA(t, contrastFirst)
	same := true
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("expected different results for different filter orders")
	}
}

func TestApplyFilter_BlurAndSharpenPreserveDimensions(t *testing.T) {
	src := buildTestNRGBA(20, 12)

	blurred, err := applyFilter(src, domain.Blur{Sigma: 2.5})
	if err != nil {
		t.Fatalf("blur: %v", err)
	}
	if got := blurred.Bounds(); got.Dx() != 20 || got.Dy() != 12 {
		t.Fatalf("blur changed dimensions: %v", got)
	}

	sharpened, err := applyFilter(src, domain.Sharpen{Sigma: 1.5, Threshold: 4})
	if err != nil {
		t.Fatalf("sharpen: %v", err)
	}
	if got := sharpened.Bounds(); got.Dx() != 20 || got.Dy() != 12 {
		t.Fatalf("sharpen changed dimensions: %v", got)
	}
}
