package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func inlineImageHTML(format string, data []byte) string {
	return fmt.Sprintf(`<img src="data:image/%s;base64,%s" alt="figure">`,
		format, base64.StdEncoding.EncodeToString(data))
}

func TestExtractAndUploadImagesPassesThroughPlainHTML(t *testing.T) {
	store := newFakeStore()
	html := `<p>No figures here, just <b>text</b> and a regular <img src="https://example.org/x.png">.</p>`

	out, uploaded, err := extractAndUploadImages(context.Background(), store, 1, 2, "methodology", html)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if out != html {
		t.Fatalf("HTML changed: %q", out)
	}
	if len(uploaded) != 0 || len(store.ops) != 0 {
		t.Fatalf("unexpected uploads: %v / %v", uploaded, store.ops)
	}
}

func TestExtractAndUploadImagesRewritesInlineSources(t *testing.T) {
	store := newFakeStore()
	first := []byte("first image bytes")
	second := []byte("second image bytes")

	html := "<p>before</p>" + inlineImageHTML("png", first) +
		"<p>between</p>" + inlineImageHTML("jpeg", second) + "<p>after</p>"

	out, uploaded, err := extractAndUploadImages(context.Background(), store, 3, 9, "interventions", html)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if strings.Contains(out, "base64,") {
		t.Fatalf("inline payload survived extraction: %q", out)
	}
	for _, fragment := range []string{"<p>before</p>", "<p>between</p>", "<p>after</p>", `alt="figure"`} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("surrounding HTML lost %q: %q", fragment, out)
		}
	}

	if len(uploaded) != 2 {
		t.Fatalf("uploaded = %v, want 2 images", uploaded)
	}
	for i, img := range uploaded {
		if img.Section != "interventions" {
			t.Fatalf("image %d section = %q", i, img.Section)
		}
		if img.ImageNumber != i+1 {
			t.Fatalf("image %d numbered %d", i, img.ImageNumber)
		}
		if !strings.Contains(out, store.PublicURL(img.Path)) {
			t.Fatalf("rewritten HTML missing public URL for %s", img.Path)
		}
		if !strings.HasPrefix(img.Path, "3/9/protocol-images/interventions-") {
			t.Fatalf("image %d path = %q", i, img.Path)
		}
	}

	if uploaded[0].Size != int64(len(first)) || uploaded[1].Size != int64(len(second)) {
		t.Fatalf("sizes = %d/%d, want %d/%d", uploaded[0].Size, uploaded[1].Size, len(first), len(second))
	}
	if !strings.HasSuffix(uploaded[0].Path, ".png") || !strings.HasSuffix(uploaded[1].Path, ".jpg") {
		t.Fatalf("extensions not normalized: %q %q", uploaded[0].Path, uploaded[1].Path)
	}

	if !bytes.Equal(store.objects[uploaded[0].Path], first) {
		t.Fatal("stored bytes do not match the decoded payload")
	}
}

func TestExtractAndUploadImagesRejectsBadPayload(t *testing.T) {
	store := newFakeStore()
	html := `<img src="data:image/png;base64,!!!not-base64!!!">`

	if _, _, err := extractAndUploadImages(context.Background(), store, 1, 1, "timeline", html); err == nil {
		t.Fatal("expected decode error")
	}
	if len(store.ops) != 0 {
		t.Fatalf("store ops = %v, want none", store.ops)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeSignatureImageDownscalesWideScans(t *testing.T) {
	wide := imaging.New(1600, 400, color.White)
	data := encodePNG(t, wide)

	normalized := normalizeSignatureImage(data)
	img, err := imaging.Decode(bytes.NewReader(normalized))
	if err != nil {
		t.Fatalf("decode normalized image: %v", err)
	}
	if img.Bounds().Dx() != maxSignatureWidth {
		t.Fatalf("width = %d, want %d", img.Bounds().Dx(), maxSignatureWidth)
	}
}

func TestNormalizeSignatureImageKeepsSmallImages(t *testing.T) {
	small := imaging.New(200, 80, color.White)
	data := encodePNG(t, small)

	normalized := normalizeSignatureImage(data)
	img, err := imaging.Decode(bytes.NewReader(normalized))
	if err != nil {
		t.Fatalf("decode normalized image: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 80 {
		t.Fatalf("bounds = %v, want 200x80", img.Bounds())
	}
}

func TestNormalizeSignatureImagePassesThroughUndecodable(t *testing.T) {
	data := []byte("definitely not an image")
	if got := normalizeSignatureImage(data); !bytes.Equal(got, data) {
		t.Fatal("undecodable payload was altered")
	}
}
