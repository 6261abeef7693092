package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/disintegration/imaging"
)

// inlineImagePattern matches base64 data-URL image sources inside img tags
// of rich-text protocol sections.
var inlineImagePattern = regexp.MustCompile(`src="data:image/([a-zA-Z0-9.+-]+);base64,([^"]+)"`)

// UploadedImage records one inline image moved out of a protocol section
// into object storage.
type UploadedImage struct {
	Section     string `json:"section"`
	ImageNumber int    `json:"image_number"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
}

// extractAndUploadImages scans one section's HTML for inline base64 images,
// uploads each to storage and rewrites the src to the stored object's public
// URL. HTML without matches is returned unchanged. Image numbers start at 1
// and increase in document order within the section.
func extractAndUploadImages(ctx context.Context, store BlobStore, actorID, submissionID int, section, html string) (string, []UploadedImage, error) {
	matches := inlineImagePattern.FindAllStringSubmatchIndex(html, -1)
	if len(matches) == 0 {
		return html, nil, nil
	}

	uploaded := make([]UploadedImage, 0, len(matches))
	var out bytes.Buffer
	last := 0
	for i, m := range matches {
		format := html[m[2]:m[3]]
		payload := html[m[4]:m[5]]

		data, err := decodeBase64Payload(payload)
		if err != nil {
			return "", nil, fmt.Errorf("section %s image %d: invalid base64 payload: %w", section, i+1, err)
		}

		path := fmt.Sprintf("%d/%d/protocol-images/%s-%d-%d.%s",
			actorID, submissionID, section, i+1, time.Now().UnixNano(), normalizeImageExt(format))
		if err := store.Upload(ctx, path, data, "image/"+format); err != nil {
			return "", nil, fmt.Errorf("section %s image %d: %w", section, i+1, err)
		}

		out.WriteString(html[last:m[0]])
		out.WriteString(fmt.Sprintf(`src="%s"`, store.PublicURL(path)))
		last = m[1]

		uploaded = append(uploaded, UploadedImage{
			Section:     section,
			ImageNumber: i + 1,
			Path:        path,
			Size:        int64(len(data)),
		})
	}
	out.WriteString(html[last:])

	return out.String(), uploaded, nil
}

func normalizeImageExt(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "jpg"
	case "svg+xml":
		return "svg"
	default:
		return format
	}
}

// maxSignatureWidth bounds signature images embedded into rendered PDFs.
const maxSignatureWidth = 480

// normalizeSignatureImage re-encodes a signature as PNG, downscaling wide
// scans. Undecodable payloads are passed through untouched so unusual but
// valid image files still upload.
func normalizeSignatureImage(data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("signature image decode failed, storing as-is: %v", err)
		return data
	}

	if img.Bounds().Dx() > maxSignatureWidth {
		img = imaging.Resize(img, maxSignatureWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		log.Printf("signature image encode failed, storing as-is: %v", err)
		return data
	}
	return buf.Bytes()
}
