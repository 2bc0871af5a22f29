package analysis

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

// MaxImageBytes is the decoded size limit for label images.
const MaxImageBytes = 10 << 20

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// DecodedImage is a label image taken from a request body.
type DecodedImage struct {
	Data     []byte
	MimeType string
}

// Ext is the file extension used for the archived copy.
func (d DecodedImage) Ext() string {
	if ext, ok := imageExt[d.MimeType]; ok {
		return ext
	}
	return "bin"
}

// Format is the short image format name stored on the analysis.
func (d DecodedImage) Format() string {
	if d.MimeType == "image/jpeg" {
		return "jpeg"
	}
	return d.Ext()
}

// DecodeImage accepts plain base64 or a data URL and enforces the size limit.
func DecodeImage(raw string, limit int) (DecodedImage, error) {
	if limit <= 0 {
		limit = MaxImageBytes
	}
	raw = strings.TrimSpace(raw)
	mimeType := ""
	if strings.HasPrefix(raw, "data:") {
		head, body, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(head, ";base64") {
			return DecodedImage{}, failure.Validation("imageData must be a base64 data URL")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
		raw = body
	}
	if base64.StdEncoding.DecodedLen(len(raw)) > limit+3 {
		return DecodedImage{}, failure.Validation("image exceeds the size limit")
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return DecodedImage{}, failure.New(failure.KindValidation, "imageData is not valid base64", err)
	}
	if len(data) == 0 {
		return DecodedImage{}, failure.Validation("imageData is empty")
	}
	if len(data) > limit {
		return DecodedImage{}, failure.Validation("image exceeds the size limit")
	}

	sniffed := http.DetectContentType(data)
	if _, ok := imageExt[sniffed]; ok || mimeType == "" {
		mimeType = sniffed
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return DecodedImage{}, failure.Validation("imageData is not an image")
	}
	return DecodedImage{Data: data, MimeType: mimeType}, nil
}
