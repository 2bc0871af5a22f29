package ocr

import "context"

// Result is the text read from a label image.
type Result struct {
	Text string `json:"text"`
	// Confidence is 0-100.
	Confidence float64 `json:"confidence"`
}

// Engine is the OCR collaborator.
type Engine interface {
	Extract(ctx context.Context, image []byte, mimeType string) (Result, error)
}
