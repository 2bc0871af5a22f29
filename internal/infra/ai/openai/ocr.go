package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ocr"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
)

const ocrInstruction = `Read the ingredient list printed on this food label image.
Transcribe it exactly as printed, keeping commas and parentheses.
Respond with only a JSON object: {"text": "the ingredient list", "confidence": 0-100}`

// VisionOCR reads label text with a vision-capable chat model.
type VisionOCR struct {
	client *Client
	parser *response.Parser
}

func NewVisionOCR(client *Client, parser *response.Parser) *VisionOCR {
	if parser == nil {
		parser = response.NewParser(false, client.logger)
	}
	return &VisionOCR{client: client, parser: parser}
}

type ocrPayload struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Extract returns the transcribed text. A reply without the JSON envelope is
// taken as plain text with zero confidence. Errors are failure.Error of KindOCR.
func (o *VisionOCR) Extract(ctx context.Context, image []byte, mimeType string) (ocr.Result, error) {
	if len(image) == 0 {
		return ocr.Result{}, failure.OCR(errEmptyImage)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	ctx, cancel := context.WithTimeout(ctx, o.client.timeout)
	defer cancel()

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	req := openai.ChatCompletionRequest{
		Model: o.client.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: ocrInstruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailHigh,
				}},
			},
		}},
	}
	o.client.applySampling(&req, aiOCROptions)

	start := time.Now()
	resp, err := o.client.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return ocr.Result{}, failure.OCR(classify(err))
	}
	if len(resp.Choices) == 0 {
		return ocr.Result{}, failure.OCR(ai.ErrEmptyResponse)
	}
	content := resp.Choices[0].Message.Content

	var out ocrPayload
	if err := o.parser.Decode(content, &out); err != nil {
		out = ocrPayload{Text: response.StripFences(content)}
	}
	out.Confidence = min(max(out.Confidence, 0), 100)

	o.client.logger.Debug("ocr done",
		zap.Int("chars", len(out.Text)),
		zap.Float64("confidence", out.Confidence),
		zap.Duration("elapsed", time.Since(start)))
	return ocr.Result{Text: strings.TrimSpace(out.Text), Confidence: out.Confidence}, nil
}

var aiOCROptions = ai.GenerateOptions{Temperature: 0, MaxTokens: 1024, Purpose: "ocr"}

var errEmptyImage = errors.New("no image content")
