package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/application"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ai"
	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/ocr"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/prompt"
	"github.com/bryanwahyu/ingredient-copilot/internal/infra/ai/response"
)

const (
	DefaultMinTextLength = 5
	defaultHistoryLimit  = 10
	maxHistoryLimit      = 100

	msgUnreadableImage = "Could not extract readable text from image. Please ensure the image is clear and well-lit."
	msgTextTooShort    = "Ingredient text is too short to analyze. Please provide the full ingredient list."
)

// Config tunes the analyze pipeline.
type Config struct {
	MinTextLength int
	MaxImageBytes int
	Risk          RiskThresholds
	// Generate carries temperature and token limit for the main analysis call.
	Generate ai.GenerateOptions
}

// Service implements the analysis use-cases.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Repo     domain.Repository
	Images   domain.ImageStore // optional
	OCR      ocr.Engine
	AI       ai.Client
	Parser   *response.Parser
	Context  *UserContextAssembler
	Intent   *IntentInferencer
	Behavior *BehaviorRecorder // optional
	Clock    application.Clock
	Metrics  *Metrics
	Config   Config
	Logger   *zap.Logger
}

//
// ==== USE CASES ====
//

// AnalyzeCommand carries either a base64 image or ingredient text.
type AnalyzeCommand struct {
	UserID    string
	ImageData string
	Text      string
}

// AnalyzeResult is the response view of a completed analysis.
type AnalyzeResult struct {
	AnalysisID     domain.AnalysisID     `json:"analysisId"`
	ExtractedText  string                `json:"extractedText"`
	OCRConfidence  float64               `json:"ocrConfidence"`
	Insights       domain.Result         `json:"insights"`
	InferredIntent domain.Intent         `json:"inferredIntent"`
	ProcessingTime domain.ProcessingTime `json:"processingTime"`
}

// Analyze jalankan pipeline: OCR -> normalize -> context -> intent -> AI -> parse -> classify -> simpan
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	if cmd.ImageData == "" && cmd.Text == "" {
		return AnalyzeResult{}, failure.Validation("imageData or text is required")
	}
	log := s.logger().With(zap.String("user_id", cmd.UserID))
	start := s.now()

	var (
		img     *DecodedImage
		raw     = cmd.Text
		ocrConf = 100.0
		ocrMS   int64
	)
	if cmd.ImageData != "" {
		decoded, err := DecodeImage(cmd.ImageData, s.Config.MaxImageBytes)
		if err != nil {
			return AnalyzeResult{}, err
		}
		img = &decoded

		ocrStart := time.Now()
		res, err := s.OCR.Extract(ctx, decoded.Data, decoded.MimeType)
		s.Metrics.ObserveStage("ocr", err, time.Since(ocrStart))
		ocrMS = time.Since(ocrStart).Milliseconds()
		if err != nil {
			if failure.KindOf(err) != failure.KindOCR {
				err = failure.OCR(err)
			}
			return AnalyzeResult{}, err
		}
		raw, ocrConf = res.Text, res.Confidence
		log.Debug("ocr completed", zap.Int64("ms", ocrMS), zap.Float64("confidence", ocrConf))
	}

	cleaned := Normalize(raw)
	if len([]rune(cleaned)) < s.minTextLength() {
		if img != nil {
			return AnalyzeResult{}, failure.InsufficientText(msgUnreadableImage)
		}
		return AnalyzeResult{}, failure.InsufficientText(msgTextTooShort)
	}

	uc := s.Context.Assemble(ctx, cmd.UserID)

	intentStart := time.Now()
	intent := s.Intent.Infer(ctx, IntentCue(cleaned), uc)
	s.Metrics.ObserveStage("intent", nil, time.Since(intentStart))

	opts := s.Config.Generate
	opts.Purpose = "analysis"
	aiStart := time.Now()
	reply, err := s.AI.Generate(ctx, prompt.GetAnalysisPrompt(cleaned, uc, &intent), opts)
	s.Metrics.ObserveStage("ai", err, time.Since(aiStart))
	aiMS := time.Since(aiStart).Milliseconds()
	if err != nil {
		log.Error("analysis ai call failed", zap.Error(err))
		if failure.KindOf(err) != failure.KindAIService {
			err = failure.AIService(err)
		}
		return AnalyzeResult{}, err
	}

	result, perr := s.Parser.AnalysisOrFallback(reply)
	if perr != nil {
		s.Metrics.IncFallback()
		log.Warn("analysis reply unparsable, using fallback", zap.Error(perr))
	}
	s.enrich(&result, cleaned, intent)

	id := domain.AnalysisID(uuid.New().String())
	rec := &domain.Analysis{
		ID:     id,
		UserID: cmd.UserID,
		ExtractedText: domain.ExtractedText{
			Raw:              raw,
			Cleaned:          cleaned,
			Confidence:       ocrConf,
			DetectedLanguage: "en",
		},
		Result: result,
		Intent: intent,
		ProcessingTime: domain.ProcessingTime{
			OCRMS:   ocrMS,
			AIMS:    aiMS,
			TotalMS: ocrMS + aiMS,
		},
		Model:         s.AI.Model(),
		PromptVersion: prompt.Version,
		CreatedAt:     start,
	}
	if img != nil {
		rec.Image = s.archiveImage(ctx, log, cmd.UserID, id, *img)
	}

	persistStart := time.Now()
	err = s.Repo.Create(ctx, rec)
	s.Metrics.ObserveStage("persist", err, time.Since(persistStart))
	if err != nil {
		return AnalyzeResult{}, failure.Persistence("save analysis", err)
	}
	s.Metrics.IncCompleted(string(result.Verdict), string(result.RiskLevel))

	// fire-and-forget, gak boleh gagalin request
	if s.Behavior != nil {
		s.Behavior.Enqueue(cmd.UserID, users.SlotForHour(start.Hour()))
	}

	log.Info("analysis completed",
		zap.String("analysis_id", string(id)),
		zap.String("verdict", string(result.Verdict)),
		zap.Int("score", result.Score),
		zap.Bool("fallback", result.Fallback))

	return AnalyzeResult{
		AnalysisID:     id,
		ExtractedText:  cleaned,
		OCRConfidence:  ocrConf,
		Insights:       result,
		InferredIntent: intent,
		ProcessingTime: rec.ProcessingTime,
	}, nil
}

func (s *Service) enrich(r *domain.Result, cleaned string, intent domain.Intent) {
	r.ProductType = ClassifyProduct(cleaned)
	r.RiskLevel = RiskClassifier{Thresholds: s.Config.Risk}.Classify(*r)
	r.IntendedUse = intent.PrimaryGoal
	r.ConsumptionFrequency = "occasional"
	r.Confidence = Confidence(*r)
}

// archiveImage is best effort; the analysis is still saved without an image URL.
func (s *Service) archiveImage(ctx context.Context, log *zap.Logger, userID string, id domain.AnalysisID, img DecodedImage) domain.ImageRef {
	ref := domain.ImageRef{Format: img.Format()}
	if s.Images == nil {
		return ref
	}
	owner := userID
	if owner == "" {
		owner = "anonymous"
	}
	key := fmt.Sprintf("%s/%s.%s", owner, id, img.Ext())
	url, err := s.Images.PutImage(ctx, key, img.Data, img.MimeType)
	if err != nil {
		log.Warn("archive label image failed", zap.String("key", key), zap.Error(err))
		return ref
	}
	ref.URL = url
	return ref
}

// History ambil riwayat analisis user, terbaru dulu
func (s *Service) History(ctx context.Context, userID string, page, limit int) (domain.PaginatedResult, error) {
	page, limit = Paging(page, limit, defaultHistoryLimit)
	items, total, err := s.Repo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return domain.PaginatedResult{}, failure.Persistence("list analyses", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

// Get ambil 1 analisis milik user
func (s *Service) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := s.Repo.Get(ctx, userID, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && a == nil) {
		return nil, failure.NotFound("analysis")
	}
	if err != nil {
		return nil, failure.Persistence("get analysis", err)
	}
	return a, nil
}

// FeedbackCommand is the user's rating of one analysis.
type FeedbackCommand struct {
	Helpful  *bool
	Rating   int
	Comments string
}

// SubmitFeedback simpan feedback ke analisis milik user
func (s *Service) SubmitFeedback(ctx context.Context, userID string, id domain.AnalysisID, cmd FeedbackCommand) (domain.Feedback, error) {
	if cmd.Helpful == nil {
		return domain.Feedback{}, failure.Validation("helpful is required")
	}
	if cmd.Rating != 0 && (cmd.Rating < 1 || cmd.Rating > 5) {
		return domain.Feedback{}, failure.Validation("rating must be between 1 and 5")
	}
	fb := domain.Feedback{
		Helpful:     *cmd.Helpful,
		Rating:      cmd.Rating,
		Comments:    cmd.Comments,
		SubmittedAt: s.now(),
	}
	err := s.Repo.SetFeedback(ctx, userID, id, fb)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Feedback{}, failure.NotFound("analysis")
	}
	if err != nil {
		return domain.Feedback{}, failure.Persistence("save feedback", err)
	}
	return fb, nil
}

// Paging applies defaults and the upper bound to page/limit query values.
func Paging(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return page, limit
}

func (s *Service) minTextLength() int {
	if s.Config.MinTextLength > 0 {
		return s.Config.MinTextLength
	}
	return DefaultMinTextLength
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
