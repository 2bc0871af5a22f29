package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, user_id, image_url, image_format, model, prompt_version,
  extracted_json, result_json, intent_json, timing_json, feedback_json, created_at`

// Create inserts an analysis record
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO label_analyses
  (id, user_id, verdict, score, risk_level, product_type, fallback, image_url, image_format,
   model, prompt_version, extracted_json, result_json, intent_json, timing_json, feedback_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17);
`
	extracted, err := toJSON(a.ExtractedText)
	if err != nil {
		return err
	}
	result, err := toJSON(a.Result)
	if err != nil {
		return err
	}
	intent, err := toJSON(a.Intent)
	if err != nil {
		return err
	}
	timing, err := toJSON(a.ProcessingTime)
	if err != nil {
		return err
	}
	feedback, err := toJSON(a.Feedback)
	if err != nil {
		return err
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.UserID), string(a.Result.Verdict), a.Result.Score,
		stringOrDash(string(a.Result.RiskLevel)), stringOrDash(a.Result.ProductType), a.Result.Fallback,
		stringOrDash(a.Image.URL), stringOrDash(a.Image.Format),
		stringOrDash(a.Model), stringOrDash(a.PromptVersion),
		extracted, result, intent, timing, feedback, createdAt.UTC(),
	)
	return err
}

// Get by ID + owner
func (r *AnalysisRepository) Get(ctx context.Context, userID string, id domain.AnalysisID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM label_analyses WHERE user_id=$1 AND id=$2 LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// ListByUser returns a page ordered by created_at desc plus the total count
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]*domain.Analysis, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM label_analyses WHERE user_id=$1;`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + analysisColumns + ` FROM label_analyses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// SetFeedback overwrites the feedback of the owner's analysis
func (r *AnalysisRepository) SetFeedback(ctx context.Context, userID string, id domain.AnalysisID, fb domain.Feedback) error {
	raw, err := toJSON(fb)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE label_analyses SET feedback_json=$1 WHERE user_id=$2 AND id=$3;`, raw, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var (
		a                                 domain.Analysis
		imageURL, imageFormat             string
		model, promptVersion              string
		extracted, result, intent, timing sql.NullString
		feedback                          sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &imageURL, &imageFormat, &model, &promptVersion,
		&extracted, &result, &intent, &timing, &feedback, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Image = domain.ImageRef{URL: dashToEmpty(imageURL), Format: dashToEmpty(imageFormat)}
	a.Model = dashToEmpty(model)
	a.PromptVersion = dashToEmpty(promptVersion)
	for _, col := range []struct {
		raw sql.NullString
		dst any
	}{
		{extracted, &a.ExtractedText},
		{result, &a.Result},
		{intent, &a.Intent},
		{timing, &a.ProcessingTime},
	} {
		if err := fromJSON(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	if feedback.Valid {
		var fb domain.Feedback
		if err := fromJSON(feedback, &fb); err != nil {
			return nil, err
		}
		a.Feedback = &fb
	}
	return &a, nil
}
