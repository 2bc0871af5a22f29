package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/users"
)

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT id, name, preferences_json, frequent_categories_json, common_concerns_json,
       scan_morning, scan_afternoon, scan_evening, scan_night, created_at, updated_at
FROM app_users WHERE id=$1 LIMIT 1;`
	var (
		u                           domain.User
		prefs, categories, concerns sql.NullString
	)
	p := &u.BehaviorProfile.ScanPatterns
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.Name, &prefs, &categories, &concerns,
		&p.Morning, &p.Afternoon, &p.Evening, &p.Night, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Name = dashToEmpty(u.Name)
	if err := fromJSON(prefs, &u.Preferences); err != nil {
		return nil, err
	}
	if err := fromJSON(categories, &u.BehaviorProfile.FrequentCategories); err != nil {
		return nil, err
	}
	if err := fromJSON(concerns, &u.BehaviorProfile.CommonConcerns); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertPreferences creates the user row on first write
func (r *UserRepository) UpsertPreferences(ctx context.Context, id string, prefs domain.Preferences) (*domain.User, error) {
	raw, err := toJSON(prefs)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	const q = `
INSERT INTO app_users (id, preferences_json, created_at, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET preferences_json = EXCLUDED.preferences_json, updated_at = EXCLUDED.updated_at;`
	if _, err := r.db.ExecContext(ctx, q, id, raw, now, now); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// IncrementScanSlot adds one to the slot counter in a single statement
func (r *UserRepository) IncrementScanSlot(ctx context.Context, id string, slot domain.TimeSlot) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	q := fmt.Sprintf(`
INSERT INTO app_users (id, %[1]s, created_at, updated_at)
VALUES ($1, 1, $2, $3)
ON CONFLICT (id) DO UPDATE SET %[1]s = app_users.%[1]s + 1, updated_at = EXCLUDED.updated_at;`, col)
	_, err = r.db.ExecContext(ctx, q, id, now, now)
	return err
}
