package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create inserts the conversation and its seed messages in one transaction
func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	cctx, err := toJSON(c.Context)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `
INSERT INTO conversations (id, user_id, analysis_id, status, context_json, created_at, last_message_at)
VALUES (?,?,?,?,?,?,?);`
	if _, err := tx.ExecContext(ctx, q, c.ID, c.UserID, c.AnalysisID, stringOrDash(string(c.Status)),
		cctx, c.CreatedAt.UTC(), c.LastMessageAt.UTC()); err != nil {
		return err
	}
	if err := insertMessages(ctx, tx, c.ID, c.Messages); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads the conversation with its full message list
func (r *ConversationRepository) Get(ctx context.Context, userID string, id domain.ConversationID) (*domain.Conversation, error) {
	const q = `
SELECT id, user_id, analysis_id, status, context_json, created_at, last_message_at
FROM conversations WHERE user_id=? AND id=? LIMIT 1;`
	var (
		c    domain.Conversation
		cctx sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, userID, id).Scan(
		&c.ID, &c.UserID, &c.AnalysisID, &c.Status, &cctx, &c.CreatedAt, &c.LastMessageAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := fromJSON(cctx, &c.Context); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT role, content, reasoning_json, metadata_json, created_at
FROM conversation_messages WHERE conversation_id=? ORDER BY id ASC;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m                   domain.Message
			reasoning, metadata sql.NullString
		)
		if err := rows.Scan(&m.Role, &m.Content, &reasoning, &metadata, &m.Timestamp); err != nil {
			return nil, err
		}
		if reasoning.Valid {
			m.Reasoning = &domain.Reasoning{}
			if err := fromJSON(reasoning, m.Reasoning); err != nil {
				return nil, err
			}
		}
		if metadata.Valid {
			m.Metadata = &domain.MessageMetadata{}
			if err := fromJSON(metadata, m.Metadata); err != nil {
				return nil, err
			}
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, rows.Err()
}

// ListByUser returns summaries ordered by last_message_at desc
func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]*domain.Summary, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id=?;`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT c.id, c.analysis_id, c.status, c.context_json, c.created_at, c.last_message_at,
       (SELECT COUNT(*) FROM conversation_messages m WHERE m.conversation_id = c.id)
FROM conversations c
WHERE c.user_id=?
ORDER BY c.last_message_at DESC, c.id DESC
LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Summary
	for rows.Next() {
		var (
			s    domain.Summary
			cctx sql.NullString
			c    domain.Context
		)
		if err := rows.Scan(&s.ID, &s.AnalysisID, &s.Status, &cctx, &s.CreatedAt, &s.LastMessageAt, &s.MessageCount); err != nil {
			return nil, 0, err
		}
		if err := fromJSON(cctx, &c); err != nil {
			return nil, 0, err
		}
		s.ProductName = c.ProductName
		out = append(out, &s)
	}
	return out, total, rows.Err()
}

// AppendTurn inserts the messages and overwrites the tracked context in one
// transaction, after locking the owner's row
func (r *ConversationRepository) AppendTurn(ctx context.Context, userID string, id domain.ConversationID, c domain.Context, lastMessageAt time.Time, msgs ...domain.Message) error {
	raw, err := toJSON(c)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE user_id=? AND id=? FOR UPDATE;`, userID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := insertMessages(ctx, tx, id, msgs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET context_json=?, last_message_at=? WHERE id=?;`, raw, lastMessageAt.UTC(), id); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMessages(ctx context.Context, tx *sql.Tx, id domain.ConversationID, msgs []domain.Message) error {
	const q = `
INSERT INTO conversation_messages (conversation_id, role, content, reasoning_json, metadata_json, created_at)
VALUES (?,?,?,?,?,?);`
	for _, m := range msgs {
		reasoning, err := toJSON(m.Reasoning)
		if err != nil {
			return err
		}
		metadata, err := toJSON(m.Metadata)
		if err != nil {
			return err
		}
		ts := m.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.ExecContext(ctx, q, id, string(m.Role), m.Content, reasoning, metadata, ts.UTC()); err != nil {
			return err
		}
	}
	return nil
}
