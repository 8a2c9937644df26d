package moderation

import (
	"context"
	"fmt"
	"sync"

	"gigflow/internal/infra/dbx"
)

type AuditLog interface {
	Record(ctx context.Context, rec AuditRecord) error
	ListBySender(ctx context.Context, senderID string) ([]AuditRecord, error)
}

// MemoryAuditLog is an append-only in-process audit log.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	records []AuditRecord
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Record(_ context.Context, rec AuditRecord) error {
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return nil
}

// ListBySender returns records in insertion order. An empty senderID lists everything.
func (l *MemoryAuditLog) ListBySender(_ context.Context, senderID string) ([]AuditRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]AuditRecord, 0)
	for _, rec := range l.records {
		if senderID == "" || rec.SenderID == senderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type AuditRepository struct {
	db dbx.Querier
}

func NewAuditRepository(q dbx.Querier) *AuditRepository {
	return &AuditRepository{db: q}
}

func (r *AuditRepository) Record(ctx context.Context, rec AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO moderation_audit
            (id, sender_id, content_type, severity, categories, action, confidence, flagged_content, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.SenderID,
		string(rec.ContentType),
		rec.Severity.String(),
		rec.Categories,
		string(rec.Action),
		rec.Confidence,
		rec.FlaggedContent,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListBySender(ctx context.Context, senderID string) ([]AuditRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, sender_id, content_type, severity, categories, action, confidence, flagged_content, created_at
        FROM moderation_audit
        WHERE $1 = '' OR sender_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	out := make([]AuditRecord, 0)
	for rows.Next() {
		var (
			rec      AuditRecord
			ct       string
			severity string
			action   string
		)
		if err := rows.Scan(&rec.ID, &rec.SenderID, &ct, &severity, &rec.Categories, &action, &rec.Confidence, &rec.FlaggedContent, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if err := rec.Severity.UnmarshalText([]byte(severity)); err != nil {
			return nil, err
		}
		rec.ContentType = ContentType(ct)
		rec.Action = Action(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}
