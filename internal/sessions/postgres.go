package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigflow/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository stores sessions in PostgreSQL. Per-gig uniqueness of pending sessions
// is enforced by the partial unique index service_sessions_one_pending_per_gig.
type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

const sessionColumns = `id, gig_id, provider_id, customer_id, created_at, source, status, customer_prompted, provider_prompted`

func scanSession(row pgx.Row) (*ServiceSession, error) {
	var s ServiceSession
	var source, status string
	err := row.Scan(
		&s.ID,
		&s.GigID,
		&s.ProviderID,
		&s.CustomerID,
		&s.CreatedAt,
		&source,
		&status,
		&s.CustomerPrompted,
		&s.ProviderPrompted,
	)
	if err != nil {
		return nil, err
	}
	s.Source = Source(source)
	s.Status = Status(status)
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]ServiceSession, error) {
	defer rows.Close()

	out := make([]ServiceSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// createAttempts bounds the insert/select loop when the pending row it collided
// with is promoted or cancelled before it can be read back.
const createAttempts = 3

func (r *Repository) CreateIfNoPending(ctx context.Context, s *ServiceSession) (*ServiceSession, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	for range createAttempts {
		stored, created, err := r.insertOrLoadPending(ctx, s)
		if !errors.Is(err, errPendingVanished) {
			return stored, created, err
		}
	}
	return nil, false, fmt.Errorf("failed to create session for gig %s after %d attempts", s.GigID, createAttempts)
}

var errPendingVanished = errors.New("pending session no longer pending")

func (r *Repository) insertOrLoadPending(ctx context.Context, s *ServiceSession) (*ServiceSession, bool, error) {
	query := `
        INSERT INTO service_sessions (` + sessionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (gig_id) WHERE status = 'pending_review' DO NOTHING
        RETURNING ` + sessionColumns

	created, err := scanSession(r.db.QueryRow(ctx, query,
		s.ID,
		s.GigID,
		s.ProviderID,
		s.CustomerID,
		s.CreatedAt,
		string(s.Source),
		string(s.Status),
		s.CustomerPrompted,
		s.ProviderPrompted,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert session: %w", err)
	}

	existing, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM service_sessions WHERE gig_id = $1 AND status = 'pending_review'`,
		s.GigID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errPendingVanished
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load pending session for gig %s: %w", s.GigID, err)
	}
	return existing, false, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM service_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *Repository) MarkPrompted(ctx context.Context, id uuid.UUID, userID string) (*ServiceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        UPDATE service_sessions
        SET customer_prompted = customer_prompted OR customer_id = $2,
            provider_prompted = provider_prompted OR provider_id = $2
        WHERE id = $1
        RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (r *Repository) ListForUser(ctx context.Context, userID string, status Status) ([]ServiceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT ` + sessionColumns + `
        FROM service_sessions
        WHERE status = $2 AND (customer_id = $1 OR provider_id = $1)
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *Repository) PromoteDue(ctx context.Context, cutoff time.Time) ([]ServiceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        UPDATE service_sessions
        SET status = 'review_prompted',
            customer_prompted = TRUE,
            provider_prompted = TRUE
        WHERE status = 'pending_review' AND created_at <= $1
        RETURNING ` + sessionColumns

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to promote sessions: %w", err)
	}
	return collectSessions(rows)
}

func (r *Repository) Transition(ctx context.Context, id uuid.UUID, from, to Status) (*ServiceSession, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        UPDATE service_sessions
        SET status = $3
        WHERE id = $1 AND status = $2
        RETURNING ` + sessionColumns

	s, err := scanSession(r.db.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update session status: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM service_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInvalidTransition
}
