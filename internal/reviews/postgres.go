package reviews

import (
	"context"
	"fmt"

	"gigflow/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) Create(ctx context.Context, review *AppReview) error {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO app_reviews (id, gig_id, reviewer_id, reviewee_id, reviewee_role, rating, comment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.Exec(ctx, query,
		review.ID,
		review.GigID,
		review.ReviewerID,
		review.RevieweeID,
		string(review.RevieweeRole),
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// ListByGig keeps insertion order via the seq identity column.
func (r *Repository) ListByGig(ctx context.Context, gigID string) ([]AppReview, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, gig_id, reviewer_id, reviewee_id, reviewee_role, rating, comment, created_at
        FROM app_reviews
        WHERE gig_id = $1
        ORDER BY seq ASC
    `
	rows, err := r.db.Query(ctx, query, gigID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	return collectReviews(rows)
}

func (r *Repository) ListByReviewee(ctx context.Context, revieweeID string, role *Role) ([]AppReview, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	var roleFilter string
	if role != nil {
		roleFilter = string(*role)
	}

	query := `
        SELECT id, gig_id, reviewer_id, reviewee_id, reviewee_role, rating, comment, created_at
        FROM app_reviews
        WHERE reviewee_id = $1 AND ($2 = '' OR reviewee_role = $2)
        ORDER BY seq ASC
    `
	rows, err := r.db.Query(ctx, query, revieweeID, roleFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	return collectReviews(rows)
}

func (r *Repository) Stats(ctx context.Context, revieweeID string, role Role) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT
            COUNT(id) AS total_reviews,
            COALESCE(AVG(rating), 0)::float8 AS average_rating
        FROM app_reviews
        WHERE reviewee_id = $1 AND reviewee_role = $2
    `
	var st Stats
	err := r.db.QueryRow(ctx, query, revieweeID, string(role)).Scan(&st.Count, &st.Average)
	return st, err
}

func collectReviews(rows pgx.Rows) ([]AppReview, error) {
	defer rows.Close()

	out := make([]AppReview, 0)
	for rows.Next() {
		var rv AppReview
		var role string
		if err := rows.Scan(&rv.ID, &rv.GigID, &rv.ReviewerID, &rv.RevieweeID, &role, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		rv.RevieweeRole = Role(role)
		out = append(out, rv)
	}
	return out, rows.Err()
}
