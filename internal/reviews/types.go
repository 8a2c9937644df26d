package reviews

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrInvalidInput  = errors.New("invalid review")
)

type Role string

const (
	RoleProvider Role = "provider"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleProvider || r == RoleCustomer
}

// AppReview is immutable once submitted.
type AppReview struct {
	ID           uuid.UUID `json:"id"`
	GigID        string    `json:"gig_id"`
	ReviewerID   string    `json:"reviewer_id"`
	RevieweeID   string    `json:"reviewee_id"`
	RevieweeRole Role      `json:"reviewee_role"`
	Rating       int       `json:"rating"` // 1-5
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

type SubmitRequest struct {
	GigID        string `json:"gig_id" validate:"required,max=128"`
	ReviewerID   string `json:"reviewer_id" validate:"required,max=128"`
	RevieweeID   string `json:"reviewee_id" validate:"required,max=128"`
	RevieweeRole Role   `json:"reviewee_role" validate:"required,oneof=provider customer"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Comment      string `json:"comment" validate:"max=2000"`
}

// Stats summarises the ratings a reviewee received in one role.
type Stats struct {
	Count   int     `json:"total_reviews"`
	Average float64 `json:"average"`
}
