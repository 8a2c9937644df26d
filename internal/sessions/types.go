package sessions

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid session input")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("session status does not allow this transition")
)

type Source string

const (
	SourceMessage Source = "message"
	SourceVoice   Source = "voice"
)

type Status string

const (
	StatusPendingReview  Status = "pending_review"
	StatusReviewPrompted Status = "review_prompted"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// ServiceSession records that a paid engagement for a gig appears to have concluded.
type ServiceSession struct {
	ID               uuid.UUID `json:"id"`
	GigID            string    `json:"gig_id"`
	ProviderID       string    `json:"provider_id"`
	CustomerID       string    `json:"customer_id"`
	CreatedAt        time.Time `json:"created_at"`
	Source           Source    `json:"source"`
	Status           Status    `json:"status"`
	CustomerPrompted bool      `json:"customer_prompted"`
	ProviderPrompted bool      `json:"provider_prompted"`
}

// Involves reports whether userID is one of the two participants.
func (s *ServiceSession) Involves(userID string) bool {
	return s.CustomerID == userID || s.ProviderID == userID
}

// MarkPrompted sets the prompted flag of whichever participant userID is.
// It returns false when userID is not a participant. Status is left alone.
func (s *ServiceSession) MarkPrompted(userID string) bool {
	ok := false
	if userID == s.CustomerID {
		s.CustomerPrompted = true
		ok = true
	}
	if userID == s.ProviderID {
		s.ProviderPrompted = true
		ok = true
	}
	return ok
}

// Participants returns the customer and provider ids.
func (s *ServiceSession) Participants() []string {
	if s.CustomerID == s.ProviderID {
		return []string{s.CustomerID}
	}
	return []string{s.CustomerID, s.ProviderID}
}

// IngestRequest is one chat message or transcript segment to scan for completion.
type IngestRequest struct {
	Text       string
	FromUserID string
	ToUserID   string
	GigID      string
	Source     Source
	// ProviderID names which participant is the provider. Empty means FromUserID.
	ProviderID string
}
