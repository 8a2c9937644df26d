package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/metrics"
	"gigflow/internal/rules"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker turns conversational evidence of a finished gig into service sessions.
type Tracker struct {
	store  Store
	rules  *rules.Provider
	events events.Publisher
	logger *zap.SugaredLogger
	now    func() time.Time
}

type Option func(*Tracker)

// WithClock overrides the time source used to stamp new sessions.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store Store, p *rules.Provider, pub events.Publisher, logger *zap.SugaredLogger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		rules:  p,
		events: pub,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DetectCompletion reports the first configured completion phrase found in text.
func (t *Tracker) DetectCompletion(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, phrase := range t.rules.Current().CompletionPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// IngestText scans one message or transcript segment. When it signals completion
// and the gig has no pending session, a new pending_review session is opened.
// The returned bool is true only when a session was created.
func (t *Tracker) IngestText(ctx context.Context, req IngestRequest) (*ServiceSession, bool, error) {
	if strings.TrimSpace(req.GigID) == "" || strings.TrimSpace(req.FromUserID) == "" || strings.TrimSpace(req.ToUserID) == "" {
		return nil, false, fmt.Errorf("%w: gig id, sender id and recipient id are required", ErrInvalidInput)
	}
	if req.ProviderID != "" && req.ProviderID != req.FromUserID && req.ProviderID != req.ToUserID {
		return nil, false, fmt.Errorf("%w: provider %q is not a participant", ErrInvalidInput, req.ProviderID)
	}

	phrase, ok := t.DetectCompletion(req.Text)
	if !ok {
		return nil, false, nil
	}

	providerID, customerID := req.FromUserID, req.ToUserID
	if req.ProviderID != "" && req.ProviderID == req.ToUserID {
		providerID, customerID = req.ToUserID, req.FromUserID
	}
	source := req.Source
	if source == "" {
		source = SourceMessage
	}

	candidate := &ServiceSession{
		ID:         uuid.New(),
		GigID:      req.GigID,
		ProviderID: providerID,
		CustomerID: customerID,
		CreatedAt:  t.now(),
		Source:     source,
		Status:     StatusPendingReview,
	}

	s, created, err := t.store.CreateIfNoPending(ctx, candidate)
	if err != nil {
		return nil, false, err
	}
	if !created {
		t.logger.Debugw("completion phrase ignored, gig already pending review",
			"gig_id", req.GigID, "session_id", s.ID, "phrase", phrase)
		return s, false, nil
	}

	metrics.SessionsCreated.WithLabelValues(string(source)).Inc()
	t.logger.Infow("service session opened",
		"session_id", s.ID, "gig_id", s.GigID, "source", s.Source, "phrase", phrase)
	t.events.Publish(ctx, events.Event{Topic: events.TopicSessionCreated, Payload: *s})
	return s, true, nil
}

// MarkPrompted records that userID has been shown the review prompt. It never
// changes status. An unknown session is logged and ignored.
func (t *Tracker) MarkPrompted(ctx context.Context, sessionID uuid.UUID, userID string) error {
	s, err := t.store.MarkPrompted(ctx, sessionID, userID)
	if errors.Is(err, ErrNotFound) {
		t.logger.Warnw("mark prompted on unknown session", "session_id", sessionID, "user_id", userID)
		return nil
	}
	if err != nil {
		return err
	}
	if !s.Involves(userID) {
		t.logger.Warnw("mark prompted by non-participant", "session_id", sessionID, "user_id", userID)
	}
	return nil
}

// PendingForUser lists pending_review sessions the user takes part in.
func (t *Tracker) PendingForUser(ctx context.Context, userID string) ([]ServiceSession, error) {
	return t.store.ListForUser(ctx, userID, StatusPendingReview)
}

// PromptedForUser lists review_prompted sessions the user takes part in.
func (t *Tracker) PromptedForUser(ctx context.Context, userID string) ([]ServiceSession, error) {
	return t.store.ListForUser(ctx, userID, StatusReviewPrompted)
}

func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	return t.store.Get(ctx, id)
}

// PromoteDue flips every pending session created at or before cutoff to
// review_prompted, marking both participants prompted in the same unit.
func (t *Tracker) PromoteDue(ctx context.Context, cutoff time.Time) ([]ServiceSession, error) {
	return t.store.PromoteDue(ctx, cutoff)
}

// Complete closes a prompted session, typically once a review is in.
func (t *Tracker) Complete(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	return t.store.Transition(ctx, id, StatusReviewPrompted, StatusCompleted)
}

// Cancel withdraws a session that has not been prompted yet.
func (t *Tracker) Cancel(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	return t.store.Transition(ctx, id, StatusPendingReview, StatusCancelled)
}
