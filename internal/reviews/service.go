package reviews

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service accepts review submissions and answers rating queries.
type Service struct {
	store    Store
	events   events.Publisher
	logger   *zap.SugaredLogger
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, pub events.Publisher, logger *zap.SugaredLogger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   pub,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a review. Ratings outside 1..5 are rejected, never clamped.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*AppReview, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	review := &AppReview{
		ID:           uuid.New(),
		GigID:        req.GigID,
		ReviewerID:   req.ReviewerID,
		RevieweeID:   req.RevieweeID,
		RevieweeRole: req.RevieweeRole,
		Rating:       req.Rating,
		Comment:      req.Comment,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, review); err != nil {
		return nil, err
	}

	metrics.ReviewsSubmitted.WithLabelValues(string(review.RevieweeRole)).Inc()
	s.logger.Infow("review submitted",
		"review_id", review.ID, "gig_id", review.GigID, "reviewee_id", review.RevieweeID, "rating", review.Rating)
	s.events.Publish(ctx, events.Event{Topic: events.TopicReviewSubmitted, UserID: review.RevieweeID, Payload: *review})
	return review, nil
}

// AverageRatingFor returns the mean rating, or 0 when there are no reviews.
func (s *Service) AverageRatingFor(ctx context.Context, revieweeID string, role Role) (float64, error) {
	st, err := s.store.Stats(ctx, revieweeID, role)
	if err != nil {
		return 0, err
	}
	return st.Average, nil
}

func (s *Service) Summary(ctx context.Context, revieweeID string, role Role) (Stats, error) {
	return s.store.Stats(ctx, revieweeID, role)
}

// ReviewsForGig returns reviews in submission order.
func (s *Service) ReviewsForGig(ctx context.Context, gigID string) ([]AppReview, error) {
	return s.store.ListByGig(ctx, gigID)
}

// ReviewsForProvider returns reviews of providerID acting as provider, in submission order.
func (s *Service) ReviewsForProvider(ctx context.Context, providerID string) ([]AppReview, error) {
	role := RoleProvider
	return s.store.ListByReviewee(ctx, providerID, &role)
}

// ReviewsForReviewee returns reviews of revieweeID in any role when role is nil.
func (s *Service) ReviewsForReviewee(ctx context.Context, revieweeID string, role *Role) ([]AppReview, error) {
	return s.store.ListByReviewee(ctx, revieweeID, role)
}

// Prioritize orders reviews written by connections first, newest first within
// each group. Equal keys keep their input order. The input is not modified.
func Prioritize(reviews []AppReview, connections map[string]struct{}) []AppReview {
	out := slices.Clone(reviews)
	slices.SortStableFunc(out, func(a, b AppReview) int {
		_, ac := connections[a.ReviewerID]
		_, bc := connections[b.ReviewerID]
		if ac != bc {
			if ac {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
