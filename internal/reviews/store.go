package reviews

import (
	"context"
	"sync"
)

type Store interface {
	Create(ctx context.Context, r *AppReview) error
	ListByGig(ctx context.Context, gigID string) ([]AppReview, error)
	// ListByReviewee filters by role too when role is non-nil.
	ListByReviewee(ctx context.Context, revieweeID string, role *Role) ([]AppReview, error)
	Stats(ctx context.Context, revieweeID string, role Role) (Stats, error)
}

// MemoryStore keeps reviews in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	reviews []AppReview
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(_ context.Context, r *AppReview) error {
	m.mu.Lock()
	m.reviews = append(m.reviews, *r)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListByGig(_ context.Context, gigID string) ([]AppReview, error) {
	return m.filter(func(r *AppReview) bool { return r.GigID == gigID }), nil
}

func (m *MemoryStore) ListByReviewee(_ context.Context, revieweeID string, role *Role) ([]AppReview, error) {
	return m.filter(func(r *AppReview) bool {
		return r.RevieweeID == revieweeID && (role == nil || r.RevieweeRole == *role)
	}), nil
}

func (m *MemoryStore) Stats(_ context.Context, revieweeID string, role Role) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	sum := 0
	for i := range m.reviews {
		r := &m.reviews[i]
		if r.RevieweeID == revieweeID && r.RevieweeRole == role {
			st.Count++
			sum += r.Rating
		}
	}
	if st.Count > 0 {
		st.Average = float64(sum) / float64(st.Count)
	}
	return st, nil
}

func (m *MemoryStore) filter(keep func(*AppReview) bool) []AppReview {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]AppReview, 0)
	for i := range m.reviews {
		if keep(&m.reviews[i]) {
			out = append(out, m.reviews[i])
		}
	}
	return out
}
