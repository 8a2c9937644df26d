package sessions

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative session collection. Every method is one atomic unit.
type Store interface {
	// CreateIfNoPending inserts s unless the gig already has a pending_review session,
	// in which case that session is returned with created == false.
	CreateIfNoPending(ctx context.Context, s *ServiceSession) (stored *ServiceSession, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*ServiceSession, error)
	MarkPrompted(ctx context.Context, id uuid.UUID, userID string) (*ServiceSession, error)
	ListForUser(ctx context.Context, userID string, status Status) ([]ServiceSession, error)
	// PromoteDue moves every pending_review session created at or before cutoff to
	// review_prompted and marks both participants prompted.
	PromoteDue(ctx context.Context, cutoff time.Time) ([]ServiceSession, error)
	Transition(ctx context.Context, id uuid.UUID, from, to Status) (*ServiceSession, error)
}

// MemoryStore keeps sessions in process. Pending sessions are indexed by gig so
// neither find-or-create nor promotion scans settled sessions.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     []*ServiceSession
	byID         map[uuid.UUID]*ServiceSession
	pendingByGig map[string]*ServiceSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:         make(map[uuid.UUID]*ServiceSession),
		pendingByGig: make(map[string]*ServiceSession),
	}
}

func (m *MemoryStore) CreateIfNoPending(_ context.Context, s *ServiceSession) (*ServiceSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pendingByGig[s.GigID]; ok {
		cp := *existing
		return &cp, false, nil
	}

	stored := *s
	m.sessions = append(m.sessions, &stored)
	m.byID[stored.ID] = &stored
	if stored.Status == StatusPendingReview {
		m.pendingByGig[stored.GigID] = &stored
	}
	cp := stored
	return &cp, true, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*ServiceSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) MarkPrompted(_ context.Context, id uuid.UUID, userID string) (*ServiceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.MarkPrompted(userID)
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) ListForUser(_ context.Context, userID string, status Status) ([]ServiceSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ServiceSession, 0)
	for _, s := range m.sessions {
		if s.Status == status && s.Involves(userID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *MemoryStore) PromoteDue(_ context.Context, cutoff time.Time) ([]ServiceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var promoted []ServiceSession
	for gig, s := range m.pendingByGig {
		if s.CreatedAt.After(cutoff) {
			continue
		}
		s.Status = StatusReviewPrompted
		for _, p := range s.Participants() {
			s.MarkPrompted(p)
		}
		delete(m.pendingByGig, gig)
		promoted = append(promoted, *s)
	}
	slices.SortFunc(promoted, func(a, b ServiceSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return promoted, nil
}

func (m *MemoryStore) Transition(_ context.Context, id uuid.UUID, from, to Status) (*ServiceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != from {
		return nil, ErrInvalidTransition
	}
	s.Status = to
	if from == StatusPendingReview {
		delete(m.pendingByGig, s.GigID)
	}
	cp := *s
	return &cp, nil
}
