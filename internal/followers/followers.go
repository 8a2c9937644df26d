package followers

import (
	"context"
	"fmt"
	"sync"

	"gigflow/internal/infra/dbx"
)

type Store interface {
	Follow(ctx context.Context, followerID, userID string) error
	Unfollow(ctx context.Context, followerID, userID string) error
	// Following returns the set of user ids followerID follows.
	Following(ctx context.Context, followerID string) (map[string]struct{}, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) Follow(ctx context.Context, followerID, userID string) error {
	query := `
           INSERT INTO followers (user_id, follower_id) VALUES ($1, $2)
           ON CONFLICT DO NOTHING
   `

	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	if _, err := r.db.Exec(ctx, query, userID, followerID); err != nil {
		return fmt.Errorf("failed to follow user: %w", err)
	}
	return nil
}

func (r *Repository) Unfollow(ctx context.Context, followerID, userID string) error {
	query := `
	   DELETE FROM followers
	   WHERE user_id = $1 AND follower_id = $2
	`

	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, userID, followerID)
	return err
}

func (r *Repository) Following(ctx context.Context, followerID string) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT user_id FROM followers WHERE follower_id = $1`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// MemoryStore backs the follow graph when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	following map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{following: make(map[string]map[string]struct{})}
}

func (m *MemoryStore) Follow(_ context.Context, followerID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.following[followerID]
	if !ok {
		set = make(map[string]struct{})
		m.following[followerID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (m *MemoryStore) Unfollow(_ context.Context, followerID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.following[followerID], userID)
	return nil
}

func (m *MemoryStore) Following(_ context.Context, followerID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.following[followerID]))
	for id := range m.following[followerID] {
		out[id] = struct{}{}
	}
	return out, nil
}
