package pushtokens

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gigflow/internal/infra/dbx"
)

type Store interface {
	AddOrUpdatePushToken(ctx context.Context, userID string, token string, deviceInfo json.RawMessage) error
	RemovePushToken(ctx context.Context, userID string, token string) error
	RemoveTokensByTokenList(ctx context.Context, tokens []string) error
	GetTokensByUserIDs(ctx context.Context, userIDs []string) (map[string][]string, error)
	PruneStaleTokens(ctx context.Context, olderThan time.Duration) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

// AddOrUpdatePushToken upserts token + device info, updates last_updated
func (r *Repository) AddOrUpdatePushToken(ctx context.Context, userID string, token string, deviceInfo json.RawMessage) error {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	q := `
	INSERT INTO user_push_tokens (user_id, expo_push_token, device_info, last_updated)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, expo_push_token)
	DO UPDATE SET device_info = EXCLUDED.device_info, last_updated = NOW();
	`

	_, err := r.db.Exec(ctx, q, userID, token, deviceInfo)
	return err
}

func (r *Repository) RemovePushToken(ctx context.Context, userID string, token string) error {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	q := `DELETE FROM user_push_tokens WHERE user_id = $1 AND expo_push_token = $2`
	_, err := r.db.Exec(ctx, q, userID, token)
	return err
}

// RemoveTokensByTokenList deletes tokens Expo reported as no longer registered.
func (r *Repository) RemoveTokensByTokenList(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	q := `DELETE FROM user_push_tokens WHERE expo_push_token = ANY($1)`
	_, err := r.db.Exec(ctx, q, tokens)
	return err
}

func (r *Repository) GetTokensByUserIDs(ctx context.Context, userIDs []string) (map[string][]string, error) {
	result := make(map[string][]string)
	if len(userIDs) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	q := `SELECT user_id, expo_push_token FROM user_push_tokens WHERE user_id = ANY($1)`
	rows, err := r.db.Query(ctx, q, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uid, token string
	for rows.Next() {
		if err := rows.Scan(&uid, &token); err != nil {
			return nil, err
		}
		result[uid] = append(result[uid], token)
	}
	return result, rows.Err()
}

func (r *Repository) PruneStaleTokens(ctx context.Context, olderThan time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, dbx.QueryTimeoutDuration)
	defer cancel()

	interval := fmt.Sprintf("%d seconds", int64(olderThan.Seconds()))
	q := `DELETE FROM user_push_tokens WHERE last_updated < NOW() - $1::interval`
	_, err := r.db.Exec(ctx, q, interval)
	return err
}

type memoryToken struct {
	deviceInfo  json.RawMessage
	lastUpdated time.Time
}

// MemoryStore keeps tokens in process, keyed by user then token.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]map[string]memoryToken
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]map[string]memoryToken), now: time.Now}
}

func (m *MemoryStore) AddOrUpdatePushToken(_ context.Context, userID string, token string, deviceInfo json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[userID] == nil {
		m.tokens[userID] = make(map[string]memoryToken)
	}
	m.tokens[userID][token] = memoryToken{deviceInfo: deviceInfo, lastUpdated: m.now()}
	return nil
}

func (m *MemoryStore) RemovePushToken(_ context.Context, userID string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens[userID], token)
	return nil
}

func (m *MemoryStore) RemoveTokensByTokenList(_ context.Context, tokens []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.tokens {
		for _, t := range tokens {
			delete(set, t)
		}
	}
	return nil
}

func (m *MemoryStore) GetTokensByUserIDs(_ context.Context, userIDs []string) (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]string)
	for _, uid := range userIDs {
		for t := range m.tokens[uid] {
			result[uid] = append(result[uid], t)
		}
	}
	return result, nil
}

func (m *MemoryStore) PruneStaleTokens(_ context.Context, olderThan time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-olderThan)
	for _, set := range m.tokens {
		for t, info := range set {
			if info.lastUpdated.Before(cutoff) {
				delete(set, t)
			}
		}
	}
	return nil
}
