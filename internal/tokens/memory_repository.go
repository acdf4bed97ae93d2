package tokens

import (
	"sync"
	"time"
)

// MemorySessionRepository is a mutex-guarded in-memory SessionRepository
// for tests and local development.
type MemorySessionRepository struct {
	mu    sync.RWMutex
	ttl   time.Duration
	byKey map[string]*AuthToken
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl:   ttl,
		byKey: make(map[string]*AuthToken),
	}
}

func (r *MemorySessionRepository) Save(token *AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.Pending() {
		token.prepare()
		r.byKey[token.key] = restoreAuthToken(token.key, token.user, token.issued, token.touched)
		return nil
	}
	stored, exists := r.byKey[token.key]
	if !exists {
		return ErrTokenNotFound
	}
	stored.touched = token.touched
	return nil
}

func (r *MemorySessionRepository) GetByKey(key string) (*AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, exists := r.byKey[key]
	if !exists || time.Since(token.touched) >= r.ttl {
		return nil, ErrTokenNotFound
	}
	return restoreAuthToken(token.key, token.user, token.issued, token.touched), nil
}

func (r *MemorySessionRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[key]; !exists {
		return ErrTokenNotFound
	}
	delete(r.byKey, key)
	return nil
}

func (r *MemorySessionRepository) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, token := range r.byKey {
		if token.user.ID == userID {
			delete(r.byKey, key)
		}
	}
	return nil
}

func (r *MemorySessionRepository) DeleteExpired() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, token := range r.byKey {
		if time.Since(token.touched) >= r.ttl {
			delete(r.byKey, key)
			purged++
		}
	}
	return purged, nil
}

// Count reports the number of stored (not necessarily live) tokens.
func (r *MemorySessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// MemoryConfirmationRepository is a mutex-guarded in-memory
// ConfirmationRepository enforcing the one-token-per-user constraint.
type MemoryConfirmationRepository struct {
	mu     sync.RWMutex
	ttl    time.Duration
	byKey  map[string]*ConfirmToken
	byUser map[string]string
}

func NewMemoryConfirmationRepository(ttl time.Duration) *MemoryConfirmationRepository {
	return &MemoryConfirmationRepository{
		ttl:    ttl,
		byKey:  make(map[string]*ConfirmToken),
		byUser: make(map[string]string),
	}
}

func (r *MemoryConfirmationRepository) Save(token *ConfirmToken) error {
	if !token.Pending() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUser[token.userID]; exists {
		return ErrTokenExists
	}
	token.prepare()
	r.byKey[token.key] = restoreConfirmToken(token.key, token.userID, token.issued)
	r.byUser[token.userID] = token.key
	return nil
}

func (r *MemoryConfirmationRepository) GetByKey(key string) (*ConfirmToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, exists := r.byKey[key]
	if !exists || time.Since(token.issued) >= r.ttl {
		return nil, ErrTokenNotFound
	}
	return restoreConfirmToken(token.key, token.userID, token.issued), nil
}

func (r *MemoryConfirmationRepository) Delete(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.byKey[key]
	if !exists {
		return ErrTokenNotFound
	}
	delete(r.byUser, token.userID)
	delete(r.byKey, key)
	return nil
}

func (r *MemoryConfirmationRepository) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, exists := r.byUser[userID]; exists {
		delete(r.byKey, key)
		delete(r.byUser, userID)
	}
	return nil
}

func (r *MemoryConfirmationRepository) DeleteExpired() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, token := range r.byKey {
		if time.Since(token.issued) >= r.ttl {
			delete(r.byKey, key)
			delete(r.byUser, token.userID)
			purged++
		}
	}
	return purged, nil
}

// Count reports the number of stored (not necessarily live) tokens.
func (r *MemoryConfirmationRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
