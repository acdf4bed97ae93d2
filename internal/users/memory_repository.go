package users

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory Repository used by tests
// and local development. It mirrors the Postgres repository's error
// behavior, including the unique-email constraint.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(user *User) error {
	user.prepare()
	if err := user.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.email]; exists {
		return ErrUserExists
	}
	if user.id == "" {
		user.setID(uuid.NewString())
	}
	r.byID[user.id] = cloneUser(user)
	r.byEmail[user.email] = user.id
	return nil
}

func (r *MemoryRepository) GetByID(id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.byID[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *MemoryRepository) GetByEmail(email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryRepository) Update(user *User) error {
	user.prepare()
	if err := user.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.byID[user.id]
	if !exists {
		return ErrUserNotFound
	}
	if other, taken := r.byEmail[user.email]; taken && other != user.id {
		return ErrUserExists
	}
	delete(r.byEmail, existing.email)
	r.byID[user.id] = cloneUser(user)
	r.byEmail[user.email] = user.id
	return nil
}

func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.byID[id]
	if !exists {
		return ErrUserNotFound
	}
	delete(r.byEmail, user.email)
	delete(r.byID, id)
	return nil
}

func cloneUser(u *User) *User {
	clone := *u
	clone.groups = make([]Group, len(u.groups))
	copy(clone.groups, u.groups)
	return &clone
}
