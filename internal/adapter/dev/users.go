// Package dev holds in-process implementations of the external ports for
// local runs and examples. Production hosts replace these with real account
// storage, password hashing, and mail delivery.
package dev

import (
	"context"
	"sync"

	"github.com/community-soap/user-service/internal/core/domain"
	"github.com/community-soap/user-service/internal/core/port"
	"github.com/community-soap/user-service/internal/repository"
)

// UserRepository keeps accounts in memory, keyed by id and email.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[int64]domain.User
	byEmail map[string]int64
}

// NewUserRepository constructs an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]domain.User),
		byEmail: make(map[string]int64),
	}
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(_ context.Context, userID int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	userCopy := user
	return &userCopy, nil
}

// FindByEmail returns the user with the given email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.byID[id]
	return &user, nil
}

// ExistsByEmail reports whether an account holds the email.
func (r *UserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[email]
	return ok, nil
}

// Save inserts or replaces the user record.
func (r *UserRepository) Save(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
