// Package identity resolves the fixed system accounts used as relay senders.
// The "safety advisor" identity is looked up once at startup and served from
// this registry, so no call site carries a hard-coded account id.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sniksnak-service/internal/models"
	"sniksnak-service/internal/repositories"
)

// ErrSystemIdentityUnresolved signals a configuration error: callers are
// expected to degrade rather than fail the request.
var ErrSystemIdentityUnresolved = errors.New("system identity not resolved")

// Registry holds resolved system identities.
type Registry struct {
	mu     sync.RWMutex
	system *models.Account
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// ResolveSystemAccount looks up the configured system account and caches it.
// Returns an error when the account is missing or not a system account; the
// caller decides whether that is fatal.
func (r *Registry) ResolveSystemAccount(ctx context.Context, accounts repositories.AccountRepository, username string) error {
	account, err := accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("resolve system account %q: %w", username, err)
	}
	if account.Role != models.RoleSystem {
		return fmt.Errorf("account %q has role %q, want %q", username, account.Role, models.RoleSystem)
	}

	r.mu.Lock()
	r.system = &account
	r.mu.Unlock()
	return nil
}

// SetSystemAccount stores a pre-resolved identity. Used by tests and by
// bootstrap code that just created the account.
func (r *Registry) SetSystemAccount(account models.Account) {
	r.mu.Lock()
	r.system = &account
	r.mu.Unlock()
}

// SystemAccount returns the resolved system identity.
func (r *Registry) SystemAccount() (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.system == nil {
		return models.Account{}, ErrSystemIdentityUnresolved
	}
	return *r.system, nil
}
