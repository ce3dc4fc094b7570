// Package session owns the authentication token and the signed-in
// user's profile. There is exactly one source of truth for "am I logged
// in": presence of a user in the Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/microwins/internal/api"
	"github.com/nhle/microwins/internal/credential"
	"github.com/nhle/microwins/internal/model"
	"github.com/nhle/microwins/internal/store"
)

const tokenKey = "token"

// AuthError is surfaced when a credential exchange is rejected. Reason
// carries the server-provided message when one was available.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// Vault persists the bearer token across process restarts.
type Vault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Gateway is the slice of the API client the session needs.
type Gateway interface {
	Login(ctx context.Context, email, password string) (*api.TokenGrant, error)
	Signup(ctx context.Context, email, password, fullName string) (*api.TokenGrant, error)
	VerifyGoogleToken(ctx context.Context, accessToken string) (*api.TokenGrant, error)
	Me(ctx context.Context) (*model.User, error)
}

// PreferenceStore is the slice of the local store the session needs:
// clearing session-scoped flags on logout.
type PreferenceStore interface {
	DeletePreference(ctx context.Context, key string) error
}

// Store holds the current session and keeps the persisted token in
// step with it. It is the vault's only writer; concurrent readers (the
// gateway's token func) always observe the latest value.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *model.User

	vault Vault
	prefs PreferenceStore
	gw    Gateway
}

// New creates a session store backed by the given vault and preference
// store. The gateway is attached separately because the API client
// needs the store's Token func to exist first.
func New(vault Vault, prefs PreferenceStore) *Store {
	return &Store{vault: vault, prefs: prefs}
}

// AttachGateway wires the API client used for credential exchanges.
func (s *Store) AttachGateway(gw Gateway) {
	s.gw = gw
}

// Token returns the current bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in profile, or nil when signed out.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignedIn reports whether a session is present.
func (s *Store) SignedIn() bool {
	return s.User() != nil
}

// Login exchanges email/password credentials for a session. On failure
// the session is left unchanged and an AuthError is returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	grant, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	return s.adopt(grant)
}

// Signup registers a new account and signs into it.
func (s *Store) Signup(ctx context.Context, email, password, fullName string) error {
	grant, err := s.gw.Signup(ctx, email, password, fullName)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	return s.adopt(grant)
}

// CompleteOAuth exchanges a third-party access token for a session.
func (s *Store) CompleteOAuth(ctx context.Context, providerAccessToken string) error {
	grant, err := s.gw.VerifyGoogleToken(ctx, providerAccessToken)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	return s.adopt(grant)
}

// adopt persists the granted token and installs the session. The token
// is persisted first so the vault never lags a live session.
func (s *Store) adopt(grant *api.TokenGrant) error {
	if err := s.vault.Set(tokenKey, grant.AccessToken); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = grant.AccessToken
	user := grant.User
	s.user = &user
	return nil
}

// Restore attempts to resume a session from the persisted token. It is
// run once at startup. An absent, expired, or invalid token is an
// expected condition, not a failure: the store simply ends up signed
// out and the stale token is discarded. Restore never returns an error
// for those paths.
func (s *Store) Restore(ctx context.Context) error {
	token, err := s.vault.Get(tokenKey)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			// Unreadable vault is indistinguishable from no token.
			return nil
		}
		return nil
	}

	// The profile fetch must carry the candidate token.
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.gw.Me(ctx)
	if err != nil {
		_ = s.vault.Delete(tokenKey)
		s.mu.Lock()
		s.token = ""
		s.user = nil
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return nil
}

// ApplyProfile merges server-confirmed profile fields into the session
// without a round trip. No-op when signed out.
func (s *Store) ApplyProfile(patch model.ProfilePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	patch.Apply(s.user)
}

// Logout clears the persisted token and any session-scoped local flags,
// and resets the session to empty.
func (s *Store) Logout(ctx context.Context) {
	_ = s.vault.Delete(tokenKey)
	if s.prefs != nil {
		_ = s.prefs.DeletePreference(ctx, store.PrefCondition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}
