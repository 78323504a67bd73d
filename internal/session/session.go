// Package session holds process-wide authentication state: the bearer
// credential and the current principal. Credential and principal are set
// together on login success and cleared together on logout; no observable
// state exposes one without the other.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/state"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// ProfileUpdate holds the mutable profile fields. Empty fields are omitted
// from the request.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// Store is the session store. It implements api.TokenSource so the
// transport reads the credential through it; only the store writes it.
type Store struct {
	mu     sync.RWMutex
	client *api.Client
	db     *gorm.DB
	log    zerolog.Logger

	token     string
	principal *Principal
	loading   bool
	lastErr   string
}

// NewStore creates a session store. db may be nil to disable persistence.
func NewStore(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// AttachClient binds the transport client used for login and profile calls.
// The client in turn reads its bearer token from this store.
func (s *Store) AttachClient(c *api.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = c
}

// Token returns the current bearer credential, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Principal returns a copy of the current principal, or nil when anonymous.
func (s *Store) Principal() *Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return nil
	}
	p := *s.principal
	return &p
}

// Authenticated reports whether a login has succeeded and not been cleared.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.principal != nil
}

// Loading reports whether a login call is pending.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// LastError returns the message from the most recent failed login, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

type loginResponse struct {
	User  Principal `json:"user"`
	Token string    `json:"token"`
}

// Login authenticates against the backend. On success the credential and
// principal are applied atomically; on failure the previous session state
// is left untouched and the error message is recorded. Concurrent calls
// are not deduplicated; the last settled call wins.
func (s *Store) Login(ctx context.Context, email, password string) (*Principal, error) {
	if err := validate.Struct(loginInput{Email: email, Password: password}); err != nil {
		return nil, &api.ValidationError{Msg: "a valid email and a password are required"}
	}

	s.mu.Lock()
	client := s.client
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()

	if client == nil {
		s.settleLoginFailure("no transport client attached")
		return nil, fmt.Errorf("session: no transport client attached")
	}

	var resp loginResponse
	err := client.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		msg := api.UserMessage(err, "login failed")
		s.settleLoginFailure(msg)
		return nil, fmt.Errorf("session: login: %w", err)
	}

	s.mu.Lock()
	s.loading = false
	s.token = resp.Token
	p := resp.User
	s.principal = &p
	s.lastErr = ""
	s.mu.Unlock()

	s.persist()
	result := resp.User
	return &result, nil
}

// settleLoginFailure records a failed login without touching the previous
// credential or principal.
func (s *Store) settleLoginFailure(msg string) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = msg
	s.mu.Unlock()
}

// Logout synchronously clears credential, principal, and error, and removes
// the persisted session. In-flight requests holding the old credential are
// not cancelled; subsequent requests simply omit it.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.principal = nil
	s.lastErr = ""
	s.mu.Unlock()

	if s.db != nil {
		if err := state.ClearSession(s.db); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear persisted session")
		}
	}
}

type profileResponse struct {
	Data    Principal `json:"data"`
	Message string    `json:"message"`
}

// UpdateProfile sends the profile-update call and, on success, overwrites
// the stored principal's mutable fields with the server-confirmed values.
// This is the only path by which principal fields change after login.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Principal, error) {
	if err := validate.Struct(upd); err != nil {
		return nil, &api.ValidationError{Msg: "invalid profile fields"}
	}

	s.mu.RLock()
	client := s.client
	current := s.principal
	s.mu.RUnlock()

	if client == nil {
		return nil, fmt.Errorf("session: no transport client attached")
	}
	if current == nil {
		return nil, fmt.Errorf("session: not authenticated")
	}

	var resp profileResponse
	path := fmt.Sprintf("/auth/update-profile/%d", current.ID)
	if err := client.Put(ctx, path, upd, &resp); err != nil {
		return nil, fmt.Errorf("session: update profile: %w", err)
	}

	s.mu.Lock()
	if s.principal != nil {
		s.principal.Name = resp.Data.Name
		s.principal.Email = resp.Data.Email
	}
	result := s.principal
	var out *Principal
	if result != nil {
		cp := *result
		out = &cp
	}
	s.mu.Unlock()

	s.persist()
	return out, nil
}

// Restore reloads a persisted session at startup. Tokens whose JWT exp
// claim has passed are discarded. Missing persistence is not an error.
func (s *Store) Restore() error {
	if s.db == nil {
		return nil
	}
	rec, err := state.LoadSession(s.db)
	if err != nil {
		return fmt.Errorf("session: restore: %w", err)
	}
	if rec == nil || rec.Token == "" {
		return nil
	}
	if tokenExpired(rec.Token) {
		s.log.Info().Msg("persisted session expired, logging out")
		if err := state.ClearSession(s.db); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear expired session")
		}
		return nil
	}

	var p Principal
	if err := json.Unmarshal([]byte(rec.Principal), &p); err != nil {
		return fmt.Errorf("session: restore principal: %w", err)
	}

	s.mu.Lock()
	s.token = rec.Token
	s.principal = &p
	s.mu.Unlock()
	return nil
}

// persist writes the current session to the state database.
func (s *Store) persist() {
	if s.db == nil {
		return
	}
	s.mu.RLock()
	token := s.token
	principal := s.principal
	s.mu.RUnlock()

	encoded, err := json.Marshal(principal)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode principal")
		return
	}
	if err := state.SaveSession(s.db, token, string(encoded)); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session")
	}
}

// tokenExpired reports whether the token is a JWT with an exp claim in the
// past. Opaque or claim-less tokens are never considered expired locally.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
