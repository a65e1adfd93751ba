// Package auth orchestrates the client-side credential lifecycle: logging in
// against the backend, deriving identity from the bearer token, and keeping
// the persisted token/profile pair consistent.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/SushanParlapally/trawells-authcore/internal/audit"
	"github.com/SushanParlapally/trawells-authcore/internal/credstore"
	"github.com/SushanParlapally/trawells-authcore/internal/obs"
	"github.com/SushanParlapally/trawells-authcore/internal/token"
)

const defaultHTTPTimeout = 15 * time.Second

// Service derives authentication state from the credential store. It is the
// only writer of credentials besides explicit purges; reads are safe from any
// goroutine.
type Service struct {
	store    *credstore.Store
	client   *http.Client
	loginURL string
	limiter  *rate.Limiter
	now      func() time.Time
	log      *zap.Logger
}

// Option configures Service behavior.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client used for the login call.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLoginURL sets the backend login endpoint.
func WithLoginURL(url string) Option {
	return func(s *Service) { s.loginURL = strings.TrimSpace(url) }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLoginRate throttles login attempts client-side.
func WithLoginRate(perMinute int, burst int) Option {
	return func(s *Service) {
		if perMinute > 0 && burst > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New constructs the auth service over the given credential store.
func New(store *credstore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: credential store is required")
	}
	s := &Service{
		store:  store,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		now:    time.Now,
		log:    obs.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the entire success body: the backend returns no user
// object and no refresh token, so all identity comes from the token itself.
type loginResponse struct {
	Token string `json:"token"`
}

// Login posts the credentials to the backend, validates the returned token,
// synthesizes a profile from its claims, and persists both. Any failure
// purges whatever half was written and wraps ErrLoginFailed.
func (s *Service) Login(ctx context.Context, email, password string) (credstore.UserProfile, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return credstore.UserProfile{}, "", fmt.Errorf("%w: email and password are required", ErrLoginFailed)
	}
	if s.loginURL == "" {
		return credstore.UserProfile{}, "", fmt.Errorf("%w: login endpoint not configured", ErrLoginFailed)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		obs.RecordLogin(obs.ResultFailure)
		return credstore.UserProfile{}, "", fmt.Errorf("%w: %s", ErrLoginFailed, ErrLoginThrottled)
	}

	tok, err := s.postLogin(ctx, email, password)
	if err != nil {
		return credstore.UserProfile{}, "", s.failLogin(err)
	}

	claims, err := token.Decode(tok)
	if err != nil {
		return credstore.UserProfile{}, "", s.failLogin(fmt.Errorf("decode token: %w", err))
	}

	profile := profileFromClaims(claims)
	if err := s.store.SetToken(tok); err != nil {
		return credstore.UserProfile{}, "", s.failLogin(err)
	}
	if err := s.store.SetUserProfile(profile); err != nil {
		return credstore.UserProfile{}, "", s.failLogin(err)
	}

	obs.RecordLogin(obs.ResultSuccess)
	s.log.Info("login succeeded",
		zap.Int64("user_id", claims.UserID),
		zap.String("role", claims.RoleName),
	)
	_ = audit.LogEvent(ctx, "login", map[string]any{
		"user_id": claims.UserID,
		"role":    claims.RoleName,
	})
	return profile, tok, nil
}

// failLogin purges any partially written credential and wraps the reason.
func (s *Service) failLogin(reason error) error {
	s.store.ClearAll()
	obs.RecordLogin(obs.ResultFailure)
	s.log.Warn("login failed", zap.Error(reason))
	return fmt.Errorf("%w: %s", ErrLoginFailed, reason)
}

func (s *Service) postLogin(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call login endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("login endpoint returned %d", resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return out.Token, nil
}

// Logout clears the credential pair. There is no revocation endpoint, so
// this is purely local, best-effort, and never fails past the caller.
func (s *Service) Logout(ctx context.Context) {
	s.store.ClearAll()
	obs.RecordLogout()
	s.log.Info("logged out")
	_ = audit.LogEvent(ctx, "logout", nil)
}

// IsAuthenticated reports whether a live token exists. Undecodable tokens
// count as expired.
func (s *Service) IsAuthenticated() bool {
	tok, ok := s.store.Token()
	if !ok {
		return false
	}
	return !token.IsExpired(tok, s.now().Unix())
}

// Role returns the user's role, preferring live token claims and falling
// back to the cached profile so a logged-out transition can still render.
// Empty when neither source is available.
func (s *Service) Role() string {
	if claims, ok := s.liveClaims(); ok {
		return claims.RoleName
	}
	if profile, ok := s.store.UserProfile(); ok {
		return profile.RoleName
	}
	return ""
}

// UserID returns the user's id with the same source preference as Role.
func (s *Service) UserID() (int64, bool) {
	if claims, ok := s.liveClaims(); ok {
		return claims.UserID, true
	}
	if profile, ok := s.store.UserProfile(); ok {
		return profile.UserID, true
	}
	return 0, false
}

// MinutesUntilExpiry exposes the remaining token lifetime for the session
// scheduler. token.MinutesUnknown when no token is stored or it cannot be
// decoded.
func (s *Service) MinutesUntilExpiry() int {
	tok, ok := s.store.Token()
	if !ok {
		return token.MinutesUnknown
	}
	return token.MinutesUntilExpiry(tok, s.now().Unix())
}

// IsStateConsistent reports whether the stored pair is complete, live, and
// refers to the same user.
func (s *Service) IsStateConsistent() bool {
	claims, ok := s.liveClaims()
	if !ok {
		return false
	}
	profile, ok := s.store.UserProfile()
	if !ok {
		return false
	}
	return profile.UserID == claims.UserID
}

// ValidateAndCleanState returns whether the stored state was already valid.
// Invalid state, for any reason, purges both halves. Idempotent: a second
// call finds the same clean state and leaves storage untouched beyond the
// no-op purge.
func (s *Service) ValidateAndCleanState() bool {
	if s.IsStateConsistent() {
		return true
	}
	s.store.ClearAll()
	obs.RecordStateRecovery()
	s.log.Warn("credential state invalid, purged")
	return false
}

// RecoverState unconditionally purges credentials. Hard failure boundaries
// call it when they detect corruption and want a clean login redirect.
func (s *Service) RecoverState() {
	s.store.ClearAll()
	obs.RecordStateRecovery()
	s.log.Warn("credential state force-cleared")
	_ = audit.LogEvent(context.Background(), "state_recovered", nil)
}

// liveClaims decodes the stored token when it exists and has not expired.
func (s *Service) liveClaims() (token.Claims, bool) {
	tok, ok := s.store.Token()
	if !ok {
		return token.Claims{}, false
	}
	now := s.now().Unix()
	claims, err := token.Decode(tok)
	if err != nil || claims.ExpiresAt <= now {
		return token.Claims{}, false
	}
	return claims, true
}

func profileFromClaims(claims token.Claims) credstore.UserProfile {
	p := credstore.UserProfile{
		UserID:       claims.UserID,
		Email:        claims.SubjectEmail,
		FirstName:    claims.FirstName,
		LastName:     claims.LastName,
		DepartmentID: claims.DepartmentID,
		RoleName:     claims.RoleName,
		RoleID:       claims.RoleID,
	}
	if claims.HasManager {
		p.ManagerID = claims.ManagerID
	}
	return p
}
