// ABOUTME: Access-token lifecycle management with single-flight refresh
// ABOUTME: Returns a usable token cheaply, refreshing once no matter how many callers ask
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrUnauthenticated means no usable access token is available. Remote
// mirroring is skipped; the planner keeps working locally.
var ErrUnauthenticated = errors.New("not signed in to google calendar")

// ErrRefreshFailed means a refresh attempt failed. It stays set until the
// next successful sign-in; remote steps are skipped in the meantime.
var ErrRefreshFailed = errors.New("access token refresh failed")

// refreshSkew refreshes slightly early so a token doesn't expire mid-call.
const refreshSkew = 30 * time.Second

// RefreshTransport exchanges a refresh token for a new token with the
// identity provider.
type RefreshTransport interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthRefreshTransport refreshes against Google using the OAuth config.
type OAuthRefreshTransport struct {
	Config *oauth2.Config
}

func (t *OAuthRefreshTransport) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := t.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return token, nil
}

// refreshCall is one in-flight refresh shared by all waiting callers.
type refreshCall struct {
	done chan struct{}
	err  error
}

// TokenManager owns the session's token state. It is the single source of
// truth consulted before every remote mutation; nothing else caches a
// token. Refresh is not idempotent against Google's refresh-token rotation,
// so concurrent callers share one in-flight refresh.
type TokenManager struct {
	mu        sync.Mutex
	token     *oauth2.Token
	lastErr   error
	inflight  *refreshCall
	transport RefreshTransport
	save      func(*oauth2.Token) error
	now       func() time.Time
}

// NewTokenManager creates a token manager. save, when non-nil, persists
// the token after sign-in and after every successful refresh.
func NewTokenManager(transport RefreshTransport, save func(*oauth2.Token) error) *TokenManager {
	return &TokenManager{
		transport: transport,
		save:      save,
		now:       time.Now,
	}
}

// SignIn fully replaces token state with a fresh consent grant and clears
// any sticky refresh error. No merge with prior state.
func (m *TokenManager) SignIn(token *oauth2.Token) error {
	m.mu.Lock()
	m.token = token
	m.lastErr = nil
	m.mu.Unlock()

	if m.save != nil {
		if err := m.save(token); err != nil {
			return fmt.Errorf("failed to persist token: %w", err)
		}
	}
	return nil
}

// SignOut destroys the session's token state.
func (m *TokenManager) SignOut() {
	m.mu.Lock()
	m.token = nil
	m.lastErr = nil
	m.mu.Unlock()
}

// Authenticated reports whether a session exists at all. It does not
// guarantee the access token is still valid.
func (m *TokenManager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != nil
}

// LastError returns the sticky refresh error, if any.
func (m *TokenManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// UsableToken returns a valid access token, refreshing it first if it has
// expired. Returns ErrUnauthenticated when there is no session, and an
// error wrapping ErrUnauthenticated when a refresh failed: callers must
// not attempt a remote call with the stale token that is kept in state.
func (m *TokenManager) UsableToken(ctx context.Context) (string, error) {
	m.mu.Lock()

	if m.token == nil {
		m.mu.Unlock()
		return "", ErrUnauthenticated
	}

	// Common cheap path: current token still valid, no network call.
	if m.token.AccessToken != "" && (m.token.Expiry.IsZero() || m.now().Before(m.token.Expiry.Add(-refreshSkew))) {
		token := m.token.AccessToken
		m.mu.Unlock()
		return token, nil
	}

	// A previous refresh failed; skip remote steps until re-sign-in.
	if m.lastErr != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, m.lastErr)
	}

	if m.token.RefreshToken == "" {
		m.lastErr = ErrRefreshFailed
		m.mu.Unlock()
		return "", fmt.Errorf("%w: no refresh token issued", ErrUnauthenticated)
	}

	// Join the in-flight refresh if one exists, otherwise start it.
	call := m.inflight
	if call == nil {
		call = &refreshCall{done: make(chan struct{})}
		m.inflight = call
		go m.refresh(call, m.token.RefreshToken)
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-call.done:
	}

	if call.err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, call.err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil || m.token.AccessToken == "" {
		return "", ErrUnauthenticated
	}
	return m.token.AccessToken, nil
}

// refresh performs the provider round-trip for one shared refresh call.
// The refresh is not cancelable: once dispatched, a late result is still
// applied unless the session was signed out in the meantime.
func (m *TokenManager) refresh(call *refreshCall, refreshToken string) {
	var token *oauth2.Token
	err := fmt.Errorf("no identity provider configured")
	if m.transport != nil {
		token, err = m.transport.Refresh(context.Background(), refreshToken)
	}

	m.mu.Lock()
	m.inflight = nil

	if err != nil {
		// Keep the stale access token in state so "had one, refresh
		// failed" stays distinguishable from "never had one".
		m.lastErr = ErrRefreshFailed
		call.err = err
		m.mu.Unlock()
		close(call.done)
		return
	}

	if m.token == nil {
		// Signed out while the refresh was in flight; discard the result.
		call.err = ErrUnauthenticated
		m.mu.Unlock()
		close(call.done)
		return
	}

	// Google may omit the refresh token on refresh; keep the old one.
	if token.RefreshToken == "" {
		token.RefreshToken = m.token.RefreshToken
	}
	m.token = token
	m.mu.Unlock()
	close(call.done)

	if m.save != nil {
		if err := m.save(token); err != nil {
			log.Printf("warning: failed to persist refreshed token: %v", err)
		}
	}
}
