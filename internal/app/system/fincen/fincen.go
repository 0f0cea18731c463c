// internal/app/system/fincen/fincen.go
//
// Package fincen keeps an OAuth2 client-credentials access token for the
// FinCEN API. The token is cached in memory and refreshed shortly before it
// expires; concurrent callers share one in-flight refresh.
package fincen

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/membersverify/internal/app/system/apierr"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// RefreshSkew is how long before expiry a cached token is replaced.
	RefreshSkew = 60 * time.Second

	// Used when the token endpoint omits expires_in.
	defaultLifetime = 5 * time.Minute

	fetchTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when no client credentials are set.
var ErrNotConfigured = errors.New("fincen client credentials are not configured")

// Config holds the client-credentials settings.
type Config struct {
	ClientID     string
	ClientSecret string
	Scope        string
	TokenURL     string
	HTTPClient   *http.Client
}

// Configured reports whether enough settings are present to fetch tokens.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

// Fetcher obtains a fresh token from the authorization server.
type Fetcher interface {
	Fetch(ctx context.Context) (*oauth2.Token, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*oauth2.Token, error)

func (f FetcherFunc) Fetch(ctx context.Context) (*oauth2.Token, error) { return f(ctx) }

// NewClientCredentials returns a Fetcher posting
// grant_type=client_credentials with HTTP Basic client authentication.
func NewClientCredentials(cfg Config) Fetcher {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if cfg.Scope != "" {
		cc.Scopes = []string{cfg.Scope}
	}
	client := cfg.HTTPClient
	return FetcherFunc(func(ctx context.Context) (*oauth2.Token, error) {
		if client != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		}
		return cc.Token(ctx)
	})
}

// Observer is notified of refresh outcomes. It may be nil.
type Observer interface {
	TokenRefreshed(ok bool)
}

// TokenSource caches one access token.
type TokenSource struct {
	fetcher  Fetcher
	log      *zap.Logger
	observer Observer
	now      func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenSource wraps fetcher with caching. A nil fetcher yields a source
// whose Token always fails with ErrNotConfigured.
func NewTokenSource(fetcher Fetcher, logger *zap.Logger, obs Observer) *TokenSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{fetcher: fetcher, log: logger, observer: obs, now: time.Now}
}

func (s *TokenSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || !s.now().Before(s.expiresAt.Add(-RefreshSkew)) {
		return "", false
	}
	return s.token, true
}

// Token returns a valid access token, refreshing it when none is cached or
// the cached one expires within RefreshSkew.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if s.fetcher == nil {
		return "", ErrNotConfigured
	}
	if tok, ok := s.cached(); ok {
		return tok, nil
	}

	ch := s.group.DoChan("token", func() (any, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		return s.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh runs detached from the first caller's cancellation so waiters
// sharing the flight are not failed by one caller going away.
func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
	defer cancel()

	start := s.now()
	t, err := s.fetcher.Fetch(fctx)
	if err == nil && (t == nil || t.AccessToken == "") {
		err = errors.New("token endpoint returned no access_token")
	}
	if err != nil {
		s.notify(false)
		s.log.Warn("fincen token refresh failed", zap.Error(err))
		return "", apierr.Upstream("fetch fincen token", err)
	}

	exp := t.Expiry
	if exp.IsZero() {
		exp = start.Add(defaultLifetime)
	}

	s.mu.Lock()
	s.token = t.AccessToken
	s.expiresAt = exp
	s.mu.Unlock()

	s.notify(true)
	s.log.Info("fincen token refreshed",
		zap.Time("expires_at", exp),
		zap.Duration("took", s.now().Sub(start)))
	return t.AccessToken, nil
}

func (s *TokenSource) notify(ok bool) {
	if s.observer != nil {
		s.observer.TokenRefreshed(ok)
	}
}

// Status describes the cache without exposing the token.
type Status struct {
	Configured bool       `json:"configured"`
	Cached     bool       `json:"cached"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	ExpiresIn  int64      `json:"expiresInSeconds,omitempty"`
}

// Status reports whether a usable token is cached and when it expires.
func (s *TokenSource) Status() Status {
	st := Status{Configured: s.fetcher != nil}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return st
	}
	exp := s.expiresAt
	st.ExpiresAt = &exp
	st.Cached = s.now().Before(exp.Add(-RefreshSkew))
	if d := exp.Sub(s.now()); d > 0 {
		st.ExpiresIn = int64(d / time.Second)
	}
	return st
}
