package oauth2

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	goauth "golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"mentor-agenda/internal/config"
	"mentor-agenda/internal/domain/entity"
	"mentor-agenda/internal/domain/repository"
)

// AuthorizedClient is a per-request handle on a company's current bearer
// token. It is never cached across requests.
type AuthorizedClient struct {
	CompanyID  string
	Token      *goauth.Token
	HTTPClient *http.Client
}

// TokenManager hands out authorized clients and owns every token refresh
type TokenManager interface {
	// GetAuthorizedClient loads the stored token and refreshes it first when
	// it expires within the configured window
	GetAuthorizedClient(ctx context.Context, companyID string) (*AuthorizedClient, error)

	// ForceRenew refreshes unconditionally; used after a 401 from the provider
	ForceRenew(ctx context.Context, companyID string) (*AuthorizedClient, error)

	// AuthCodeURL builds the Google consent URL for the company's OAuth client
	AuthCodeURL(ctx context.Context, companyID, state string) (string, error)

	// ExchangeCode completes the first consent and stores the token set
	ExchangeCode(ctx context.Context, companyID, code string) error
}

type tokenManager struct {
	config     *config.Config
	repo       repository.CredentialRepository
	logger     *zap.Logger
	httpClient *http.Client
	locks      *keyedMutex
	now        func() time.Time
}

func NewTokenManager(cfg *config.Config, repo repository.CredentialRepository, logger *zap.Logger) TokenManager {
	return &tokenManager{
		config: cfg,
		repo:   repo,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Google.Timeout,
		},
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

func (m *tokenManager) GetAuthorizedClient(ctx context.Context, companyID string) (*AuthorizedClient, error) {
	cred, err := m.load(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if !cred.NeedsRefresh(m.now(), m.config.OAuth.RefreshWindow) {
		return m.clientFor(ctx, cred), nil
	}

	unlock := m.locks.Lock(companyID)
	defer unlock()

	// Another request may have refreshed while we waited for the lock
	cred, err = m.load(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !cred.NeedsRefresh(m.now(), m.config.OAuth.RefreshWindow) {
		m.logger.Debug("Token already refreshed by a concurrent request",
			zap.String("company_id", companyID),
		)
		return m.clientFor(ctx, cred), nil
	}

	return m.refresh(ctx, cred)
}

func (m *tokenManager) ForceRenew(ctx context.Context, companyID string) (*AuthorizedClient, error) {
	unlock := m.locks.Lock(companyID)
	defer unlock()

	cred, err := m.load(ctx, companyID)
	if err != nil {
		return nil, err
	}

	return m.refresh(ctx, cred)
}

func (m *tokenManager) AuthCodeURL(ctx context.Context, companyID, state string) (string, error) {
	cred, err := m.repo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("company %s: %w", companyID, entity.ErrCredentialsNotFound)
	}

	return m.oauthConfig(cred).AuthCodeURL(state, goauth.AccessTypeOffline, goauth.ApprovalForce), nil
}

func (m *tokenManager) ExchangeCode(ctx context.Context, companyID, code string) error {
	if code == "" {
		return fmt.Errorf("authorization code is required")
	}

	unlock := m.locks.Lock(companyID)
	defer unlock()

	cred, err := m.repo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return err
	}
	if cred == nil {
		return fmt.Errorf("company %s: %w", companyID, entity.ErrCredentialsNotFound)
	}

	m.logger.Info("Exchanging authorization code for tokens",
		zap.String("company_id", companyID),
	)

	tok, err := m.oauthConfig(cred).Exchange(m.tokenContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	if err := m.repo.UpdateTokens(ctx, companyID, tokenSetFrom(tok)); err != nil {
		return fmt.Errorf("failed to store tokens: %w", err)
	}

	m.logger.Info("Token stored for company",
		zap.String("company_id", companyID),
		zap.Bool("has_refresh_token", tok.RefreshToken != ""),
		zap.Time("expiry", tok.Expiry),
	)
	return nil
}

// refresh must be called with the company lock held
func (m *tokenManager) refresh(ctx context.Context, cred *entity.CompanyCredential) (*AuthorizedClient, error) {
	if cred.RefreshToken == "" {
		m.logger.Warn("No refresh token stored, re-authentication required",
			zap.String("company_id", cred.CompanyID),
		)
		return nil, fmt.Errorf("company %s has no refresh token: %w", cred.CompanyID, entity.ErrReauthenticationRequired)
	}

	m.logger.Info("Refreshing access token",
		zap.String("company_id", cred.CompanyID),
		zap.Time("expiry", cred.Expiry()),
	)

	// An empty access token makes the token source go straight to the refresh grant
	src := m.oauthConfig(cred).TokenSource(m.tokenContext(ctx), &goauth.Token{
		RefreshToken: cred.RefreshToken,
	})
	tok, err := src.Token()
	if err != nil {
		m.logger.Error("Error refreshing access token",
			zap.String("company_id", cred.CompanyID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: refresh for company %s failed: %v", entity.ErrReauthenticationRequired, cred.CompanyID, err)
	}

	tokens := tokenSetFrom(tok)
	if err := m.repo.UpdateTokens(ctx, cred.CompanyID, tokens); err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	merged := *cred
	merged.AccessToken = tokens.AccessToken
	merged.ExpiryEpochMillis = tokens.ExpiryEpochMillis
	if tokens.RefreshToken != "" {
		merged.RefreshToken = tokens.RefreshToken
	}
	if tokens.TokenType != "" {
		merged.TokenType = tokens.TokenType
	}
	if tokens.Scope != "" {
		merged.Scope = tokens.Scope
	}

	m.logger.Info("Access token refreshed successfully",
		zap.String("company_id", cred.CompanyID),
		zap.Time("expiry", merged.Expiry()),
		zap.Bool("refresh_token_rotated", tok.RefreshToken != "" && tok.RefreshToken != cred.RefreshToken),
	)

	return m.clientFor(ctx, &merged), nil
}

func (m *tokenManager) load(ctx context.Context, companyID string) (*entity.CompanyCredential, error) {
	cred, err := m.repo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if cred == nil {
		return nil, fmt.Errorf("company %s: %w", companyID, entity.ErrCredentialsNotFound)
	}
	if !cred.HasToken() {
		return nil, fmt.Errorf("company %s: %w", companyID, entity.ErrNotAuthenticated)
	}
	return cred, nil
}

// clientFor wraps the token in a static source so the library never
// refreshes behind the lock's back.
func (m *tokenManager) clientFor(ctx context.Context, cred *entity.CompanyCredential) *AuthorizedClient {
	tok := &goauth.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry(),
	}
	return &AuthorizedClient{
		CompanyID:  cred.CompanyID,
		Token:      tok,
		HTTPClient: goauth.NewClient(m.tokenContext(ctx), goauth.StaticTokenSource(tok)),
	}
}

func (m *tokenManager) oauthConfig(cred *entity.CompanyCredential) *goauth.Config {
	endpoint := google.Endpoint
	if m.config.Google.AuthURL != "" {
		endpoint.AuthURL = m.config.Google.AuthURL
	}
	if m.config.Google.TokenURL != "" {
		endpoint.TokenURL = m.config.Google.TokenURL
	}

	return &goauth.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURL:  cred.RedirectURI,
		Scopes:       m.config.Google.Scopes,
		Endpoint:     endpoint,
	}
}

// tokenContext carries the timeout-bound HTTP client into the oauth2 package
func (m *tokenManager) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, goauth.HTTPClient, m.httpClient)
}

func tokenSetFrom(tok *goauth.Token) entity.TokenSet {
	set := entity.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		set.ExpiryEpochMillis = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	return set
}

// keyedMutex serializes refreshes per company. Different companies refresh
// in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
