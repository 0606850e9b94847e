package entity

import "time"

// CompanyCredential is the per-tenant Google OAuth client and its current tokens
type CompanyCredential struct {
	CompanyID    string `json:"company_id" db:"company_id"`
	ClientID     string `json:"client_id" db:"google_client_id"`
	ClientSecret string `json:"-" db:"google_client_secret"`
	RedirectURI  string `json:"redirect_uri" db:"google_redirect_uri"`
	AccessToken  string `json:"-" db:"google_access_token"`
	RefreshToken string `json:"-" db:"google_refresh_token"`
	Scope        string `json:"scope,omitempty" db:"google_scope"`
	TokenType    string `json:"token_type,omitempty" db:"google_token_type"`
	// ExpiryEpochMillis is 0 when the provider never reported an expiry
	ExpiryEpochMillis int64 `json:"expiry_date,omitempty" db:"google_expiry_date"`
}

// HasToken reports whether a consent has ever completed for this company.
func (c *CompanyCredential) HasToken() bool {
	return c != nil && c.AccessToken != ""
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (c *CompanyCredential) Expiry() time.Time {
	if c.ExpiryEpochMillis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.ExpiryEpochMillis)
}

// NeedsRefresh is true once now is inside the window before expiry.
// A token without a known expiry is treated as still valid.
func (c *CompanyCredential) NeedsRefresh(now time.Time, window time.Duration) bool {
	if c.ExpiryEpochMillis == 0 {
		return false
	}
	return now.After(c.Expiry().Add(-window))
}

// TokenSet is what gets written back after a consent or a refresh.
// An empty RefreshToken means "keep the stored one".
type TokenSet struct {
	AccessToken       string
	RefreshToken      string
	Scope             string
	TokenType         string
	ExpiryEpochMillis int64
}
