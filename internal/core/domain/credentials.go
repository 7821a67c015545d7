package domain

import (
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the opaque credential bundle for a platform connector,
// addressed by (tenantID, sourceID) in the credential store. Token values
// must never appear in logs or sync messages.
type Credentials struct {
	// AccessToken is the bearer token for API calls.
	AccessToken string

	// RefreshToken allows obtaining a new access token, when granted.
	RefreshToken string

	// Scope is the granted OAuth scope string.
	Scope string

	// Expiry is when the access token expires. Zero means no expiry.
	Expiry time.Time
}

// Expired reports whether the access token is past its expiry.
func (c *Credentials) Expired() bool {
	return !c.Expiry.IsZero() && time.Now().After(c.Expiry)
}

// Token converts the bundle to an oauth2 token for SDK clients.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// TokenSource returns a static token source backed by the access token.
func (c *Credentials) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(c.Token())
}
