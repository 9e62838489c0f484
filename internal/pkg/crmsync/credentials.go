package crmsync

import (
	"context"
	"errors"
	"time"

	"github.com/tradiehq/TradieHQ/app/models"
	"github.com/tradiehq/TradieHQ/internal/pkg/security"
)

// CredentialProvider resolves the bearer token for a CRM portal and knows
// whether (and how) expired credentials can be refreshed.
type CredentialProvider interface {
	// ResolveToken returns the bearer token to use, or "" when none is
	// available.
	ResolveToken() string

	// CanRefresh reports whether a refresh path exists. A 401 with no
	// refresh path is terminal for the current attempt.
	CanRefresh() bool

	// RefreshIfNeeded refreshes the stored token pair when it has expired,
	// or unconditionally when force is true.
	RefreshIfNeeded(ctx context.Context, force bool) error
}

// StaticTokenCredentials is the private-app mode: a fixed token with no
// refresh path.
type StaticTokenCredentials struct {
	Token string
}

func (s *StaticTokenCredentials) ResolveToken() string {
	return s.Token
}

func (s *StaticTokenCredentials) CanRefresh() bool {
	return false
}

func (s *StaticTokenCredentials) RefreshIfNeeded(ctx context.Context, force bool) error {
	return nil
}

// OAuthCredentials resolves tokens from a portal record, preferring the
// encrypted columns, and refreshes expired tokens through the CRM OAuth
// endpoint. Refresh persists both the plaintext-compatible and encrypted
// token pair and writes a token audit row. The update is last-writer-wins
// per portal; concurrent refreshes are not serialized.
type OAuthCredentials struct {
	Portal        *models.HubspotPortal
	Repo          Repository
	Client        CRMClient
	Secret        string
	FallbackToken string
}

func (o *OAuthCredentials) ResolveToken() string {
	if tok, ok := security.DecryptToken(o.Portal.EncryptedAccessToken, o.Secret); ok && tok != "" {
		return tok
	}
	if o.Portal.AccessToken != "" {
		return o.Portal.AccessToken
	}
	return o.FallbackToken
}

func (o *OAuthCredentials) CanRefresh() bool {
	return true
}

func (o *OAuthCredentials) RefreshIfNeeded(ctx context.Context, force bool) error {
	now := time.Now()
	if !force && !o.Portal.TokenExpired(now) {
		return nil
	}

	refreshToken := o.Portal.RefreshToken
	if tok, ok := security.DecryptToken(o.Portal.EncryptedRefreshToken, o.Secret); ok && tok != "" {
		refreshToken = tok
	}
	if refreshToken == "" {
		return errors.New("portal has no refresh token")
	}

	resp, err := o.Client.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	expiresAt := now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	o.Portal.AccessToken = resp.AccessToken
	o.Portal.RefreshToken = resp.RefreshToken
	o.Portal.ExpiresAt = &expiresAt

	if enc, err := security.EncryptToken(resp.AccessToken, o.Secret); err == nil {
		o.Portal.EncryptedAccessToken = enc
	}
	if enc, err := security.EncryptToken(resp.RefreshToken, o.Secret); err == nil {
		o.Portal.EncryptedRefreshToken = enc
	}

	if err := o.Repo.SavePortalTokens(o.Portal); err != nil {
		return err
	}
	return o.Repo.RecordTokenAudit(o.Portal.PortalID, models.TokenAuditEventRefreshed, o.Portal.ExpiresAt)
}
