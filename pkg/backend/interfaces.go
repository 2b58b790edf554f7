package backend

import (
	"context"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

// TokenSource yields the bearer token for the request context and drops it
// when the backend reports it as no longer valid.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context) error
}

// Authenticator exchanges a seller token for a JWT pair.
type Authenticator interface {
	Login(ctx context.Context, sellerToken string) (LoginResult, error)
}

// Client is the union of calls the BFF makes against the analytics backend.
type Client interface {
	Authenticator
	dashboard.InsightSource
	dashboard.SettingsRepository
	dashboard.ProfileRepository
	dashboard.CardAnalyzer
}

// SellerPreview is the profile summary returned alongside a login.
type SellerPreview struct {
	ID        any    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	ShopTitle string `json:"shop_title"`
}

// LoginResult is the token pair issued for a seller token.
type LoginResult struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	Seller  SellerPreview `json:"seller_profile_preview"`
	IsFake  bool          `json:"is_fake"`
}
