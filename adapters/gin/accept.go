package profilegin

import "time"

// AcceptConfig configures verification of the identity provider's JWTs. The
// BFF never issues tokens itself.
type AcceptConfig struct {
	Issuers    []IssuerAccept `yaml:"issuers"`
	Skew       time.Duration  `yaml:"skew"`
	Algorithms []string       `yaml:"algorithms"`
}

// IssuerAccept describes how to accept tokens from a specific issuer.
type IssuerAccept struct {
	Issuer string `yaml:"issuer"`
	// Audiences enforces that tokens contain at least one of these audiences.
	Audiences    []string      `yaml:"audiences"`
	JWKSURL      string        `yaml:"jwks_url"`
	PinnedRSAPEM string        `yaml:"pinned_rsa_pem"` // optional PEM for degraded fallback
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	MaxStale     time.Duration `yaml:"max_stale"`
}
