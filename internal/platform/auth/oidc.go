package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OIDCProvider is the subset of an OpenID Connect discovery document needed
// to validate identity-provider tokens.
type OIDCProvider struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoverOIDC fetches /.well-known/openid-configuration from the issuer.
func DiscoverOIDC(issuerURL string) (*OIDCProvider, error) {
	issuerURL = strings.TrimRight(issuerURL, "/")
	discoveryURL := issuerURL + "/.well-known/openid-configuration"

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var provider OIDCProvider
	if err := json.NewDecoder(resp.Body).Decode(&provider); err != nil {
		return nil, fmt.Errorf("decoding OIDC discovery document: %w", err)
	}
	if provider.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	return &provider, nil
}

// ResolveJWKSURL returns cfg.JWKSURL, falling back to OIDC discovery on the
// issuer when only the issuer is configured.
func ResolveJWKSURL(cfg JWTConfig) (string, error) {
	if cfg.JWKSURL != "" || len(cfg.SigningKey) > 0 {
		return cfg.JWKSURL, nil
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("either a JWKS URL, an issuer or a signing key is required")
	}
	p, err := DiscoverOIDC(cfg.Issuer)
	if err != nil {
		return "", err
	}
	return p.JWKSURI, nil
}
