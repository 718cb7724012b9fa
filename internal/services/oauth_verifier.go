package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/types"
)

// ExternalIdentity is the normalized claim set extracted from a verified
// provider ID token. It is consumed immediately by the auth service and
// never persisted.
type ExternalIdentity struct {
	Provider      types.Provider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type OAuthVerifier interface {
	Verify(ctx context.Context, provider types.Provider, idToken string) (*ExternalIdentity, error)
}

type oauthVerifier struct {
	log    *logger.Logger
	google *providerVerifier
	apple  *providerVerifier
}

func NewOAuthVerifier(httpClient *http.Client, log *logger.Logger, googleClientID, appleClientID string) (OAuthVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(googleClientID) == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if strings.TrimSpace(appleClientID) == "" {
		return nil, fmt.Errorf("APPLE_CLIENT_ID is required")
	}

	g := newProviderVerifier(
		httpClient,
		"https://accounts.google.com/.well-known/openid-configuration",
		[]string{"accounts.google.com", "https://accounts.google.com"},
		googleClientID,
		[]string{"RS256"},
	)
	a := newProviderVerifier(
		httpClient,
		"https://appleid.apple.com/.well-known/openid-configuration",
		[]string{"https://appleid.apple.com"},
		appleClientID,
		[]string{"ES256"},
	)

	return &oauthVerifier{
		log:    log.With("service", "OAuthVerifier"),
		google: g,
		apple:  a,
	}, nil
}

// Verify validates the token against the provider's published keys and
// audience. Every failure collapses into one untrusted-token rejection:
// callers (and end users) never see provider-internal diagnostics, and a
// failed verification is terminal for that login attempt.
func (v *oauthVerifier) Verify(ctx context.Context, provider types.Provider, idToken string) (*ExternalIdentity, error) {
	var pv *providerVerifier
	switch provider {
	case types.ProviderGoogle:
		pv = v.google
	case types.ProviderApple:
		pv = v.apple
	default:
		return nil, apierr.Validation("unsupported oauth provider %q", provider)
	}

	claims, err := pv.verify(ctx, idToken)
	if err != nil {
		v.log.Warn("ID token verification failed", "provider", provider, "error", err)
		return nil, apierr.Unauthorized(apierr.CodeUntrustedIDToken, "untrusted %s id token", provider)
	}

	out := claimsToIdentity(provider, claims)
	if out.Email == "" {
		v.log.Warn("ID token carried no email claim", "provider", provider)
		return nil, apierr.Unauthorized(apierr.CodeUntrustedIDToken, "untrusted %s id token", provider)
	}
	return out, nil
}

func claimsToIdentity(provider types.Provider, c jwt.MapClaims) *ExternalIdentity {
	out := &ExternalIdentity{Provider: provider}

	if s, _ := c["sub"].(string); s != "" {
		out.Subject = s
	}
	if e, _ := c["email"].(string); e != "" {
		out.Email = e
	}
	out.EmailVerified = parseBoolClaim(c["email_verified"])

	if n, _ := c["name"].(string); n != "" {
		out.Name = n
	} else {
		given, _ := c["given_name"].(string)
		family, _ := c["family_name"].(string)
		out.Name = strings.TrimSpace(given + " " + family)
	}
	if p, _ := c["picture"].(string); p != "" {
		out.Picture = p
	}
	return out
}

func parseBoolClaim(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(x, "true") || x == "1"
	case float64:
		return x != 0
	default:
		return false
	}
}

// ----- per-provider verification -----

type oidcDiscovery struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

type providerVerifier struct {
	httpClient   *http.Client
	discoveryURL string
	allowedIss   []string
	requiredAud  string
	algAllow     []string

	jwks          *jwksCache
	discoveryOnce sync.Once
	discoveryErr  error
}

func newProviderVerifier(httpClient *http.Client, discoveryURL string, allowedIss []string, requiredAud string, algAllow []string) *providerVerifier {
	return &providerVerifier{
		httpClient:   httpClient,
		discoveryURL: discoveryURL,
		allowedIss:   allowedIss,
		requiredAud:  requiredAud,
		algAllow:     algAllow,
		jwks:         newJWKSCache(httpClient),
	}
}

func (p *providerVerifier) ensureDiscovery(ctx context.Context) error {
	p.discoveryOnce.Do(func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.discoveryURL, nil)
		res, err := p.httpClient.Do(req)
		if err != nil {
			p.discoveryErr = err
			return
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			p.discoveryErr = fmt.Errorf("discovery request failed: %s", res.Status)
			return
		}

		var d oidcDiscovery
		if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
			p.discoveryErr = err
			return
		}
		if strings.TrimSpace(d.JWKSURI) == "" {
			p.discoveryErr = fmt.Errorf("discovery missing jwks_uri")
			return
		}
		p.jwks.setURL(d.JWKSURI)
	})
	return p.discoveryErr
}

func (p *providerVerifier) verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("id_token is empty")
	}
	if err := p.ensureDiscovery(ctx); err != nil {
		return nil, fmt.Errorf("oidc discovery error: %w", err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(p.algAllow),
		jwt.WithExpirationRequired(),
	)
	claims := jwt.MapClaims{}

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return p.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("invalid id_token")
	}

	iss, _ := claims["iss"].(string)
	if !containsIssuer(p.allowedIss, iss) {
		return nil, fmt.Errorf("issuer mismatch: %q", iss)
	}
	if !audContains(claims["aud"], p.requiredAud) {
		return nil, fmt.Errorf("audience mismatch")
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("missing sub")
	}

	return claims, nil
}

func containsIssuer(list []string, iss string) bool {
	for _, v := range list {
		if v == iss {
			return true
		}
	}
	return false
}

func audContains(aud any, required string) bool {
	switch v := aud.(type) {
	case string:
		return v == required
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && s == required {
				return true
			}
		}
	}
	return false
}

// ----- JWKS cache (RSA for Google, EC for Apple) -----

type jwksCache struct {
	httpClient *http.Client

	mu      sync.RWMutex
	jwksURL string
	keys    map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey

	fetchedAt time.Time
	ttl       time.Duration
}

func newJWKSCache(httpClient *http.Client) *jwksCache {
	return &jwksCache{
		httpClient: httpClient,
		keys:       map[string]any{},
		ttl:        6 * time.Hour,
	}
}

func (j *jwksCache) setURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jwksURL = url
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (j *jwksCache) getKey(ctx context.Context, kid string) (any, error) {
	j.mu.RLock()
	key := j.keys[kid]
	stale := time.Since(j.fetchedAt) > j.ttl
	url := j.jwksURL
	j.mu.RUnlock()

	if key != nil && !stale {
		return key, nil
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("jwks url not set")
	}

	if err := j.refresh(ctx, url); err != nil {
		// Key rollover windows: serve the cached key if we still have it.
		j.mu.RLock()
		key = j.keys[kid]
		j.mu.RUnlock()
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	key = j.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	return key, nil
}

func (j *jwksCache) refresh(ctx context.Context, url string) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := j.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("jwks fetch failed: %s", res.Status)
	}

	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return err
	}

	next := map[string]any{}
	for _, k := range set.Keys {
		if strings.TrimSpace(k.Kid) == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			if pub, err := rsaFromModExp(k.N, k.E); err == nil {
				next[k.Kid] = pub
			}
		case "EC":
			if pub, err := ecdsaFromXY(k.Crv, k.X, k.Y); err == nil {
				next[k.Kid] = pub
			}
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("jwks contained no usable keys")
	}

	j.mu.Lock()
	j.keys = next
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nb)
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}

func ecdsaFromXY(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}

	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}

	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
