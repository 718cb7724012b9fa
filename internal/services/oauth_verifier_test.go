package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/types"
)

// fakeProvider hosts OIDC discovery and a JWKS endpoint backed by a fresh
// RSA key, and can mint id tokens signed with that key.
type fakeProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey
	kid    string
	issuer string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	fp := &fakeProvider{key: key, kid: "test-key-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   fp.issuer,
			"jwks_uri": fp.server.URL + "/jwks",
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, r *http.Request) {
		pub := &fp.key.PublicKey
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": fp.kid,
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	})

	fp.server = httptest.NewServer(mux)
	fp.issuer = fp.server.URL
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) mint(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(fp.key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func (fp *fakeProvider) baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            fp.issuer,
		"aud":            "test-client-id",
		"sub":            "subject-123",
		"email":          "person@example.com",
		"email_verified": true,
		"name":           "Pat Person",
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func (fp *fakeProvider) verifier() *providerVerifier {
	return newProviderVerifier(
		fp.server.Client(),
		fp.server.URL+"/.well-known/openid-configuration",
		[]string{fp.issuer},
		"test-client-id",
		[]string{"RS256"},
	)
}

func TestProviderVerifierAcceptsValidToken(t *testing.T) {
	fp := newFakeProvider(t)
	pv := fp.verifier()

	token := fp.mint(t, fp.baseClaims(), fp.kid)
	claims, err := pv.verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if sub, _ := claims["sub"].(string); sub != "subject-123" {
		t.Fatalf("expected sub subject-123, got %q", sub)
	}
}

func TestProviderVerifierRejections(t *testing.T) {
	fp := newFakeProvider(t)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	cases := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty token", func(t *testing.T) string { return "" }},
		{"garbage token", func(t *testing.T) string { return "not.a.jwt" }},
		{"expired", func(t *testing.T) string {
			c := fp.baseClaims()
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return fp.mint(t, c, fp.kid)
		}},
		{"audience mismatch", func(t *testing.T) string {
			c := fp.baseClaims()
			c["aud"] = "someone-else"
			return fp.mint(t, c, fp.kid)
		}},
		{"issuer mismatch", func(t *testing.T) string {
			c := fp.baseClaims()
			c["iss"] = "https://evil.example.com"
			return fp.mint(t, c, fp.kid)
		}},
		{"missing sub", func(t *testing.T) string {
			c := fp.baseClaims()
			delete(c, "sub")
			return fp.mint(t, c, fp.kid)
		}},
		{"unknown kid", func(t *testing.T) string {
			return fp.mint(t, fp.baseClaims(), "unknown-kid")
		}},
		{"wrong signing key", func(t *testing.T) string {
			tok := jwt.NewWithClaims(jwt.SigningMethodRS256, fp.baseClaims())
			tok.Header["kid"] = fp.kid
			signed, err := tok.SignedString(otherKey)
			if err != nil {
				t.Fatalf("failed to sign: %v", err)
			}
			return signed
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pv := fp.verifier()
			if _, err := pv.verify(context.Background(), tc.token(t)); err == nil {
				t.Fatalf("expected verification to fail")
			}
		})
	}
}

func TestVerifyCollapsesFailuresToUntrusted(t *testing.T) {
	fp := newFakeProvider(t)
	v := &oauthVerifier{
		log:    testLogger(t),
		google: fp.verifier(),
		apple:  fp.verifier(),
	}

	c := fp.baseClaims()
	c["aud"] = "someone-else"
	token := fp.mint(t, c, fp.kid)

	_, err := v.Verify(context.Background(), types.ProviderGoogle, token)
	if !apierr.IsCode(err, apierr.CodeUntrustedIDToken) {
		t.Fatalf("expected UNTRUSTED_ID_TOKEN, got %v", err)
	}
}

func TestVerifyRejectsTokenWithoutEmail(t *testing.T) {
	fp := newFakeProvider(t)
	v := &oauthVerifier{
		log:    testLogger(t),
		google: fp.verifier(),
		apple:  fp.verifier(),
	}

	c := fp.baseClaims()
	delete(c, "email")
	token := fp.mint(t, c, fp.kid)

	_, err := v.Verify(context.Background(), types.ProviderGoogle, token)
	if !apierr.IsCode(err, apierr.CodeUntrustedIDToken) {
		t.Fatalf("expected UNTRUSTED_ID_TOKEN for a token without email, got %v", err)
	}
}

func TestVerifyRejectsUnknownProvider(t *testing.T) {
	fp := newFakeProvider(t)
	v := &oauthVerifier{
		log:    testLogger(t),
		google: fp.verifier(),
		apple:  fp.verifier(),
	}

	_, err := v.Verify(context.Background(), types.Provider("github"), "anything")
	if !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("expected VALIDATION_FAILED for an unknown provider, got %v", err)
	}
}

func TestVerifyExtractsIdentity(t *testing.T) {
	fp := newFakeProvider(t)
	v := &oauthVerifier{
		log:    testLogger(t),
		google: fp.verifier(),
		apple:  fp.verifier(),
	}

	token := fp.mint(t, fp.baseClaims(), fp.kid)
	identity, err := v.Verify(context.Background(), types.ProviderGoogle, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if identity.Subject != "subject-123" {
		t.Fatalf("expected subject subject-123, got %q", identity.Subject)
	}
	if identity.Email != "person@example.com" {
		t.Fatalf("expected email person@example.com, got %q", identity.Email)
	}
	if !identity.EmailVerified {
		t.Fatalf("expected email_verified to carry through")
	}
	if identity.Name != "Pat Person" {
		t.Fatalf("expected name Pat Person, got %q", identity.Name)
	}
}

func TestClaimsToIdentityNameFallback(t *testing.T) {
	out := claimsToIdentity(types.ProviderApple, jwt.MapClaims{
		"sub":         "s",
		"email":       "e@example.com",
		"given_name":  "Pat",
		"family_name": "Person",
	})
	if out.Name != "Pat Person" {
		t.Fatalf("expected name assembled from given and family names, got %q", out.Name)
	}
}

func TestParseBoolClaim(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"false", false},
		{float64(1), true},
		{float64(0), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := parseBoolClaim(tc.in); got != tc.want {
			t.Fatalf("parseBoolClaim(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
