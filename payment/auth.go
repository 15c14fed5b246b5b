package payment

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/url"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// FacilitatorAuth mints short-lived JWT bearer tokens for facilitators that
// require authenticated access. The key secret is a PEM-encoded ECDSA or
// Ed25519 private key; the key is parsed once and cached.
//
// FacilitatorAuth is immutable after construction and safe for concurrent use.
type FacilitatorAuth struct {
	keyName    string
	host       string
	privateKey interface{}
}

// authClaims extends the standard JWT claims with the request URI the token
// authorizes, in the format "{METHOD} {host}{path}".
type authClaims struct {
	*jwt.Claims
	URI string `json:"uri"`
}

// NewFacilitatorAuth parses the PEM-encoded private key and returns an auth
// helper bound to the facilitator's host (derived from facilitatorURL).
func NewFacilitatorAuth(keyName, keySecret, facilitatorURL string) (*FacilitatorAuth, error) {
	if keyName == "" {
		return nil, fmt.Errorf("keyName must not be empty")
	}

	block, _ := pem.Decode([]byte(keySecret))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block: invalid PEM format")
	}

	var privateKey interface{}
	var err error
	privateKey, err = x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		// PKCS8 covers both ECDSA and Ed25519 keys.
		privateKey, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
	}

	switch privateKey.(type) {
	case *ecdsa.PrivateKey:
	case crypto.Signer:
	default:
		return nil, fmt.Errorf("unsupported private key type: must be ECDSA or Ed25519")
	}

	u, err := url.Parse(facilitatorURL)
	if err != nil {
		return nil, fmt.Errorf("invalid facilitator URL: %w", err)
	}

	return &FacilitatorAuth{keyName: keyName, host: u.Host, privateKey: privateKey}, nil
}

// Provider returns an AuthorizationProvider that mints a fresh bearer token
// per facilitator call.
func (a *FacilitatorAuth) Provider() AuthorizationProvider {
	return func(method, path string) (string, error) {
		token, err := a.BearerToken(method, path)
		if err != nil {
			return "", err
		}
		return "Bearer " + token, nil
	}
}

// BearerToken generates a JWT valid for 2 minutes, claiming the given request.
func (a *FacilitatorAuth) BearerToken(method, path string) (string, error) {
	var alg jose.SignatureAlgorithm
	switch a.privateKey.(type) {
	case *ecdsa.PrivateKey:
		alg = jose.ES256
	default:
		alg = jose.EdDSA
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: a.privateKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", a.keyName),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create JWT signer: %w", err)
	}

	now := time.Now()
	claims := &authClaims{
		Claims: &jwt.Claims{
			Subject:   a.keyName,
			Issuer:    "x402-gateway",
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(2 * time.Minute)),
		},
		URI: fmt.Sprintf("%s %s%s", method, a.host, path),
	}

	token, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize JWT: %w", err)
	}

	return token, nil
}
