package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// Credentials holds the API key/secret pair used for HMAC-signed trading
// requests. Unlike the teacher's two-layer Polymarket auth (EIP-712 L1 +
// HMAC L2), a centralized spot exchange has no on-chain wallet signer, so
// only the HMAC layer is carried over — see DESIGN.md.
type Credentials struct {
	APIKey string
	Secret string
}

// Auth signs REST requests with HMAC-SHA256 over
// "timestamp + method + path [+ body]", exactly the teacher's buildHMAC
// scheme, and exposes the API key for the websocket user-data handshake.
type Auth struct {
	creds Credentials
}

// NewAuth builds an Auth from the configured API credentials.
func NewAuth(creds Credentials) *Auth {
	return &Auth{creds: creds}
}

// HasCredentials reports whether both API key and secret are configured.
func (a *Auth) HasCredentials() bool {
	return a.creds.APIKey != "" && a.creds.Secret != ""
}

// RESTHeaders builds the signed headers for one REST request.
func (a *Auth) RESTHeaders(method, path, body string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig, err := a.buildHMAC(timestamp, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("build hmac: %w", err)
	}
	return map[string]string{
		"X-API-KEY":   a.creds.APIKey,
		"X-SIGNATURE": sig,
		"X-TIMESTAMP": timestamp,
	}, nil
}

// WSAuthPayload returns the credential pair sent on the user-data
// websocket handshake.
func (a *Auth) WSAuthPayload() map[string]string {
	return map[string]string{
		"apiKey": a.creds.APIKey,
	}
}

// buildHMAC computes the HMAC-SHA256 signature for one request.
// message = timestamp + method + requestPath [+ body], matching the
// teacher's buildHMAC exactly. The secret is tried against every common
// base64 variant since exchanges are inconsistent about which one they
// issue secrets in.
func (a *Auth) buildHMAC(timestamp, method, path, body string) (string, error) {
	decoders := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}

	var secretBytes []byte
	var err error
	for _, dec := range decoders {
		secretBytes, err = dec.DecodeString(a.creds.Secret)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	message := timestamp + method + path
	if body != "" {
		message += body
	}

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
