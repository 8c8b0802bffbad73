package security

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
)

// nonceBytes is the entropy of an issued nonce before encoding.
const nonceBytes = 32

// redactedHeaders never reach the request log.
var redactedHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"X-WP-Nonce",
}

// RandomToken returns n random bytes as unpadded URL-safe base64.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SanitizeHeaders returns a copy of headers without credentials or nonces.
func SanitizeHeaders(headers http.Header) http.Header {
	clean := headers.Clone()
	for _, name := range redactedHeaders {
		clean.Del(name)
	}
	return clean
}
