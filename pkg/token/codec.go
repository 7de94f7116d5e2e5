package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// SecretBytes is the amount of entropy packed into every generated secret (256 bits).
const SecretBytes = 32

// ErrPepperMissing is returned when the codec was built without a server-held pepper.
var ErrPepperMissing = errors.New("token pepper missing")

// Codec generates capability secrets and their peppered one-way digests.
type Codec struct {
	pepper []byte
}

// NewCodec builds a codec around the server-held pepper.
func NewCodec(pepper string) (*Codec, error) {
	if pepper == "" {
		return nil, ErrPepperMissing
	}
	return &Codec{pepper: []byte(pepper)}, nil
}

// Generate returns a fresh URL-safe secret. The caller must hand it out once and never persist it.
func (c *Codec) Generate() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash derives the storable digest of secret: hex(HMAC-SHA256(pepper, secret)).
func (c *Codec) Hash(secret string) (string, error) {
	if c == nil || len(c.pepper) == 0 {
		return "", ErrPepperMissing
	}
	mac := hmac.New(sha256.New, c.pepper)
	_, _ = mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify re-derives the digest of secret and compares it with storedHash in constant time.
func (c *Codec) Verify(secret, storedHash string) bool {
	computed, err := c.Hash(secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(computed), []byte(storedHash))
}
