package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// TokenLength is the number of characters in a plaintext token secret.
// 64 characters over a 62-symbol alphabet is about 381 bits of entropy.
const TokenLength = 64

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GeneratedToken holds a fresh secret and the digest to persist.
type GeneratedToken struct {
	Plaintext string // show once only
	Hash      string // hex SHA-256 for storage
}

// GenerateToken creates a random alphanumeric secret and its digest.
func GenerateToken() (*GeneratedToken, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, TokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}

	plaintext := string(buf)
	return &GeneratedToken{Plaintext: plaintext, Hash: HashToken(plaintext)}, nil
}

// HashToken returns the hex SHA-256 digest of a plaintext secret.
// Token secrets carry enough entropy that a fast unsalted digest is safe
// and lets the digest act as the lookup key.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares a plaintext secret against a stored digest in constant time.
func VerifyToken(plaintext, storedHash string) bool {
	computed := HashToken(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
