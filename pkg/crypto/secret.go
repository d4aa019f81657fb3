package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomSecret returns a hex-encoded secret of n random bytes.
func RandomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
