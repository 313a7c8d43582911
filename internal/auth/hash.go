package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns a hex-encoded SHA-256 digest. Invitation tokens and
// 2FA codes are stored as digests; lookups hash the presented value and
// compare digests, so a leaked table never exposes a usable secret.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
