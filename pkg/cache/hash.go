package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash returns the hex-encoded SHA-256 digest of data. Pipeline stages use
// it to fingerprint canonical documents and rendered artifacts, so the full
// 64-character digest is kept rather than a truncated prefix.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey derives a namespaced key of the form prefix:digest, where the
// digest covers the JSON encoding of parts. Derivation must stay stable
// across releases: changing it silently invalidates every existing entry.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
