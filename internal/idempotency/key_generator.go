package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenerateKey derives a stable key for one Telegram update. kind stays
// readable in Redis ("cb", "msg", "upd"); the parts are hashed so chat and
// callback ids never appear in key names.
func GenerateKey(kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "/")))
	return kind + ":" + hex.EncodeToString(sum[:16])
}
