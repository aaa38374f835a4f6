// Package idhash computes deterministic identifiers so that re-running
// generation over the same inputs never produces duplicate records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(symbol|direction|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeSignalID(symbol, direction string, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", symbol, direction, createdAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
