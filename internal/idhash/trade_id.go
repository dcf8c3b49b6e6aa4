package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(candidate_id|side|decided_at)
// Returns hex-encoded hash (64 characters).
//
// decided_at is the decision timestamp in milliseconds, so one decision
// maps to exactly one trade record across retries and restarts.
func ComputeTradeID(candidateID, side string, decidedAt int64) string {
	data := fmt.Sprintf("%s|%s|%d", candidateID, side, decidedAt)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
