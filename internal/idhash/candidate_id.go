package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(mint)
// Returns hex-encoded hash (64 characters).
//
// The ID is a function of the mint alone so that rediscovering the same
// token from any feed maps to the same registry entry.
func ComputeCandidateID(mint string) string {
	hash := sha256.Sum256([]byte(mint))
	return hex.EncodeToString(hash[:])
}
