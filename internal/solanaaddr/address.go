// Package solanaaddr validates Solana addresses before candidates enter the
// pipeline, so malformed feed data is dropped at the boundary.
package solanaaddr

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// addressLen is the byte length of a Solana public key.
const addressLen = 32

// Decode decodes a base58 address and checks its length.
func Decode(addr string) ([]byte, bool) {
	if addr == "" {
		return nil, false
	}
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != addressLen {
		return nil, false
	}
	return raw, true
}

// IsValidMint reports whether addr is a plausible token mint address.
// Mints are often program-derived, so no on-curve requirement applies.
func IsValidMint(addr string) bool {
	_, ok := Decode(addr)
	return ok
}

// IsOnCurveWallet reports whether addr decodes to a point on the ed25519
// curve. Wallet keypairs are always on-curve; program-derived accounts are
// not, which filters out vaults and pools posing as trader wallets in
// smart-money feeds.
func IsOnCurveWallet(addr string) bool {
	raw, ok := Decode(addr)
	if !ok {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
