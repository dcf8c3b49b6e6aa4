package solanaaddr

import "testing"

const wsolMint = "So11111111111111111111111111111111111111112"

func TestIsValidMint(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"wrapped SOL mint", wsolMint, true},
		{"system program", "11111111111111111111111111111111", true},
		{"empty", "", false},
		{"invalid base58 chars", "0OIl+/=not-base58", false},
		{"too short", "abc", false},
		{"hex address", "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidMint(tt.addr); got != tt.want {
				t.Errorf("IsValidMint(%q) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestIsOnCurveWallet(t *testing.T) {
	// The all-ones system program key decodes to 32 zero bytes, which is the
	// identity encoding and decodes as a valid curve point.
	if !IsOnCurveWallet("11111111111111111111111111111111") {
		t.Error("expected system program key to decode as a curve point")
	}

	if IsOnCurveWallet("") {
		t.Error("empty address should not be on-curve")
	}
	if IsOnCurveWallet("abc") {
		t.Error("short address should not be on-curve")
	}
}
