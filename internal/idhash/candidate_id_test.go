package idhash

import "testing"

func TestComputeCandidateID(t *testing.T) {
	got := ComputeCandidateID("So11111111111111111111111111111111111111112")

	if len(got) != 64 {
		t.Errorf("ComputeCandidateID() length = %d, want 64", len(got))
	}

	// Verify determinism: same input should produce same output
	got2 := ComputeCandidateID("So11111111111111111111111111111111111111112")
	if got != got2 {
		t.Errorf("ComputeCandidateID() not deterministic: %s != %s", got, got2)
	}
}

func TestComputeCandidateID_DifferentMints(t *testing.T) {
	a := ComputeCandidateID("MintA")
	b := ComputeCandidateID("MintB")
	if a == b {
		t.Error("Different mints should produce different hashes")
	}
}

func TestComputeTradeID(t *testing.T) {
	base := ComputeTradeID("cand1", "buy", 1000)

	if len(base) != 64 {
		t.Errorf("ComputeTradeID() length = %d, want 64", len(base))
	}

	if base != ComputeTradeID("cand1", "buy", 1000) {
		t.Error("ComputeTradeID() not deterministic")
	}

	if base == ComputeTradeID("cand2", "buy", 1000) {
		t.Error("Different candidate should produce different hash")
	}
	if base == ComputeTradeID("cand1", "buy", 2000) {
		t.Error("Different decision time should produce different hash")
	}
}
