package domain

// Candidate represents a discovered token moving through the evaluation
// pipeline. Corresponds to the candidates table in PostgreSQL.
// The registry owns the canonical copy; everything else works on copies.
type Candidate struct {
	CandidateID     string // PRIMARY KEY, deterministic hash of the mint
	Mint            string // token mint address (base58)
	Symbol          string
	Name            string
	DiscoverySource string // "dexscreener" | "pumpfun"
	DiscoveredAt    int64  // Unix timestamp in milliseconds
	Stage           Stage
	UpdatedAt       int64        // last mutation timestamp (ms)
	RejectReason    string       // set when Stage == StageRejected
	Signals         SignalBundle // most recent result per source
	TradeID         string       // set once a trade has been opened
}

// Clone returns a deep copy safe to hand outside the registry.
func (c *Candidate) Clone() *Candidate {
	out := *c
	out.Signals = c.Signals.Clone()
	return &out
}
