package domain

// Verdict is the pipeline's final call for a candidate.
type Verdict string

const (
	VerdictReject Verdict = "REJECT"
	VerdictWatch  Verdict = "WATCH"
	VerdictTrade  Verdict = "TRADE"
)

// Decision is derived from a completed SignalBundle. Recomputed, never
// stored independently of its candidate.
type Decision struct {
	Verdict   Verdict
	Reason    string  // rule that fired, e.g. "vetting:fraudulent"
	Size      float64 // position size in base units, set for VerdictTrade
	Rationale string  // human-readable summary for logs and audit
}
