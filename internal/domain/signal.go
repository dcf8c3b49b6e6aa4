package domain

// Source identifies one external signal source.
type Source string

const (
	SourceNone         Source = ""
	SourceDiscovery    Source = "discovery"
	SourceFilter       Source = "filter"
	SourceVetting      Source = "vetting"
	SourceDistribution Source = "distribution"
	SourceSentiment    Source = "sentiment"
	SourceSmartMoney   Source = "smartmoney"
	SourceExecution    Source = "execution"
)

// EvaluationSources are the sources consulted by the per-tick fan-out,
// in pipeline order. Discovery and execution are driven separately.
var EvaluationSources = []Source{
	SourceFilter,
	SourceVetting,
	SourceDistribution,
	SourceSentiment,
	SourceSmartMoney,
}

// Outcome tags a SignalResult.
type Outcome string

const (
	OutcomeOK          Outcome = "OK"
	OutcomeTimeout     Outcome = "TIMEOUT"
	OutcomeError       Outcome = "ERROR"
	OutcomeRateLimited Outcome = "RATE_LIMITED"
)

// Retryable reports whether the outcome is transient and the source should
// be consulted again. Definitive negative verdicts arrive as OutcomeOK
// payloads and are never retried.
func (o Outcome) Retryable() bool {
	return o == OutcomeTimeout || o == OutcomeError || o == OutcomeRateLimited
}

// Failure reports whether the outcome counts against the per-source
// rejection budget. A rate-limited provider is throttled, not failing, so
// the caller backs off and asks again without spending budget.
func (o Outcome) Failure() bool {
	return o == OutcomeTimeout || o == OutcomeError
}

// SignalResult is one source's answer for one candidate. Immutable once
// produced.
type SignalResult struct {
	Source     Source
	Outcome    Outcome
	Payload    SignalPayload // populated when Outcome == OutcomeOK
	Err        string        // populated on TIMEOUT / ERROR / RATE_LIMITED
	LatencyMs  int64
	ObservedAt int64 // Unix timestamp in milliseconds
}

// SignalPayload carries the source-specific value of an ok result. Exactly
// one section is populated, matching the Source tag.
type SignalPayload struct {
	Filter       *FilterMetrics
	Vetting      *VettingVerdict
	Distribution *DistributionMetrics
	Sentiment    *SentimentScore
	SmartMoney   *SmartMoneyActivity
}

// FilterMetrics is the volume/age/holder snapshot behind a pass/fail.
type FilterMetrics struct {
	Pass         bool
	FailReason   string // "volume" | "age" | "holders" | "liquidity"
	VolumeUSD    float64
	AgeHours     float64
	HolderCount  int
	LiquidityUSD float64
}

// VettingVerdict is the security audit result.
type VettingVerdict struct {
	Verdict string // "safe" | "suspicious" | "fraudulent"
	Detail  string
}

const (
	VettingSafe       = "safe"
	VettingSuspicious = "suspicious"
	VettingFraudulent = "fraudulent"
)

// DistributionMetrics describes holder concentration.
type DistributionMetrics struct {
	TopHolderShare float64 // share of supply held by top wallets in [0,1]
	HolderClusters int
}

// SentimentScore is a social-sentiment score in [0,100].
type SentimentScore struct {
	Score float64
}

// SmartMoneyActivity summarizes recent large-holder transactions.
type SmartMoneyActivity struct {
	Accumulating bool // at least one experienced wallet bought recently
	BuyVolumeUSD float64
	Wallets      []SmartWallet
}

// SmartWallet is one tracked wallet seen trading the candidate.
type SmartWallet struct {
	Address  string
	Tags     []string
	ValueUSD float64
}

// SignalBundle maps each source to its most recent result. Newer results
// for the same source supersede older ones, never merge.
type SignalBundle map[Source]SignalResult

// Clone returns a copy of the bundle.
func (b SignalBundle) Clone() SignalBundle {
	if b == nil {
		return nil
	}
	out := make(SignalBundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Has reports whether the bundle holds an ok result for the source.
func (b SignalBundle) Has(src Source) bool {
	r, ok := b[src]
	return ok && r.Outcome == OutcomeOK
}
