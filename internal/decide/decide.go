// Package decide turns a complete signal bundle into a trade decision.
// Evaluation is pure: same bundle and parameters, same decision.
package decide

import (
	"fmt"

	"solana-token-scout/internal/domain"
)

// Params are the decision thresholds.
type Params struct {
	// MaxTopHolderShare rejects above this concentration, in [0,1].
	MaxTopHolderShare float64
	// MinSentiment is required for a TRADE verdict.
	MinSentiment float64
	// WatchSentiment is the floor below which the candidate is rejected
	// instead of watched.
	WatchSentiment float64
	// PositionSize is the size attached to a TRADE verdict.
	PositionSize float64
}

// ErrIncomplete is returned when the bundle is missing a required signal.
type ErrIncomplete struct {
	Missing domain.Source
}

func (e *ErrIncomplete) Error() string {
	return fmt.Sprintf("decide: bundle missing %s signal", e.Missing)
}

// requiredSources must all carry OK results before a decision is made.
var requiredSources = []domain.Source{
	domain.SourceVetting,
	domain.SourceDistribution,
	domain.SourceSentiment,
	domain.SourceSmartMoney,
}

// Evaluate applies the decision rules in order. Earlier rules win: a
// dangerous distribution rejects the candidate no matter how strong the
// sentiment is.
func Evaluate(signals domain.SignalBundle, p Params) (domain.Decision, error) {
	for _, src := range requiredSources {
		if !signals.Has(src) {
			return domain.Decision{}, &ErrIncomplete{Missing: src}
		}
	}

	vetting := signals[domain.SourceVetting].Payload.Vetting
	dist := signals[domain.SourceDistribution].Payload.Distribution
	sentiment := signals[domain.SourceSentiment].Payload.Sentiment
	smart := signals[domain.SourceSmartMoney].Payload.SmartMoney

	switch vetting.Verdict {
	case domain.VettingFraudulent:
		return domain.Decision{
			Verdict:   domain.VerdictReject,
			Reason:    "vetting:fraudulent",
			Rationale: vetting.Detail,
		}, nil
	case domain.VettingSuspicious:
		return domain.Decision{
			Verdict:   domain.VerdictWatch,
			Reason:    "vetting:suspicious",
			Rationale: vetting.Detail,
		}, nil
	}

	if dist.TopHolderShare > p.MaxTopHolderShare {
		return domain.Decision{
			Verdict: domain.VerdictReject,
			Reason:  "distribution:concentration",
			Rationale: fmt.Sprintf("top holders control %.0f%% of supply, limit is %.0f%%",
				dist.TopHolderShare*100, p.MaxTopHolderShare*100),
		}, nil
	}

	if sentiment.Score < p.WatchSentiment {
		return domain.Decision{
			Verdict:   domain.VerdictReject,
			Reason:    "sentiment:low",
			Rationale: fmt.Sprintf("sentiment %.0f below floor %.0f", sentiment.Score, p.WatchSentiment),
		}, nil
	}

	if sentiment.Score >= p.MinSentiment && smart.Accumulating {
		return domain.Decision{
			Verdict: domain.VerdictTrade,
			Reason:  "sentiment:strong+smartmoney:accumulating",
			Size:    p.PositionSize,
			Rationale: fmt.Sprintf("sentiment %.0f with %d tracked wallets buying",
				sentiment.Score, len(smart.Wallets)),
		}, nil
	}

	return domain.Decision{
		Verdict:   domain.VerdictWatch,
		Reason:    "borderline",
		Rationale: fmt.Sprintf("sentiment %.0f, accumulating=%v", sentiment.Score, smart.Accumulating),
	}, nil
}
