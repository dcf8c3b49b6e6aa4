package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solana-token-scout/internal/domain"
)

// Rugcheck audits a candidate's contract for rug-pull markers. The verdict
// is evidence either way; "fraudulent" is a terminal answer, not an error.
type Rugcheck struct {
	client *Client
}

// NewRugcheck creates the adapter.
func NewRugcheck(client *Client) *Rugcheck {
	return &Rugcheck{client: client}
}

var _ Adapter = (*Rugcheck)(nil)

// Source returns the signal this adapter produces.
func (r *Rugcheck) Source() domain.Source {
	return domain.SourceVetting
}

type auditRequest struct {
	Contract string `json:"contract"`
}

type auditResponse struct {
	Verdict string `json:"verdict"`
	Detail  string `json:"detail"`
}

// Evaluate submits the mint for an audit.
func (r *Rugcheck) Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult {
	start := time.Now()

	var resp auditResponse
	err := r.client.PostJSON(ctx, "/audit", auditRequest{Contract: c.Mint}, &resp)
	if err != nil {
		return failResult(domain.SourceVetting, err, start)
	}

	verdict := strings.ToLower(strings.TrimSpace(resp.Verdict))
	switch verdict {
	case domain.VettingSafe, domain.VettingSuspicious, domain.VettingFraudulent:
	default:
		return failResult(domain.SourceVetting,
			fmt.Errorf("unknown audit verdict %q", resp.Verdict), start)
	}

	return okResult(domain.SourceVetting, domain.SignalPayload{
		Vetting: &domain.VettingVerdict{Verdict: verdict, Detail: resp.Detail},
	}, start)
}
