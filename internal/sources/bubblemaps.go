package sources

import (
	"context"
	"fmt"
	"time"

	"solana-token-scout/internal/domain"
)

// Bubblemaps reports holder concentration for a candidate.
type Bubblemaps struct {
	client *Client
}

// NewBubblemaps creates the adapter.
func NewBubblemaps(client *Client) *Bubblemaps {
	return &Bubblemaps{client: client}
}

var _ Adapter = (*Bubblemaps)(nil)

// Source returns the signal this adapter produces.
func (b *Bubblemaps) Source() domain.Source {
	return domain.SourceDistribution
}

type walletMapResponse struct {
	TopHolderShare float64 `json:"top_holder_share"`
	Clusters       int     `json:"clusters"`
}

// Evaluate fetches the wallet map summary for the mint.
func (b *Bubblemaps) Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult {
	start := time.Now()

	var resp walletMapResponse
	if err := b.client.GetJSON(ctx, "/tokens/"+c.Mint, &resp); err != nil {
		return failResult(domain.SourceDistribution, err, start)
	}
	if resp.TopHolderShare < 0 || resp.TopHolderShare > 1 {
		return failResult(domain.SourceDistribution,
			fmt.Errorf("top holder share %f out of range", resp.TopHolderShare), start)
	}

	return okResult(domain.SourceDistribution, domain.SignalPayload{
		Distribution: &domain.DistributionMetrics{
			TopHolderShare: resp.TopHolderShare,
			HolderClusters: resp.Clusters,
		},
	}, start)
}
