package sources

import (
	"context"
	"fmt"
	"time"

	"solana-token-scout/internal/domain"
)

// Moni reports social sentiment for a candidate as a score in [0,100].
type Moni struct {
	client *Client
}

// NewMoni creates the adapter.
func NewMoni(client *Client) *Moni {
	return &Moni{client: client}
}

var _ Adapter = (*Moni)(nil)

// Source returns the signal this adapter produces.
func (m *Moni) Source() domain.Source {
	return domain.SourceSentiment
}

type sentimentResponse struct {
	Score float64 `json:"score"`
}

// Evaluate fetches the sentiment score for the mint.
func (m *Moni) Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult {
	start := time.Now()

	var resp sentimentResponse
	if err := m.client.GetJSON(ctx, "/tokens/"+c.Mint+"/sentiment", &resp); err != nil {
		return failResult(domain.SourceSentiment, err, start)
	}
	if resp.Score < 0 || resp.Score > 100 {
		return failResult(domain.SourceSentiment,
			fmt.Errorf("sentiment score %f out of range", resp.Score), start)
	}

	return okResult(domain.SourceSentiment, domain.SignalPayload{
		Sentiment: &domain.SentimentScore{Score: resp.Score},
	}, start)
}
