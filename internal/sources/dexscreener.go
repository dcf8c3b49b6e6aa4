package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-token-scout/internal/domain"
)

// FilterThresholds are the liquidity-screen bounds applied to the
// Dexscreener snapshot of a candidate.
type FilterThresholds struct {
	MinVolumeUSD    float64
	MaxAge          time.Duration
	MinHolders      int
	MinLiquidityUSD float64
}

// Dexscreener serves two roles: it discovers newly listed tokens and it
// answers the filter signal for individual candidates.
type Dexscreener struct {
	client     *Client
	thresholds FilterThresholds
	log        zerolog.Logger
}

// NewDexscreener creates the adapter.
func NewDexscreener(client *Client, thresholds FilterThresholds, log zerolog.Logger) *Dexscreener {
	return &Dexscreener{
		client:     client,
		thresholds: thresholds,
		log:        log.With().Str("source", string(domain.SourceFilter)).Logger(),
	}
}

var _ Adapter = (*Dexscreener)(nil)
var _ Discoverer = (*Dexscreener)(nil)

// Source returns the signal this adapter produces.
func (d *Dexscreener) Source() domain.Source {
	return domain.SourceFilter
}

// pairResponse is the shape of /latest/dex/tokens/{mint}.
type pairResponse struct {
	Pairs []struct {
		BaseToken struct {
			Address string `json:"address"`
			Symbol  string `json:"symbol"`
			Name    string `json:"name"`
		} `json:"baseToken"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		HolderCount   int   `json:"holders"`
		PairCreatedAt int64 `json:"pairCreatedAt"` // ms
	} `json:"pairs"`
}

// Evaluate fetches the token's market snapshot and applies the filter
// thresholds. A definitive fail is an OK result with Pass=false; only
// transport problems produce retryable outcomes.
func (d *Dexscreener) Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult {
	start := time.Now()

	var resp pairResponse
	if err := d.client.GetJSON(ctx, "/latest/dex/tokens/"+c.Mint, &resp); err != nil {
		return failResult(domain.SourceFilter, err, start)
	}
	if len(resp.Pairs) == 0 {
		return failResult(domain.SourceFilter, fmt.Errorf("no pairs listed for mint %s", c.Mint), start)
	}

	// Use the pair with the highest 24h volume
	best := resp.Pairs[0]
	for _, p := range resp.Pairs[1:] {
		if p.Volume.H24 > best.Volume.H24 {
			best = p
		}
	}

	ageHours := time.Since(time.UnixMilli(best.PairCreatedAt)).Hours()
	m := &domain.FilterMetrics{
		Pass:         true,
		VolumeUSD:    best.Volume.H24,
		AgeHours:     ageHours,
		HolderCount:  best.HolderCount,
		LiquidityUSD: best.Liquidity.USD,
	}

	switch {
	case m.VolumeUSD < d.thresholds.MinVolumeUSD:
		m.Pass, m.FailReason = false, "volume"
	case ageHours > d.thresholds.MaxAge.Hours():
		m.Pass, m.FailReason = false, "age"
	case m.HolderCount < d.thresholds.MinHolders:
		m.Pass, m.FailReason = false, "holders"
	case m.LiquidityUSD < d.thresholds.MinLiquidityUSD:
		m.Pass, m.FailReason = false, "liquidity"
	}

	return okResult(domain.SourceFilter, domain.SignalPayload{Filter: m}, start)
}

// profilesResponse is the shape of /token-profiles/latest/v1.
type profilesResponse []struct {
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
}

// Discover lists recently profiled Solana tokens.
func (d *Dexscreener) Discover(ctx context.Context) ([]domain.DiscoveredToken, error) {
	var resp profilesResponse
	if err := d.client.GetJSON(ctx, "/token-profiles/latest/v1", &resp); err != nil {
		return nil, fmt.Errorf("fetch token profiles: %w", err)
	}

	var tokens []domain.DiscoveredToken
	for _, p := range resp {
		if p.ChainID != "solana" || p.TokenAddress == "" {
			continue
		}
		tokens = append(tokens, domain.DiscoveredToken{
			Mint:   p.TokenAddress,
			Symbol: p.Symbol,
			Name:   p.Name,
			Source: "dexscreener",
		})
	}

	d.log.Debug().Int("count", len(tokens)).Msg("discovery batch fetched")
	return tokens, nil
}
