package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/solanaaddr"
)

// experiencedWalletKeywords mark a wallet tag as belonging to a tracked
// trader. Matching is case-insensitive substring.
var experiencedWalletKeywords = []string{
	"early investor", "insider", "whale", "vc", "dex founder",
}

// minSmartTradeValueUSD is the floor below which provider trades are not
// requested at all.
const minSmartTradeValueUSD = 1000

// GMGN answers the smart-money signal: whether tracked wallets have been
// accumulating the candidate recently.
type GMGN struct {
	client *Client
	log    zerolog.Logger
}

// NewGMGN creates the adapter.
func NewGMGN(client *Client, log zerolog.Logger) *GMGN {
	return &GMGN{
		client: client,
		log:    log.With().Str("source", string(domain.SourceSmartMoney)).Logger(),
	}
}

var _ Adapter = (*GMGN)(nil)

// Source returns the signal this adapter produces.
func (g *GMGN) Source() domain.Source {
	return domain.SourceSmartMoney
}

type smartTradesResponse struct {
	Trades []struct {
		Wallet       string  `json:"wallet"`
		TokenAddress string  `json:"token_address"`
		ValueUSD     float64 `json:"value_usd"`
		TxHash       string  `json:"tx_hash"`
	} `json:"trades"`
}

type walletTagsResponse struct {
	Tags []string `json:"tags"`
}

// Evaluate fetches recent large trades, keeps the ones touching the
// candidate's mint and tags each wallet. Accumulating is true when at least
// one experienced wallet bought.
func (g *GMGN) Evaluate(ctx context.Context, c *domain.Candidate) domain.SignalResult {
	start := time.Now()

	var resp smartTradesResponse
	path := fmt.Sprintf("/smartmoney/trades?min_value=%d", minSmartTradeValueUSD)
	if err := g.client.GetJSON(ctx, path, &resp); err != nil {
		return failResult(domain.SourceSmartMoney, err, start)
	}

	activity := &domain.SmartMoneyActivity{}
	seen := make(map[string]struct{})
	for _, tr := range resp.Trades {
		if tr.TokenAddress != c.Mint {
			continue
		}
		activity.BuyVolumeUSD += tr.ValueUSD

		if _, dup := seen[tr.Wallet]; dup {
			continue
		}
		seen[tr.Wallet] = struct{}{}

		// Off-curve addresses are vaults and pools, not trader wallets.
		if !solanaaddr.IsOnCurveWallet(tr.Wallet) {
			continue
		}

		var tagsResp walletTagsResponse
		if err := g.client.GetJSON(ctx, "/wallets/"+tr.Wallet+"/tags", &tagsResp); err != nil {
			// Tag lookup failing for one wallet does not void the trades
			// already observed.
			g.log.Warn().Err(err).Str("wallet", tr.Wallet).Msg("wallet tag lookup failed")
			continue
		}

		activity.Wallets = append(activity.Wallets, domain.SmartWallet{
			Address:  tr.Wallet,
			Tags:     tagsResp.Tags,
			ValueUSD: tr.ValueUSD,
		})
		if isExperiencedWallet(tagsResp.Tags) {
			activity.Accumulating = true
		}
	}

	return okResult(domain.SourceSmartMoney, domain.SignalPayload{SmartMoney: activity}, start)
}

// isExperiencedWallet reports whether any tag matches a tracked keyword.
func isExperiencedWallet(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, k := range experiencedWalletKeywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
	}
	return false
}

// OrderRequest is a venue order submission.
type OrderRequest struct {
	TokenAddress string  `json:"token_address"`
	Side         string  `json:"side"`
	Quantity     float64 `json:"quantity"`
	Type         string  `json:"type"`
	Slippage     float64 `json:"slippage"`
	ClientKey    string  `json:"client_key"`
}

// OrderAck is the venue's acceptance of a submission.
type OrderAck struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// OrderStatus is the venue's view of a submitted order.
type OrderStatus struct {
	OrderID      string  `json:"order_id"`
	Status       string  `json:"status"` // pending | partial | filled | cancelled | failed
	FilledAmount float64 `json:"filled_amount"`
	Reason       string  `json:"reason"`
}

// GMGNVenue places and polls orders against the trading venue. It shares
// the adapter's HTTP client and therefore its throttle gate.
type GMGNVenue struct {
	client *Client
}

// NewGMGNVenue creates the venue client.
func NewGMGNVenue(client *Client) *GMGNVenue {
	return &GMGNVenue{client: client}
}

// PlaceOrder submits an order. The client key makes resubmission after an
// ambiguous failure idempotent on the venue side.
func (v *GMGNVenue) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	var ack OrderAck
	if err := v.client.PostJSON(ctx, "/orders", req, &ack); err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	if ack.OrderID == "" {
		return nil, fmt.Errorf("venue accepted order without an order id")
	}
	return &ack, nil
}

// GetOrderStatus polls a submitted order.
func (v *GMGNVenue) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var st OrderStatus
	if err := v.client.GetJSON(ctx, "/orders/"+orderID, &st); err != nil {
		return nil, fmt.Errorf("get order status: %w", err)
	}
	return &st, nil
}
