package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/logging"
)

func testThresholds() FilterThresholds {
	return FilterThresholds{
		MinVolumeUSD:    30000,
		MaxAge:          24 * time.Hour,
		MinHolders:      200,
		MinLiquidityUSD: 10000,
	}
}

func pairJSON(volume, liquidity float64, holders int, createdAt int64) string {
	return fmt.Sprintf(`{
		"pairs": [{
			"baseToken": {"address": "mint1", "symbol": "TST", "name": "Test"},
			"volume": {"h24": %f},
			"liquidity": {"usd": %f},
			"holders": %d,
			"pairCreatedAt": %d
		}]
	}`, volume, liquidity, holders, createdAt)
}

func TestDexscreener_EvaluatePass(t *testing.T) {
	createdAt := time.Now().Add(-2 * time.Hour).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pairJSON(50000, 20000, 500, createdAt)))
	}))
	defer srv.Close()

	d := NewDexscreener(NewClient(srv.URL), testThresholds(), logging.Nop())
	r := d.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeOK {
		t.Fatalf("Expected OK, got %s (%s)", r.Outcome, r.Err)
	}
	if !r.Payload.Filter.Pass {
		t.Errorf("Expected pass, got fail reason %q", r.Payload.Filter.FailReason)
	}
}

func TestDexscreener_EvaluateFailures(t *testing.T) {
	recent := time.Now().Add(-2 * time.Hour).UnixMilli()
	old := time.Now().Add(-48 * time.Hour).UnixMilli()

	cases := []struct {
		name       string
		body       string
		failReason string
	}{
		{"low volume", pairJSON(1000, 20000, 500, recent), "volume"},
		{"too old", pairJSON(50000, 20000, 500, old), "age"},
		{"few holders", pairJSON(50000, 20000, 10, recent), "holders"},
		{"thin liquidity", pairJSON(50000, 500, 500, recent), "liquidity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			d := NewDexscreener(NewClient(srv.URL), testThresholds(), logging.Nop())
			r := d.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

			if r.Outcome != domain.OutcomeOK {
				t.Fatalf("Expected OK, got %s", r.Outcome)
			}
			if r.Payload.Filter.Pass {
				t.Fatal("Expected fail")
			}
			if r.Payload.Filter.FailReason != tc.failReason {
				t.Errorf("Expected fail reason %q, got %q", tc.failReason, r.Payload.Filter.FailReason)
			}
		})
	}
}

func TestDexscreener_PicksHighestVolumePair(t *testing.T) {
	createdAt := time.Now().Add(-2 * time.Hour).UnixMilli()
	body := fmt.Sprintf(`{
		"pairs": [
			{"volume": {"h24": 100}, "liquidity": {"usd": 20000}, "holders": 500, "pairCreatedAt": %d},
			{"volume": {"h24": 90000}, "liquidity": {"usd": 20000}, "holders": 500, "pairCreatedAt": %d}
		]
	}`, createdAt, createdAt)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	d := NewDexscreener(NewClient(srv.URL), testThresholds(), logging.Nop())
	r := d.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeOK {
		t.Fatalf("Expected OK, got %s", r.Outcome)
	}
	if r.Payload.Filter.VolumeUSD != 90000 {
		t.Errorf("Expected highest-volume pair, got volume %f", r.Payload.Filter.VolumeUSD)
	}
}

func TestDexscreener_NoPairsIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs": []}`))
	}))
	defer srv.Close()

	d := NewDexscreener(NewClient(srv.URL), testThresholds(), logging.Nop())
	r := d.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeError {
		t.Errorf("Expected ERROR for unlisted mint, got %s", r.Outcome)
	}
}

func TestDexscreener_Discover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-profiles/latest/v1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[
			{"chainId": "solana", "tokenAddress": "mintA", "symbol": "AAA", "name": "Token A"},
			{"chainId": "ethereum", "tokenAddress": "0xdead", "symbol": "ETH", "name": "Not Solana"},
			{"chainId": "solana", "tokenAddress": "mintB", "symbol": "BBB", "name": "Token B"}
		]`))
	}))
	defer srv.Close()

	d := NewDexscreener(NewClient(srv.URL), testThresholds(), logging.Nop())
	tokens, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("Expected 2 solana tokens, got %d", len(tokens))
	}
	if tokens[0].Mint != "mintA" || tokens[1].Mint != "mintB" {
		t.Errorf("Unexpected tokens: %+v", tokens)
	}
	if tokens[0].Source != "dexscreener" {
		t.Errorf("Expected source dexscreener, got %s", tokens[0].Source)
	}
}

func TestDexscreener_TimeoutOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTimeout(30*time.Millisecond), WithMaxRetries(0))
	d := NewDexscreener(client, testThresholds(), logging.Nop())
	r := d.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeTimeout {
		t.Errorf("Expected TIMEOUT, got %s (%s)", r.Outcome, r.Err)
	}
}
