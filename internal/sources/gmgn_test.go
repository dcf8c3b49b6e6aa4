package sources

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"

	"solana-token-scout/internal/domain"
	"solana-token-scout/internal/logging"
)

func TestIsExperiencedWallet(t *testing.T) {
	cases := []struct {
		tags []string
		want bool
	}{
		{[]string{"Early Investor"}, true},
		{[]string{"known insider account"}, true},
		{[]string{"Whale", "degen"}, true},
		{[]string{"VC fund"}, true},
		{[]string{"DEX Founder"}, true},
		{[]string{"degen", "paper hands"}, false},
		{nil, false},
	}

	for _, tc := range cases {
		if got := isExperiencedWallet(tc.tags); got != tc.want {
			t.Errorf("isExperiencedWallet(%v) = %v, want %v", tc.tags, got, tc.want)
		}
	}
}

// testWallet returns a freshly generated on-curve wallet address.
func testWallet(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate wallet key: %v", err)
	}
	return base58.Encode(pub)
}

func gmgnTestServer(whale, retail string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/smartmoney/trades"):
			fmt.Fprintf(w, `{"trades": [
				{"wallet": %q, "token_address": "mint1", "value_usd": 5000, "tx_hash": "tx1"},
				{"wallet": %q, "token_address": "mint1", "value_usd": 2000, "tx_hash": "tx2"},
				{"wallet": "amm-vault", "token_address": "mint1", "value_usd": 1000, "tx_hash": "tx3"},
				{"wallet": %q, "token_address": "other", "value_usd": 9000, "tx_hash": "tx4"}
			]}`, whale, retail, whale)
		case r.URL.Path == "/wallets/"+whale+"/tags":
			w.Write([]byte(`{"tags": ["Whale", "degen"]}`))
		case r.URL.Path == "/wallets/"+retail+"/tags":
			w.Write([]byte(`{"tags": ["paper hands"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGMGN_EvaluateAccumulating(t *testing.T) {
	whale, retail := testWallet(t), testWallet(t)
	srv := gmgnTestServer(whale, retail)
	defer srv.Close()

	g := NewGMGN(NewClient(srv.URL), logging.Nop())
	r := g.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeOK {
		t.Fatalf("Expected OK, got %s (%s)", r.Outcome, r.Err)
	}

	sm := r.Payload.SmartMoney
	if !sm.Accumulating {
		t.Error("Expected accumulating (whale wallet bought)")
	}
	// Only trades touching this mint count, vault volume included.
	if sm.BuyVolumeUSD != 8000 {
		t.Errorf("Expected buy volume 8000, got %f", sm.BuyVolumeUSD)
	}
	// The off-curve vault address is not a trader wallet.
	if len(sm.Wallets) != 2 {
		t.Errorf("Expected 2 wallets, got %d", len(sm.Wallets))
	}
	for _, sw := range sm.Wallets {
		if sw.Address == "amm-vault" {
			t.Error("vault address should have been filtered out")
		}
	}
}

func TestGMGN_EvaluateNoActivity(t *testing.T) {
	srv := gmgnTestServer(testWallet(t), testWallet(t))
	defer srv.Close()

	g := NewGMGN(NewClient(srv.URL), logging.Nop())
	r := g.Evaluate(context.Background(), &domain.Candidate{Mint: "unseen-mint"})

	if r.Outcome != domain.OutcomeOK {
		t.Fatalf("Expected OK, got %s", r.Outcome)
	}
	sm := r.Payload.SmartMoney
	if sm.Accumulating {
		t.Error("Expected not accumulating for mint without trades")
	}
	if sm.BuyVolumeUSD != 0 || len(sm.Wallets) != 0 {
		t.Errorf("Expected empty activity, got %+v", sm)
	}
}

func TestGMGNVenue_PlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"order_id": "ord-1", "status": "pending"}`))
	}))
	defer srv.Close()

	v := NewGMGNVenue(NewClient(srv.URL))
	ack, err := v.PlaceOrder(context.Background(), OrderRequest{
		TokenAddress: "mint1", Side: "buy", Quantity: 0.5, Type: "market", ClientKey: "ck-1",
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if ack.OrderID != "ord-1" {
		t.Errorf("Expected order id ord-1, got %s", ack.OrderID)
	}
}

func TestGMGNVenue_MissingOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "pending"}`))
	}))
	defer srv.Close()

	v := NewGMGNVenue(NewClient(srv.URL))
	_, err := v.PlaceOrder(context.Background(), OrderRequest{TokenAddress: "mint1", Side: "buy"})
	if err == nil {
		t.Fatal("Expected error for ack without order id")
	}
}

func TestGMGNVenue_GetOrderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/ord-1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"order_id": "ord-1", "status": "filled", "filled_amount": 0.5}`))
	}))
	defer srv.Close()

	v := NewGMGNVenue(NewClient(srv.URL))
	st, err := v.GetOrderStatus(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetOrderStatus failed: %v", err)
	}
	if st.Status != "filled" || st.FilledAmount != 0.5 {
		t.Errorf("Unexpected status: %+v", st)
	}
}
