package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"solana-token-scout/internal/domain"
)

func TestRugcheck_Verdicts(t *testing.T) {
	cases := []struct {
		verdict string
		want    string
	}{
		{"safe", domain.VettingSafe},
		{"Suspicious", domain.VettingSuspicious},
		{"FRAUDULENT", domain.VettingFraudulent},
	}

	for _, tc := range cases {
		t.Run(tc.verdict, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req auditRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Contract == "" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				fmt.Fprintf(w, `{"verdict": %q, "detail": "checked"}`, tc.verdict)
			}))
			defer srv.Close()

			rc := NewRugcheck(NewClient(srv.URL))
			r := rc.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

			if r.Outcome != domain.OutcomeOK {
				t.Fatalf("Expected OK, got %s (%s)", r.Outcome, r.Err)
			}
			if r.Payload.Vetting.Verdict != tc.want {
				t.Errorf("Expected verdict %q, got %q", tc.want, r.Payload.Vetting.Verdict)
			}
		})
	}
}

func TestRugcheck_UnknownVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verdict": "maybe"}`))
	}))
	defer srv.Close()

	rc := NewRugcheck(NewClient(srv.URL))
	r := rc.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeError {
		t.Errorf("Expected ERROR for unknown verdict, got %s", r.Outcome)
	}
}

func TestRugcheck_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rc := NewRugcheck(NewClient(srv.URL))
	r := rc.Evaluate(context.Background(), &domain.Candidate{Mint: "mint1"})

	if r.Outcome != domain.OutcomeRateLimited {
		t.Errorf("Expected RATE_LIMITED, got %s", r.Outcome)
	}
}
