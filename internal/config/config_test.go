package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte("environment: development\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if c.Scheduler.PollInterval != 15*time.Second {
		t.Errorf("Expected default poll interval 15s, got %v", c.Scheduler.PollInterval)
	}
	if c.Scheduler.CycleTimeout != 60*time.Second {
		t.Errorf("Expected default cycle timeout 60s, got %v", c.Scheduler.CycleTimeout)
	}
	if c.Engine.MaxConcurrentEvaluations != 8 {
		t.Errorf("Expected default max concurrency 8, got %d", c.Engine.MaxConcurrentEvaluations)
	}
	if c.Filter.MinVolumeUSD != 30000 {
		t.Errorf("Expected default min volume 30000, got %f", c.Filter.MinVolumeUSD)
	}
	if c.Storage.Backend != "memory" {
		t.Errorf("Expected default backend memory, got %s", c.Storage.Backend)
	}
	if c.Sources.GMGN.Timeout != 10*time.Second {
		t.Errorf("Expected default source timeout 10s, got %v", c.Sources.GMGN.Timeout)
	}
}

func TestParse_Overrides(t *testing.T) {
	yaml := `
environment: production
scheduler:
  poll_interval: 5s
filter:
  min_volume_usd: 50000
  min_holders: 300
decision:
  max_top_holder_share: 0.3
sources:
  rugcheck:
    base_url: https://api.rugcheck.xyz
    rate_limit: 1
    burst: 2
`
	c, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if c.Scheduler.PollInterval != 5*time.Second {
		t.Errorf("Expected poll interval 5s, got %v", c.Scheduler.PollInterval)
	}
	if c.Filter.MinHolders != 300 {
		t.Errorf("Expected min holders 300, got %d", c.Filter.MinHolders)
	}
	if c.Decision.MaxTopHolderShare != 0.3 {
		t.Errorf("Expected max top holder share 0.3, got %f", c.Decision.MaxTopHolderShare)
	}
	if c.Sources.Rugcheck.RateLimit != 1 {
		t.Errorf("Expected rugcheck rate limit 1, got %f", c.Sources.Rugcheck.RateLimit)
	}
	// Untouched defaults survive partial overrides
	if c.Sources.Rugcheck.Timeout != 10*time.Second {
		t.Errorf("Expected default rugcheck timeout, got %v", c.Sources.Rugcheck.Timeout)
	}
}

func TestParse_InvalidEnvironment(t *testing.T) {
	_, err := Parse([]byte("environment: testing\n"))
	if err == nil {
		t.Fatal("Expected validation error for unknown environment")
	}
}

func TestParse_PostgresRequiresDSN(t *testing.T) {
	yaml := `
environment: development
storage:
  backend: postgres
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Expected error for postgres backend without DSN")
	}
	if !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestParse_SentimentBandOrdering(t *testing.T) {
	yaml := `
environment: development
decision:
  min_sentiment: 50
  watch_sentiment: 60
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Expected error for watch_sentiment above min_sentiment")
	}
}

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if c.Engine.RetryBudget != 2 {
		t.Errorf("Expected default retry budget 2, got %d", c.Engine.RetryBudget)
	}
	if c.Execution.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", c.Execution.MaxRetries)
	}
}
