package domain

// TradeState is the execution state machine position of a TradeRecord.
type TradeState string

const (
	TradePending         TradeState = "PENDING"
	TradeSubmitted       TradeState = "SUBMITTED"
	TradePartiallyFilled TradeState = "PARTIALLY_FILLED"
	TradeFilled          TradeState = "FILLED"
	TradeRejectedByVenue TradeState = "REJECTED_BY_VENUE"
	TradeTimedOut        TradeState = "TIMED_OUT"
	TradeAborted         TradeState = "ABORTED"
)

// tradeTransitions is the legal transition table. The only backward edge is
// retry-from-failed (REJECTED_BY_VENUE / TIMED_OUT back to SUBMITTED).
var tradeTransitions = map[TradeState][]TradeState{
	TradePending:         {TradeSubmitted, TradeAborted},
	TradeSubmitted:       {TradePartiallyFilled, TradeFilled, TradeRejectedByVenue, TradeTimedOut},
	TradePartiallyFilled: {TradeFilled, TradeTimedOut},
	TradeRejectedByVenue: {TradeSubmitted, TradeAborted},
	TradeTimedOut:        {TradeSubmitted, TradeAborted},
}

// CanTransitionTrade reports whether a trade state change is legal.
func CanTransitionTrade(from, to TradeState) bool {
	for _, next := range tradeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends the trade's lifecycle.
func (s TradeState) Terminal() bool {
	return s == TradeFilled || s == TradeAborted
}

// TradeRecord tracks one order through submission and settlement.
// Corresponds to the trade_records table in PostgreSQL; every state change
// is persisted before the next action is taken.
type TradeRecord struct {
	TradeID      string // deterministic hash
	CandidateID  string
	Mint         string
	Side         string  // "buy"
	Size         float64 // requested size in base units
	State        TradeState
	ClientKey    string // idempotency key sent to the venue
	VenueOrderID string // assigned by the venue on acceptance
	FilledSize   float64
	RetryCount   int
	LastError    string
	CreatedAt    int64 // ms
	UpdatedAt    int64 // ms
}
