package domain

// DiscoveredToken is the raw discovery-feed view of a token: identity plus
// the minimal metadata the filter stage consumes.
type DiscoveredToken struct {
	Mint         string
	Symbol       string
	Name         string
	VolumeUSD    float64
	LiquidityUSD float64
	AgeHours     float64
	Source       string // feed that produced the sighting
}
