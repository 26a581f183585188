package advisory

import "github.com/cropsathi/sathi/internal/api"

// MarketState tracks the market-price section of the dashboard, which
// loads independently of the advisory itself.
type MarketState string

const (
	// MarketPending means the price fetch for this submission is still
	// in flight.
	MarketPending MarketState = "pending"
	// MarketReady means the price series arrived and is attached.
	MarketReady MarketState = "ready"
	// MarketUnavailable means the price fetch failed; only this section
	// degrades, the advisory stays displayed.
	MarketUnavailable MarketState = "unavailable"
)

// View is the unified dashboard view-model produced by one successful
// submission. Seq identifies the submission; market results tagged with an
// older Seq are discarded.
type View struct {
	Seq      uint64           `json:"seq"`
	Crop     string           `json:"crop"`
	Stage    string           `json:"stage"`
	Advisory *api.Advisory    `json:"advisory"`
	Market   MarketState      `json:"market"`
	Prices   *api.MarketPrice `json:"prices,omitempty"`
}
