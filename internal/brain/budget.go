package brain

import (
	"sync"
	"time"
)

// ModelUsage accumulates token counts across a Tier 3 conversation's turns.
type ModelUsage struct {
	InputTokens       int64
	OutputTokens      int64
	CachedInputTokens int64
}

// Add folds other into usage, returning the sum.
func (u ModelUsage) Add(other ModelUsage) ModelUsage {
	return ModelUsage{
		InputTokens:       u.InputTokens + other.InputTokens,
		OutputTokens:      u.OutputTokens + other.OutputTokens,
		CachedInputTokens: u.CachedInputTokens + other.CachedInputTokens,
	}
}

// ModelPrice is one model's per-million-token USD rate, the fixed price
// sheet usage converts against.
type ModelPrice struct {
	InputPerMillion       float64
	OutputPerMillion      float64
	CachedInputPerMillion float64
}

// defaultModel is the price-sheet key used when a model name has no entry
// of its own.
const defaultModel = "default"

// DefaultPriceSheet is a conservative placeholder rate card holding only
// the default entry, so any configured model.name is priced at this rate.
func DefaultPriceSheet() map[string]ModelPrice {
	return map[string]ModelPrice{
		defaultModel: {InputPerMillion: 3.0, OutputPerMillion: 15.0, CachedInputPerMillion: 0.3},
	}
}

// Budget is the running monthly USD total that gates Tier 3.
// The month key resets the total automatically on the first Record or
// WithinBudget call that lands in a new month.
type Budget struct {
	mu       sync.Mutex
	prices   map[string]ModelPrice
	clock    func() time.Time
	month    string
	spentUSD float64
}

// NewBudget constructs a budget tracker with the given price sheet. clock
// defaults to time.Now; tests substitute a fixed clock to exercise the
// monthly reset.
func NewBudget(prices map[string]ModelPrice, clock func() time.Time) *Budget {
	if prices == nil {
		prices = DefaultPriceSheet()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Budget{prices: prices, clock: clock}
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

// resetIfNewMonth must be called with mu held.
func (b *Budget) resetIfNewMonth(now time.Time) {
	key := monthKey(now)
	if key != b.month {
		b.month = key
		b.spentUSD = 0
	}
}

// Record converts usage to USD via model's price-sheet entry (or the
// default entry if model is unrecognized) and adds it to the running
// monthly total.
func (b *Budget) Record(model string, usage ModelUsage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewMonth(b.clock())

	price, ok := b.prices[model]
	if !ok {
		price = b.prices[defaultModel]
	}
	cost := float64(usage.InputTokens)/1e6*price.InputPerMillion +
		float64(usage.OutputTokens)/1e6*price.OutputPerMillion +
		float64(usage.CachedInputTokens)/1e6*price.CachedInputPerMillion
	b.spentUSD += cost
}

// SpentUSD returns the current month's running total.
func (b *Budget) SpentUSD() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewMonth(b.clock())
	return b.spentUSD
}

// WithinBudget reports whether the running total is strictly below limit.
// Exactly at the limit counts as exceeded.
func (b *Budget) WithinBudget(limit float64) bool {
	return b.SpentUSD() < limit
}
