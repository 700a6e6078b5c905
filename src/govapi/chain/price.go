package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Quoter is the slice of Client the price tracker needs.
type Quoter interface {
	TokenPrice(ctx context.Context, amountIn *big.Int) (*big.Int, error)
}

// PriceSink receives market events.
type PriceSink interface {
	Emit(ctx context.Context, topic string, payload map[string]any) error
}

const TopicMarket = "govapi.market"

// PriceTracker owns the process-wide current token price. All reads go
// through Current; the refresh loop is the only writer.
type PriceTracker struct {
	quoter Quoter
	sink   PriceSink
	lgr    *zap.Logger
	unit   *big.Int // one whole token, 10^decimals

	mu      sync.RWMutex
	current *big.Int
	asOf    time.Time
}

func NewPriceTracker(quoter Quoter, sink PriceSink, unit *big.Int, lgr *zap.Logger) *PriceTracker {
	return &PriceTracker{quoter: quoter, sink: sink, lgr: lgr, unit: unit}
}

// Current returns the last observed price of one token in BUSD wei, and when
// it was observed. Nil until the first successful refresh.
func (t *PriceTracker) Current() (*big.Int, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return nil, time.Time{}
	}
	return new(big.Int).Set(t.current), t.asOf
}

func (t *PriceTracker) refresh(ctx context.Context) {
	price, err := t.quoter.TokenPrice(ctx, t.unit)
	if err != nil {
		t.lgr.Warn("price refresh failed", zap.Error(err))
		return
	}

	t.mu.Lock()
	t.current = price
	t.asOf = time.Now()
	t.mu.Unlock()

	if t.sink != nil {
		err = t.sink.Emit(ctx, TopicMarket, map[string]any{
			"event": "price",
			"busd":  price.String(),
			"time":  time.Now().Unix(),
		})
		if err != nil {
			t.lgr.Warn("price event emit failed", zap.Error(err))
		}
	}
}

// Run refreshes the price on interval until ctx is cancelled.
func (t *PriceTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh(ctx)
		}
	}
}
