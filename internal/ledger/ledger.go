// Package ledger maintains the append-only, per-product stock movement log
// and the running on-hand totals derived from it. The log is the source of
// truth; the running total is a cache that must match a full replay at all
// times.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/store"
)

// ErrMalformedMovement means a movement failed structural validation.
// Business validation (over-receipt, insufficient stock) happens upstream
// in the reconciler; the ledger only refuses entries it cannot record.
var ErrMalformedMovement = errors.New("malformed movement")

type Ledger struct {
	store store.Store
	log   *zap.Logger
}

func New(s store.Store, log *zap.Logger) *Ledger {
	return &Ledger{store: s, log: log}
}

// Append assigns the next per-product sequence number, writes the movement,
// and folds its delta into the running total. Must be called inside the
// coordinator's transaction, with the product's writer lock held.
func (l *Ledger) Append(ctx context.Context, m *models.StockMovement) error {
	if m.ProductSKU == "" {
		return fmt.Errorf("%w: product is required", ErrMalformedMovement)
	}
	if m.QtyDelta.IsZero() {
		return fmt.Errorf("%w: zero quantity delta", ErrMalformedMovement)
	}
	switch m.Kind {
	case models.MovementReceipt:
		if !m.QtyDelta.IsPositive() {
			return fmt.Errorf("%w: receipt delta must be positive", ErrMalformedMovement)
		}
	case models.MovementDispatch:
		if !m.QtyDelta.IsNegative() {
			return fmt.Errorf("%w: dispatch delta must be negative", ErrMalformedMovement)
		}
	case models.MovementAdjustment:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedMovement, m.Kind)
	}

	if err := l.store.AppendMovement(ctx, m); err != nil {
		return err
	}
	return l.store.ApplyStockDelta(ctx, m.ProductSKU, m.QtyDelta, m.Seq)
}

// OnHand answers from the running-total cache.
func (l *Ledger) OnHand(ctx context.Context, productSKU string) (models.StockLevel, error) {
	return l.store.GetStockLevel(ctx, productSKU)
}

// Replay recomputes the on-hand quantity for a product from the full
// movement log.
func (l *Ledger) Replay(ctx context.Context, productSKU string) (decimal.Decimal, error) {
	movements, err := l.store.ListMovements(ctx, productSKU)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(m.QtyDelta)
	}
	return total, nil
}

// Drift is a product whose cached total disagrees with a full replay.
type Drift struct {
	ProductSKU string          `json:"productSKU"`
	Cached     decimal.Decimal `json:"cached"`
	Replayed   decimal.Decimal `json:"replayed"`
}

// Verify replays every product's movement log and compares against the
// cached totals. An empty result means the cache is consistent.
func (l *Ledger) Verify(ctx context.Context) ([]Drift, error) {
	products, err := l.store.ListMovementProducts(ctx)
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	for _, sku := range products {
		replayed, err := l.Replay(ctx, sku)
		if err != nil {
			return nil, err
		}
		level, err := l.store.GetStockLevel(ctx, sku)
		if err != nil {
			return nil, err
		}
		if !level.OnHand.Equal(replayed) {
			drifts = append(drifts, Drift{ProductSKU: sku, Cached: level.OnHand, Replayed: replayed})
		}
	}
	return drifts, nil
}

// RunPeriodicVerify runs Verify on a ticker until ctx is cancelled,
// logging any drift it finds. Drift is an operational alarm, not something
// the job repairs on its own.
func (l *Ledger) RunPeriodicVerify(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drifts, err := l.Verify(ctx)
			if err != nil {
				l.log.Error("ledger verification failed", zap.Error(err))
				continue
			}
			for _, d := range drifts {
				l.log.Error("stock level cache drift",
					zap.String("product", d.ProductSKU),
					zap.String("cached", d.Cached.String()),
					zap.String("replayed", d.Replayed.String()),
				)
			}
			if len(drifts) == 0 {
				l.log.Debug("ledger verification clean")
			}
		}
	}
}
