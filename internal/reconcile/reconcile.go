// Package reconcile holds the quantity arithmetic shared by receiving and
// dispatching: ordered vs cumulatively-received vs cumulatively-dispatched
// per line item, and product-level availability. All quantities are exact
// decimals and comparisons are exact; nothing is ever silently clamped.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"hospitality-procurement-api-server/internal/models"
)

var (
	// ErrOverReceipt means a receipt would push a line item past its
	// ordered quantity. Excess deliveries must surface as errors so that
	// supplier discrepancies are not hidden.
	ErrOverReceipt = errors.New("over receipt")
	// ErrInsufficientStock means a dispatch would exceed the on-hand
	// quantity of the product.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrQuantity means a quantity failed structural validation.
	ErrQuantity = errors.New("quantity must be positive")
)

// Fulfillment classification of a set of line items.
const (
	FulfillmentNone     = "NONE"
	FulfillmentPartial  = "PARTIAL"
	FulfillmentComplete = "COMPLETE"
)

// RemainingToReceive is orderedQty - receivedQty for one line item.
func RemainingToReceive(item models.LineItem) decimal.Decimal {
	return item.OrderedQty.Sub(item.ReceivedQty)
}

// ApplyReceipt increments the line item's received counter by qty. The
// counter never exceeds the ordered quantity.
func ApplyReceipt(item *models.LineItem, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return ErrQuantity
	}
	remaining := RemainingToReceive(*item)
	if qty.GreaterThan(remaining) {
		return fmt.Errorf("%w: %s exceeds remaining %s for line %s",
			ErrOverReceipt, qty, remaining, item.LineItemID)
	}
	item.ReceivedQty = item.ReceivedQty.Add(qty)
	return nil
}

// CheckDispatch validates a dispatch of qty against the product's on-hand
// pool and returns the ledger delta to append.
func CheckDispatch(onHand, qty decimal.Decimal) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, ErrQuantity
	}
	if qty.GreaterThan(onHand) {
		return decimal.Zero, fmt.Errorf("%w: %s exceeds on-hand %s",
			ErrInsufficientStock, qty, onHand)
	}
	return qty.Neg(), nil
}

// AllocateDispatch distributes a dispatched quantity across line items of
// the product in the order given, incrementing each DispatchedQty up to its
// ReceivedQty. Stock that entered the pool through adjustments has no line
// item to attribute, so the returned unallocated remainder may be positive.
func AllocateDispatch(items []*models.LineItem, qty decimal.Decimal) decimal.Decimal {
	remaining := qty
	for _, item := range items {
		if !remaining.IsPositive() {
			break
		}
		free := item.ReceivedQty.Sub(item.DispatchedQty)
		if !free.IsPositive() {
			continue
		}
		take := decimal.Min(free, remaining)
		item.DispatchedQty = item.DispatchedQty.Add(take)
		remaining = remaining.Sub(take)
	}
	return remaining
}

// Classify reports whether the items are unreceived, partially received, or
// fully received. Complete means every line's received counter equals its
// ordered quantity exactly.
func Classify(items []models.LineItem) string {
	complete := len(items) > 0
	any := false
	for _, item := range items {
		if item.ReceivedQty.IsPositive() {
			any = true
		}
		if !item.ReceivedQty.Equal(item.OrderedQty) {
			complete = false
		}
	}
	if complete {
		return FulfillmentComplete
	}
	if any {
		return FulfillmentPartial
	}
	return FulfillmentNone
}

// CheckInvariants verifies 0 <= dispatched <= received <= ordered for every
// line item. It backs tests and the operational ledger check.
func CheckInvariants(items []models.LineItem) error {
	for _, item := range items {
		if item.DispatchedQty.IsNegative() ||
			item.DispatchedQty.GreaterThan(item.ReceivedQty) ||
			item.ReceivedQty.GreaterThan(item.OrderedQty) {
			return fmt.Errorf("line %s violates quantity bounds: ordered=%s received=%s dispatched=%s",
				item.LineItemID, item.OrderedQty, item.ReceivedQty, item.DispatchedQty)
		}
	}
	return nil
}
