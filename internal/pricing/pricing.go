// Package pricing resolves what a ticket costs at a given moment: tier
// selection, early-bird windows, free events and remaining capacity. It is
// pure; callers pass the clock in.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "bahafit/internal/errors"
	"bahafit/internal/model"
)

// FreeLabel is shown instead of a price for free events.
const FreeLabel = "Free"

// Quote is the resolved price of one ticket option.
type Quote struct {
	TierIndex     int             `json:"tierIndex"`
	TicketType    string          `json:"ticketType,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StandardPrice decimal.Decimal `json:"standardPrice"`
	Savings       decimal.Decimal `json:"savings"`
	Currency      string          `json:"currency,omitempty"`
	IsFree        bool            `json:"isFree"`
	IsEarlyBird   bool            `json:"isEarlyBird"`
	Display       string          `json:"display"`
	Includes      []string        `json:"includes,omitempty"`
	SpotsLeft     *int            `json:"spotsLeft,omitempty"`
}

// RequiresPayment reports whether the quote must be settled with the payment provider.
func (q Quote) RequiresPayment() bool {
	return !q.IsFree && q.Price.GreaterThan(decimal.Zero)
}

// IsEarlyBird reports whether now falls before the event's early-bird deadline.
func IsEarlyBird(e *model.Event, now time.Time) bool {
	return e.EarlyBirdDeadline != nil && now.Before(*e.EarlyBirdDeadline)
}

// Resolve prices the tier at index for event e at time now. Events without
// tiers ignore the index and fall back to the flat price.
func Resolve(e *model.Event, tierIndex int, now time.Time) (Quote, error) {
	if len(e.Pricing) > 0 && (tierIndex < 0 || tierIndex >= len(e.Pricing)) {
		return Quote{}, fmt.Errorf("%w: ticket option %d does not exist", apperrors.ErrValidationFailed, tierIndex)
	}

	if e.IsFree {
		q := Quote{
			TierIndex: -1,
			IsFree:    true,
			Price:     decimal.Zero,
			Display:   FreeLabel,
			Currency:  e.Currency,
		}
		if len(e.Pricing) > 0 {
			tier := e.Pricing[tierIndex]
			q.TierIndex = tierIndex
			q.TicketType = tier.TierName
			q.Includes = tier.Includes
		}
		return q, nil
	}

	if len(e.Pricing) == 0 {
		price := decimal.Zero
		if e.Price != nil {
			price = *e.Price
		}
		return Quote{
			TierIndex:     -1,
			Price:         price,
			StandardPrice: price,
			Savings:       decimal.Zero,
			Currency:      e.Currency,
			Display:       FormatPrice(price, e.Currency),
		}, nil
	}

	tier := e.Pricing[tierIndex]
	q := Quote{
		TierIndex:     tierIndex,
		TicketType:    tier.TierName,
		Price:         tier.Price,
		StandardPrice: tier.Price,
		Savings:       decimal.Zero,
		Currency:      tier.Currency,
		Includes:      tier.Includes,
	}
	if IsEarlyBird(e, now) && tier.EarlyBirdPrice != nil {
		q.IsEarlyBird = true
		q.Price = *tier.EarlyBirdPrice
		q.Savings = tier.Price.Sub(*tier.EarlyBirdPrice)
	}
	q.Display = FormatPrice(q.Price, q.Currency)
	return q, nil
}

// ResolveTicketType prices the tier named ticketType. An empty name selects
// the first tier.
func ResolveTicketType(e *model.Event, ticketType string, now time.Time) (Quote, error) {
	if len(e.Pricing) == 0 || ticketType == "" {
		return Resolve(e, 0, now)
	}
	idx := e.TierByName(ticketType)
	if idx < 0 {
		return Quote{}, fmt.Errorf("%w: ticket type %q does not exist", apperrors.ErrValidationFailed, ticketType)
	}
	return Resolve(e, idx, now)
}

// SoldOut reports whether the event has a capacity and no spots left.
func SoldOut(e *model.Event) bool {
	left := e.SpotsLeft()
	return left != nil && *left <= 0
}

// FormatPrice renders an amount with exactly two decimals.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return currency + " " + amount.StringFixed(2)
}
