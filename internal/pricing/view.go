package pricing

import (
	"time"

	"bahafit/internal/model"
)

// CheckoutView is what the checkout page renders for an event.
type CheckoutView struct {
	Event             *model.Event `json:"event"`
	Quotes            []Quote      `json:"quotes"`
	SpotsLeft         *int         `json:"spotsLeft,omitempty"`
	SoldOut           bool         `json:"soldOut"`
	CanRegister       bool         `json:"canRegister"`
	IsEarlyBird       bool         `json:"isEarlyBird"`
	EarlyBirdDeadline *time.Time   `json:"earlyBirdDeadline,omitempty"`
	State             State        `json:"state"`
}

// BuildView prices every ticket option of e at time now. tierCounts holds the
// registrations currently holding a spot per ticket type.
func BuildView(e *model.Event, tierCounts map[string]int64, now time.Time) CheckoutView {
	v := CheckoutView{
		Event:             e,
		SpotsLeft:         e.SpotsLeft(),
		SoldOut:           SoldOut(e),
		IsEarlyBird:       IsEarlyBird(e, now),
		EarlyBirdDeadline: e.EarlyBirdDeadline,
		State:             StateViewing,
	}

	if len(e.Pricing) == 0 {
		if q, err := Resolve(e, 0, now); err == nil {
			v.Quotes = append(v.Quotes, q)
		}
	}
	for i, tier := range e.Pricing {
		q, err := Resolve(e, i, now)
		if err != nil {
			continue
		}
		if tier.Capacity != nil {
			left := *tier.Capacity - int(tierCounts[tier.TierName])
			if left < 0 {
				left = 0
			}
			q.SpotsLeft = &left
		}
		v.Quotes = append(v.Quotes, q)
	}

	v.CanRegister = e.Status == model.EventStatusPublished && e.RequiresRegistration && !v.SoldOut
	return v
}
