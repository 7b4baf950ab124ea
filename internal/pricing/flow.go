package pricing

import (
	"fmt"
	"time"

	"bahafit/internal/model"
)

// State is a step of a single checkout attempt.
type State string

const (
	StateViewing                    State = "viewing"
	StateTierSelected               State = "tier_selected"
	StateValidated                  State = "validated"
	StateSubmitted                  State = "submitted"
	StateCompleted                  State = "completed"
	StateRedirectedToPayment        State = "redirected_to_payment"
	StatePaymentInstructionsPending State = "payment_instructions_pending"
)

var flowTransitions = map[State][]State{
	StateViewing:      {StateTierSelected},
	StateTierSelected: {StateTierSelected, StateValidated},
	StateValidated:    {StateTierSelected, StateSubmitted},
	StateSubmitted:    {StateTierSelected, StateCompleted, StateRedirectedToPayment, StatePaymentInstructionsPending},
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	_, ok := flowTransitions[s]
	return !ok
}

// Flow tracks one checkout attempt. A failure at any step returns it to
// StateTierSelected with the selected tier kept.
type Flow struct {
	state State
	quote Quote
}

// NewFlow starts a checkout attempt in StateViewing.
func NewFlow() *Flow {
	return &Flow{state: StateViewing}
}

// State returns the current step.
func (f *Flow) State() State { return f.state }

// Quote returns the quote of the selected tier.
func (f *Flow) Quote() Quote { return f.quote }

func (f *Flow) moveTo(next State) error {
	for _, allowed := range flowTransitions[f.state] {
		if allowed == next {
			f.state = next
			return nil
		}
	}
	return fmt.Errorf("checkout cannot move from %s to %s", f.state, next)
}

// SelectTier resolves the named ticket type and records the quote.
func (f *Flow) SelectTier(e *model.Event, ticketType string, now time.Time) error {
	q, err := ResolveTicketType(e, ticketType, now)
	if err != nil {
		return err
	}
	if err := f.moveTo(StateTierSelected); err != nil {
		return err
	}
	f.quote = q
	return nil
}

// Validate marks the selection as checked against capacity and submitted values.
func (f *Flow) Validate() error { return f.moveTo(StateValidated) }

// Submit marks the registration as sent for persistence.
func (f *Flow) Submit() error { return f.moveTo(StateSubmitted) }

// Fail returns the flow to the tier selection step.
func (f *Flow) Fail() {
	if !f.state.Terminal() && f.state != StateViewing {
		f.state = StateTierSelected
	}
}

// Finish moves a submitted flow to its outcome: completed for anything that
// needs no payment, redirected when the provider returned a hosted page, and
// pending manual instructions otherwise.
func (f *Flow) Finish(paymentURL string) (State, error) {
	next := StatePaymentInstructionsPending
	switch {
	case !f.quote.RequiresPayment():
		next = StateCompleted
	case paymentURL != "":
		next = StateRedirectedToPayment
	}
	if err := f.moveTo(next); err != nil {
		return f.state, err
	}
	return next, nil
}
