package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from RegistrationStatus
		to   RegistrationStatus
		want bool
	}{
		{RegistrationStatusPending, RegistrationStatusConfirmed, true},
		{RegistrationStatusPending, RegistrationStatusCancelled, true},
		{RegistrationStatusPending, RegistrationStatusCheckedIn, false},
		{RegistrationStatusConfirmed, RegistrationStatusCheckedIn, true},
		{RegistrationStatusConfirmed, RegistrationStatusCancelled, true},
		{RegistrationStatusCheckedIn, RegistrationStatusCancelled, true},
		{RegistrationStatusCheckedIn, RegistrationStatusConfirmed, false},
		{RegistrationStatusCancelled, RegistrationStatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEventStatus_OwnerCanMoveTo(t *testing.T) {
	tests := []struct {
		from EventStatus
		to   EventStatus
		want bool
	}{
		{EventStatusDraft, EventStatusPublished, true},
		{EventStatusPublished, EventStatusDraft, true},
		{EventStatusPublished, EventStatusPostponed, true},
		{EventStatusPostponed, EventStatusPublished, false},
		{EventStatusPending, EventStatusPublished, false},
		{EventStatusArchived, EventStatusPublished, false},
		{EventStatusArchived, EventStatusArchived, false},
		{EventStatusCancelled, EventStatusPublished, false},
		{EventStatusCompleted, EventStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.OwnerCanMoveTo(tt.to))
		})
	}

	assert.ElementsMatch(t, []EventStatus{EventStatusDraft, EventStatusPublished}, OwnerSourcesFor(EventStatusPublished))
	assert.Empty(t, OwnerSourcesFor(EventStatusArchived))
}
