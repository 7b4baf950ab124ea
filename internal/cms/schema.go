// Package cms holds the content model shared with the headless CMS and
// decodes its document exports into catalog records.
package cms

import (
	"slices"

	"bahafit/internal/model"
)

// Option is a value/label pair as offered by the CMS pick lists.
type Option struct {
	Value string `json:"value"`
	Title string `json:"title"`
}

// EventTypes are the values accepted for an event's eventType.
var EventTypes = []Option{
	{"running", "Running & 5K/10K"},
	{"marathon", "Marathon & Half Marathon"},
	{"triathlon", "Triathlon"},
	{"cycling", "Cycling"},
	{"swimming", "Open Water Swimming"},
	{"yoga", "Yoga"},
	{"pilates", "Pilates"},
	{"crossfit", "CrossFit"},
	{"bootcamp", "Bootcamp"},
	{"hiit", "HIIT"},
	{"dance", "Dance Fitness"},
	{"martial_arts", "Martial Arts"},
	{"boxing", "Boxing"},
	{"paddleboard", "Paddleboarding"},
	{"hiking", "Hiking"},
	{"beach_volleyball", "Beach Volleyball"},
	{"wellness_retreat", "Wellness Retreat"},
	{"workshop", "Workshop & Clinic"},
	{"competition", "Competition"},
	{"charity", "Charity Event"},
	{"other", "Other"},
}

// EventStatuses in the order editors see them.
var EventStatuses = []model.EventStatus{
	model.EventStatusDraft,
	model.EventStatusPending,
	model.EventStatusPublished,
	model.EventStatusCancelled,
	model.EventStatusPostponed,
	model.EventStatusCompleted,
	model.EventStatusArchived,
}

// ListingCategories are the directory business categories.
var ListingCategories = []Option{
	{"gym", "Gym"},
	{"studio", "Studio"},
	{"personal_trainer", "Personal Trainer"},
	{"yoga_studio", "Yoga Studio"},
	{"martial_arts", "Martial Arts School"},
	{"sports_club", "Sports Club"},
	{"nutritionist", "Nutritionist"},
	{"physiotherapy", "Physiotherapy"},
	{"spa_wellness", "Spa & Wellness"},
	{"outdoor", "Outdoor & Adventure"},
}

// Islands covered by the directory.
var Islands = []string{
	"New Providence",
	"Grand Bahama",
	"Abaco",
	"Andros",
	"Eleuthera",
	"Exuma",
	"Bimini",
	"Long Island",
	"Cat Island",
	"Harbour Island",
}

// Currencies accepted on pricing tiers.
var Currencies = []string{"BSD", "USD"}

func hasValue(opts []Option, v string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v })
}

// ValidEventType reports whether v is a known event type.
func ValidEventType(v string) bool { return hasValue(EventTypes, v) }

// ValidListingCategory reports whether v is a known listing category.
func ValidListingCategory(v string) bool { return hasValue(ListingCategories, v) }

// Schema is the whole content model, served to clients that build forms.
type Schema struct {
	EventTypes        []Option            `json:"eventTypes"`
	EventStatuses     []model.EventStatus `json:"eventStatuses"`
	ListingCategories []Option            `json:"listingCategories"`
	Islands           []string            `json:"islands"`
	Currencies        []string            `json:"currencies"`
}

// Current returns the content model.
func Current() Schema {
	return Schema{
		EventTypes:        EventTypes,
		EventStatuses:     EventStatuses,
		ListingCategories: ListingCategories,
		Islands:           Islands,
		Currencies:        Currencies,
	}
}
