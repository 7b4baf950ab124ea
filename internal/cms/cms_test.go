package cms

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahafit/internal/model"
)

const ndjsonExport = `{"_id":"evt-1","_type":"fitnessEvent","title":"Nassau 5K","slug":{"_type":"slug","current":"nassau-5k"},"eventType":"running","startDate":"2025-04-12T11:00:00Z","status":"published","currency":"USD","earlyBirdDeadline":"2025-03-15T00:00:00Z","pricing":[{"_key":"a","tierName":"General","price":50,"currency":"USD","earlyBirdPrice":35}],"location":{"venueName":"Arawak Cay","island":"New Providence"}}
{"_id":"drafts.evt-1","_type":"fitnessEvent","title":"Nassau 5K (draft)","slug":{"current":"nassau-5k"}}
{"_id":"lst-1","_type":"listing","name":"Paradise Gym","slug":{"current":"paradise-gym"},"category":"gym","status":"published","verified":true}
{"_id":"img-1","_type":"sanity.imageAsset"}
`

func TestDecode_NDJSON(t *testing.T) {
	export, err := Decode(strings.NewReader(ndjsonExport))
	require.NoError(t, err)

	require.Len(t, export.Events, 1)
	require.Len(t, export.Listings, 1)
	assert.Equal(t, 2, export.Skipped)

	e := export.Events[0]
	assert.Equal(t, "nassau-5k", e.Slug)
	assert.Equal(t, model.EventOriginCMS, e.Origin)
	assert.Equal(t, "evt-1", e.ExternalID)
	assert.True(t, e.RequiresRegistration)
	require.Len(t, e.Pricing, 1)
	assert.True(t, e.Pricing[0].Price.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, e.Pricing[0].EarlyBirdPrice)
	assert.True(t, e.Pricing[0].EarlyBirdPrice.Equal(decimal.NewFromInt(35)))
	assert.Equal(t, "New Providence", e.Location.Island)

	l := export.Listings[0]
	assert.Equal(t, "paradise-gym", l.Slug)
	assert.True(t, l.Verified)
}

func TestDecode_Array(t *testing.T) {
	export, err := Decode(strings.NewReader(` [{"_id":"lst-2","_type":"listing","name":"Studio","slug":{"current":"studio"},"status":"bogus"}]`))
	require.NoError(t, err)
	require.Len(t, export.Listings, 1)
	assert.Equal(t, model.EventStatusDraft, export.Listings[0].Status)
}

func TestDecode_MissingSlug(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"_id":"x","_type":"listing","name":"No slug"}`))
	assert.ErrorIs(t, err, ErrMissingSlug)
}

func TestSchema(t *testing.T) {
	assert.True(t, ValidEventType("running"))
	assert.False(t, ValidEventType("chess"))
	assert.True(t, ValidListingCategory("gym"))
	assert.GreaterOrEqual(t, len(EventTypes), 20)
	assert.Len(t, Current().EventStatuses, 7)
}
