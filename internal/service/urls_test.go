package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"bahafit/internal/model"
)

func TestSiteURLs(t *testing.T) {
	id := uuid.MustParse("9b2f6c1e-1d3a-4c52-9a83-2f1f0c7e4b11")
	reg := &model.Registration{ID: id}
	urls := NewSiteURLs("https://bahafit.test/")

	assert.Equal(t,
		"https://bahafit.test/dashboard?payment=success&registration="+id.String(),
		urls.PaymentSuccessURL(reg),
	)
	assert.Equal(t,
		"https://bahafit.test/events/nassau-5k/checkout?payment=cancelled&registration="+id.String(),
		urls.PaymentCancelURL(reg, "nassau-5k"),
	)
}
