package service

import (
	"net/url"
	"strings"

	"bahafit/internal/model"
)

// SiteURLs builds payment return pages on the public site.
type SiteURLs struct {
	base string
}

// NewSiteURLs returns a URLBuilder rooted at base, e.g. https://bahafit.com.
func NewSiteURLs(base string) *SiteURLs {
	return &SiteURLs{base: strings.TrimRight(base, "/")}
}

// PaymentSuccessURL lands on the dashboard, where the registration shows as
// confirmed once the webhook has arrived.
func (u *SiteURLs) PaymentSuccessURL(reg *model.Registration) string {
	q := url.Values{"registration": {reg.ID.String()}, "payment": {"success"}}
	return u.base + "/dashboard?" + q.Encode()
}

// PaymentCancelURL returns to the event checkout.
func (u *SiteURLs) PaymentCancelURL(reg *model.Registration, eventSlug string) string {
	q := url.Values{"registration": {reg.ID.String()}, "payment": {"cancelled"}}
	return u.base + "/events/" + url.PathEscape(eventSlug) + "/checkout?" + q.Encode()
}
