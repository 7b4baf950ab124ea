package cms

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bahafit/internal/model"
)

// Document types carried by an export.
const (
	TypeFitnessEvent = "fitnessEvent"
	TypeListing      = "listing"
)

type slugField struct {
	Current string `json:"current"`
}

// Document is one CMS export record. Fields not used by either content type
// are left zero.
type Document struct {
	ID   string    `json:"_id"`
	Type string    `json:"_type"`
	Slug slugField `json:"slug"`

	Title                string              `json:"title"`
	Name                 string              `json:"name"`
	EventType            string              `json:"eventType"`
	Category             string              `json:"category"`
	Description          json.RawMessage     `json:"description"`
	StartDate            *time.Time          `json:"startDate"`
	EndDate              *time.Time          `json:"endDate"`
	IsVirtual            bool                `json:"isVirtual"`
	VirtualLink          string              `json:"virtualLink"`
	Location             *model.Location     `json:"location"`
	Capacity             *int                `json:"capacity"`
	RequiresRegistration *bool               `json:"requiresRegistration"`
	IsFree               bool                `json:"isFree"`
	Price                *decimal.Decimal    `json:"price"`
	Currency             string              `json:"currency"`
	Pricing              []model.PricingTier `json:"pricing"`
	EarlyBirdDeadline    *time.Time          `json:"earlyBirdDeadline"`
	Status               model.EventStatus   `json:"status"`
	Featured             bool                `json:"featured"`
	Verified             bool                `json:"verified"`
	ContactInfo          *model.ContactInfo  `json:"contactInfo"`
}

// Export is the decoded content of a CMS export.
type Export struct {
	Events   []model.Event
	Listings []model.Listing
	Skipped  int
}

// ErrMissingSlug is returned for a known document type without a slug.
var ErrMissingSlug = errors.New("document has no slug")

// ToEvent maps a fitnessEvent document.
func (d *Document) ToEvent() (*model.Event, error) {
	if d.Slug.Current == "" {
		return nil, fmt.Errorf("%s %s: %w", d.Type, d.ID, ErrMissingSlug)
	}
	if d.StartDate == nil {
		return nil, fmt.Errorf("%s %s: no start date", d.Type, d.ID)
	}
	e := &model.Event{
		Title:                d.Title,
		Slug:                 d.Slug.Current,
		EventType:            d.EventType,
		Description:          d.Description,
		StartDate:            d.StartDate.UTC(),
		EndDate:              d.EndDate,
		IsVirtual:            d.IsVirtual,
		VirtualLink:          d.VirtualLink,
		Location:             d.Location,
		Capacity:             d.Capacity,
		RequiresRegistration: true,
		IsFree:               d.IsFree,
		Price:                d.Price,
		Currency:             d.Currency,
		Pricing:              d.Pricing,
		EarlyBirdDeadline:    d.EarlyBirdDeadline,
		Status:               d.Status,
		Featured:             d.Featured,
		ContactInfo:          d.ContactInfo,
		Origin:               model.EventOriginCMS,
		ExternalID:           d.ID,
	}
	if d.RequiresRegistration != nil {
		e.RequiresRegistration = *d.RequiresRegistration
	}
	if e.Pricing == nil {
		e.Pricing = []model.PricingTier{}
	}
	if !e.Status.Valid() {
		e.Status = model.EventStatusDraft
	}
	return e, nil
}

// ToListing maps a listing document.
func (d *Document) ToListing() (*model.Listing, error) {
	if d.Slug.Current == "" {
		return nil, fmt.Errorf("%s %s: %w", d.Type, d.ID, ErrMissingSlug)
	}
	l := &model.Listing{
		Name:        d.Name,
		Slug:        d.Slug.Current,
		Category:    d.Category,
		Description: d.Description,
		Location:    d.Location,
		ContactInfo: d.ContactInfo,
		Status:      d.Status,
		Featured:    d.Featured,
		Verified:    d.Verified,
		ExternalID:  d.ID,
	}
	if !l.Status.Valid() {
		l.Status = model.EventStatusDraft
	}
	return l, nil
}

// Decode reads an export, either newline-delimited documents or a single
// JSON array. Drafts ("drafts." ids) and unknown document types are skipped.
func Decode(r io.Reader) (*Export, error) {
	br := bufio.NewReader(r)
	dec := json.NewDecoder(br)

	next := func() (*Document, error) {
		var doc Document
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}

	if first, err := peekNonSpace(br); err == nil && first == '[' {
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read export: %w", err)
		}
		next = func() (*Document, error) {
			if !dec.More() {
				return nil, io.EOF
			}
			var doc Document
			if err := dec.Decode(&doc); err != nil {
				return nil, err
			}
			return &doc, nil
		}
	}

	out := &Export{}
	for {
		doc, err := next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if strings.HasPrefix(doc.ID, "drafts.") {
			out.Skipped++
			continue
		}
		switch doc.Type {
		case TypeFitnessEvent:
			e, err := doc.ToEvent()
			if err != nil {
				return nil, err
			}
			out.Events = append(out.Events, *e)
		case TypeListing:
			l, err := doc.ToListing()
			if err != nil {
				return nil, err
			}
			out.Listings = append(out.Listings, *l)
		default:
			out.Skipped++
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
		default:
			return b[0], nil
		}
	}
}

// Open returns the export at src, a local path or an http(s) URL.
func Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch export: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch export: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
