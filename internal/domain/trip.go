package domain

import (
	"strconv"

	"trip_teaser/internal/teaser"
)

type Trip struct {
	ID          int64
	SourceID    *string // id on the itinerary service
	Title       string
	Destination *string
	StartDate   *string // YYYY-MM-DD
	EndDate     *string
	Currency    *string
	PriceFrom   *float64
	CoverImage  *string
	RawJSON     []byte // full itinerary payload
}

type ItemKind string

const (
	KindActivity ItemKind = "activity"
	KindDining   ItemKind = "dining"
	KindFlight   ItemKind = "flight"
	KindHotel    ItemKind = "hotel"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindActivity, KindDining, KindFlight, KindHotel:
		return true
	}
	return false
}

// Item is one line of a trip. Kind selects which of Flight / Hotel is set.
type Item struct {
	TripID      int64       `json:"tripId"`
	Kind        ItemKind    `json:"kind"`
	Key         string      `json:"key"` // natural key, unique per (trip, kind)
	Day         int         `json:"day"`
	Position    int         `json:"position"`
	Name        string      `json:"name"`             // identifying
	Detail      *string     `json:"detail,omitempty"` // identifying: address, confirmation code, flight number
	Price       *float64    `json:"price,omitempty"`
	Currency    *string     `json:"currency,omitempty"`
	DurationMin *int        `json:"durationMin,omitempty"`
	Rating      *float64    `json:"rating,omitempty"`
	TimeWindow  *string     `json:"timeWindow,omitempty"`
	Flight      *FlightInfo `json:"flight,omitempty"`
	Hotel       *HotelInfo  `json:"hotel,omitempty"`
}

type FlightInfo struct {
	Airline    *string `json:"airline,omitempty"` // identifying
	FromIATA   *string `json:"from,omitempty"`
	ToIATA     *string `json:"to,omitempty"`
	CabinClass *string `json:"cabinClass,omitempty"`
}

type HotelInfo struct {
	Stars *int `json:"stars,omitempty"`
}

type Image struct {
	TripID   int64    `json:"tripId"`
	ItemKind ItemKind `json:"itemKind"`
	ItemKey  string   `json:"itemKey"`
	URL      string   `json:"url"`
	Position int      `json:"position"`
}

type DaySchedule struct {
	TripID   int64    `json:"tripId"`
	Day      int      `json:"day"`
	Summary  *string  `json:"summary,omitempty"`
	ItemKeys []string `json:"itemKeys"`
}

// TeaserEntry splits the item into identifying and non-identifying parts.
// The airline is folded into the detail so that masking hides it too.
func (it Item) TeaserEntry() teaser.Entry {
	// Key stays out: upstream keys are often slugs of the place name.
	f := map[string]any{
		"day":      it.Day,
		"position": it.Position,
	}
	put := func(k string, v any, ok bool) {
		if ok {
			f[k] = v
		}
	}
	put("price", deref(it.Price), it.Price != nil)
	put("currency", deref(it.Currency), it.Currency != nil)
	put("durationMin", deref(it.DurationMin), it.DurationMin != nil)
	put("rating", ratingBucket(it.Rating), it.Rating != nil)
	put("timeWindow", deref(it.TimeWindow), it.TimeWindow != nil)

	detail := it.Detail
	if fl := it.Flight; fl != nil {
		put("cabinClass", deref(fl.CabinClass), fl.CabinClass != nil)
		put("from", deref(fl.FromIATA), fl.FromIATA != nil)
		put("to", deref(fl.ToIATA), fl.ToIATA != nil)
		if fl.Airline != nil {
			d := *fl.Airline
			if detail != nil {
				d += " " + *detail
			}
			detail = &d
		}
	}
	if h := it.Hotel; h != nil && h.Stars != nil {
		f["stars"] = *h.Stars
	}

	return teaser.Entry{
		Kind:                 teaser.Kind(it.Kind),
		IdentifyingName:      it.Name,
		IdentifyingDetail:    detail,
		NonIdentifyingFields: f,
	}
}

// ratingBucket rounds down to the half point so an exact score cannot
// be matched against a review site.
func ratingBucket(r *float64) string {
	b := float64(int(*r*2)) / 2
	return strconv.FormatFloat(b, 'f', 1, 64) + "+"
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
