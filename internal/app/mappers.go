package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"trip_teaser/internal/domain"
)

/********** alias registries (single source of truth) **********/

var tripAliases = map[string][]string{
	"source_id":   {"id", "trip_id", "itinerary_id", "uuid"},
	"title":       {"title", "name", "trip_name", "headline"},
	"destination": {"destination", "destination.name", "location.name", "city"},
	"start":       {"start_date", "startDate", "dates.start"},
	"end":         {"end_date", "endDate", "dates.end"},
	"currency":    {"currency", "price.currency", "pricing.currency"},
	"cover":       {"cover_image", "coverImage", "hero_image", "image.url", "image"},
}

var itemAliases = map[string][]string{
	"key":      {"id", "key", "slug", "uuid"},
	"name":     {"name", "title", "place.name", "venue.name", "restaurant_name", "hotel_name"},
	"detail":   {"address", "location.address", "place.address", "confirmation_code", "confirmation"},
	"currency": {"currency", "price.currency"},
	"window":   {"time_window", "timeWindow", "time", "start_time"},
	"airline":  {"airline", "airline.name", "carrier", "carrier.name"},
	"flight":   {"flight_number", "flightNumber", "flight_no"},
	"from":     {"from", "origin", "departure.airport", "departure_airport"},
	"to":       {"to", "destination", "arrival.airport", "arrival_airport"},
	"cabin":    {"cabin_class", "cabinClass", "cabin", "class"},
}

// Where each kind lives in a payload; a generic "items" list may also carry a type field.
var kindCollections = []struct {
	kind  domain.ItemKind
	paths []string
}{
	{domain.KindActivity, []string{"activities", "experiences", "itinerary.activities"}},
	{domain.KindDining, []string{"dining", "restaurants", "meals", "itinerary.dining"}},
	{domain.KindFlight, []string{"flights", "itinerary.flights"}},
	{domain.KindHotel, []string{"hotels", "accommodations", "stays", "itinerary.hotels"}},
}

var typeAliases = map[string]domain.ItemKind{
	"activity": domain.KindActivity, "experience": domain.KindActivity, "tour": domain.KindActivity,
	"dining": domain.KindDining, "restaurant": domain.KindDining, "meal": domain.KindDining,
	"flight": domain.KindFlight, "air": domain.KindFlight,
	"hotel": domain.KindHotel, "accommodation": domain.KindHotel, "stay": domain.KindHotel,
}

/********** trip mapper **********/

// Column widths in migrations/001_init.sql; longer upstream values are cut to fit.
const (
	maxSourceID = 64
	maxName     = 255
	maxDetail   = 1024
	maxKey      = 128
	maxWindow   = 64
	maxAirline  = 128
	maxCabin    = 32
	maxURL      = 1024
	maxPrice    = 9_999_999_999.99 // DECIMAL(12,2)
)

type mappedTrip struct {
	Trip   domain.Trip
	Items  []domain.Item
	Images []domain.Image
	Days   []domain.DaySchedule
}

func mapTrip(id int64, p map[string]any) mappedTrip {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("context", "mapTrip").Msg("failed to marshal trip to JSON")
	}

	t := domain.Trip{
		ID:          id,
		SourceID:    clipPtr(firstStringish(p, tripAliases["source_id"]...), maxSourceID),
		Title:       clip(deref(firstNonEmptyAlias(p, tripAliases, "title")), maxName),
		Destination: clipPtr(firstNonEmptyAlias(p, tripAliases, "destination"), maxName),
		StartDate:   normDate(firstNonEmptyAlias(p, tripAliases, "start")),
		EndDate:     normDate(firstNonEmptyAlias(p, tripAliases, "end")),
		Currency:    code3(firstNonEmptyAlias(p, tripAliases, "currency")),
		PriceFrom:   floatIn(getFloatFlexible(p, "price_from", "priceFrom", "price.amount", "total_price", "price"), 0, maxPrice),
		CoverImage:  fits(firstNonEmptyAlias(p, tripAliases, "cover"), maxURL),
		RawJSON:     raw,
	}
	if t.Title == "" {
		t.Title = "Trip " + strconv.FormatInt(id, 10)
	}

	var out mappedTrip
	seen := map[string]struct{}{}
	add := func(kind domain.ItemKind, pos int, m map[string]any) {
		it := mapItem(id, kind, pos, m)
		nk := string(kind) + "|" + it.Key
		if _, dup := seen[nk]; dup {
			return
		}
		seen[nk] = struct{}{}
		out.Items = append(out.Items, it)
		pos = 0
		for _, u := range firstSliceStrings(m, "images", "photos", "pictures") {
			if fits(&u, maxURL) == nil {
				continue
			}
			out.Images = append(out.Images, domain.Image{TripID: id, ItemKind: kind, ItemKey: it.Key, URL: u, Position: pos})
			pos++
		}
	}

	for _, c := range kindCollections {
		for _, path := range c.paths {
			for i, m := range objects(lookupAny(p, path)) {
				add(c.kind, i, m)
			}
		}
	}
	for i, m := range objects(lookupAny(p, "items")) {
		kind, ok := typeAliases[strings.ToLower(lookupStr(m, "type"))]
		if !ok {
			kind, ok = typeAliases[strings.ToLower(lookupStr(m, "kind"))]
		}
		if !ok {
			log.Warn().Int64("trip_id", id).Int("index", i).Msg("skipping item with unknown type")
			continue
		}
		add(kind, i, m)
	}

	// drop schedule references to items the payload did not carry
	for _, d := range mapDays(id, p) {
		keys := d.ItemKeys[:0]
		for _, k := range d.ItemKeys {
			if hasKey(out.Items, k) {
				keys = append(keys, k)
			}
		}
		d.ItemKeys = keys
		out.Days = append(out.Days, d)
	}
	if t.CoverImage == nil && len(out.Images) > 0 {
		cover := out.Images[0].URL
		t.CoverImage = &cover
	}
	out.Trip = t
	return out
}

func mapItem(tripID int64, kind domain.ItemKind, pos int, m map[string]any) domain.Item {
	it := domain.Item{
		TripID:      tripID,
		Kind:        kind,
		Position:    pos,
		Name:        clip(deref(firstNonEmptyAlias(m, itemAliases, "name")), maxName),
		Detail:      clipPtr(firstNonEmptyAlias(m, itemAliases, "detail"), maxDetail),
		Price:       floatIn(getFloatFlexible(m, "price", "price.amount", "cost", "amount"), 0, maxPrice),
		Currency:    code3(firstNonEmptyAlias(m, itemAliases, "currency")),
		DurationMin: intIn(intPtr(firstInt64Flexible(m, "duration_min", "durationMinutes", "duration")), 0, math.MaxInt32),
		Rating:      floatIn(getFloatFlexible(m, "rating", "rating.value", "score"), 0, 5),
		TimeWindow:  clipPtr(firstNonEmptyAlias(m, itemAliases, "window"), maxWindow),
	}
	if d := firstInt64Flexible(m, "day", "day_number", "dayNumber"); d != nil {
		it.Day = int(*d)
	}

	switch kind {
	case domain.KindFlight:
		it.Flight = &domain.FlightInfo{
			Airline:    clipPtr(firstNonEmptyAlias(m, itemAliases, "airline"), maxAirline),
			FromIATA:   code3(firstNonEmptyAlias(m, itemAliases, "from")),
			ToIATA:     code3(firstNonEmptyAlias(m, itemAliases, "to")),
			CabinClass: clipPtr(firstNonEmptyAlias(m, itemAliases, "cabin"), maxCabin),
		}
		if fn := firstNonEmptyAlias(m, itemAliases, "flight"); fn != nil {
			it.Detail = clipPtr(fn, maxDetail)
		}
		if it.Name == "" && it.Flight.Airline != nil {
			it.Name = *it.Flight.Airline
		}
	case domain.KindHotel:
		it.Hotel = &domain.HotelInfo{Stars: intIn(intPtr(firstInt64Flexible(m, "stars", "star_rating", "category")), 0, 7)}
	}

	if k := firstStringish(m, itemAliases["key"]...); k != nil {
		it.Key = clip(*k, maxKey)
	} else {
		// no upstream id: derive a stable key from what identifies the item
		sig := strings.Join([]string{string(kind), strconv.Itoa(it.Day), it.Name, deref(it.Detail)}, "|")
		sum := sha1.Sum([]byte(sig))
		it.Key = hex.EncodeToString(sum[:8])
	}
	if it.Name == "" {
		it.Name = "Untitled " + string(kind)
	}
	return it
}

func hasKey(items []domain.Item, key string) bool {
	for _, it := range items {
		if it.Key == key {
			return true
		}
	}
	return false
}

// mapDays reads "days": [{day, summary, items: [id | {id}]}].
func mapDays(tripID int64, p map[string]any) []domain.DaySchedule {
	var out []domain.DaySchedule
	for i, m := range objects(lookupAny(p, "days")) {
		d := domain.DaySchedule{TripID: tripID, Day: i + 1}
		if n := firstInt64Flexible(m, "day", "day_number", "number"); n != nil {
			d.Day = int(*n)
		}
		d.Summary = firstNonEmptyAlias(m, map[string][]string{"s": {"summary", "title", "description"}}, "s")
		d.ItemKeys = []string{}
		for _, path := range []string{"items", "item_ids", "itemKeys"} {
			raw, ok := lookupAny(m, path).([]any)
			if !ok {
				continue
			}
			for _, v := range raw {
				switch t := v.(type) {
				case string:
					d.ItemKeys = append(d.ItemKeys, clip(t, maxKey))
				case float64:
					d.ItemKeys = append(d.ItemKeys, strconv.FormatInt(int64(t), 10))
				case map[string]any:
					if k := firstStringish(t, itemAliases["key"]...); k != nil {
						d.ItemKeys = append(d.ItemKeys, clip(*k, maxKey))
					}
				}
			}
			break
		}
		out = append(out, d)
	}
	return out
}
