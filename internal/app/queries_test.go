package app_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"trip_teaser/internal/app"
	"trip_teaser/internal/domain"
	"trip_teaser/internal/teaser"
)

// ---- fakes ----

type fakeRepo struct {
	tv        domain.TripView
	page      domain.TripsPage
	lastQuery domain.TripsQuery
	getErr    error
	writeErr  error

	trips    []domain.Trip
	items    []domain.Item
	images   []domain.Image
	days     []domain.DaySchedule
	misses   map[int64]int
	deleted  []int64
	imageSet map[string][]string
}

func (f *fakeRepo) UpsertTrip(ctx context.Context, t domain.Trip) error {
	f.trips = append(f.trips, t)
	return f.writeErr
}
func (f *fakeRepo) ReplaceTripContents(ctx context.Context, tripID int64, items []domain.Item, images []domain.Image, days []domain.DaySchedule) error {
	f.items, f.images, f.days = items, images, days
	return f.writeErr
}
func (f *fakeRepo) UpsertItem(ctx context.Context, it domain.Item) error {
	f.items = append(f.items, it)
	return f.writeErr
}
func (f *fakeRepo) ReplaceItemImages(ctx context.Context, tripID int64, kind domain.ItemKind, key string, urls []string) error {
	if f.imageSet == nil {
		f.imageSet = map[string][]string{}
	}
	f.imageSet[string(kind)+"/"+key] = urls
	return f.writeErr
}
func (f *fakeRepo) ReplaceDaySchedule(ctx context.Context, d domain.DaySchedule) error {
	f.days = append(f.days, d)
	return f.writeErr
}
func (f *fakeRepo) DeleteTrip(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.writeErr
}
func (f *fakeRepo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	if f.misses == nil {
		f.misses = map[int64]int{}
	}
	f.misses[id] = status
	return nil
}
func (f *fakeRepo) GetTrip(ctx context.Context, id int64) (domain.TripView, error) {
	return f.tv, f.getErr
}
func (f *fakeRepo) ListTrips(ctx context.Context, q domain.TripsQuery) (domain.TripsPage, error) {
	f.lastQuery = q
	return f.page, nil
}
func (f *fakeRepo) ListImages(ctx context.Context, tripID int64) ([]domain.Image, error) {
	return f.images, nil
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

// values go through JSON, like the redis adapter
func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	c.store[key] = b
	return err
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

func sampleTrip() domain.TripView {
	return domain.TripView{
		ID:          7,
		Title:       "Negros Oriental in 5 days",
		Destination: ptr("Dumaguete"),
		PriceFrom:   ptr(1200.0),
		Items: []domain.Item{
			{TripID: 7, Kind: domain.KindDining, Key: "gerrys", Day: 1, Name: "Gerry's Dumaguete", Detail: ptr("Rizal Blvd"), Price: ptr(25.0), Rating: ptr(4.7)},
			{TripID: 7, Kind: domain.KindFlight, Key: "pr2543", Day: 1, Name: "Philippine Airlines", Detail: ptr("PR 2543"),
				Flight: &domain.FlightInfo{Airline: ptr("Philippine Airlines"), FromIATA: ptr("MNL"), ToIATA: ptr("DGT"), CabinClass: ptr("economy")}},
			{TripID: 7, Kind: domain.KindActivity, Key: "apo", Day: 2, Name: "Apo Island Snorkel", DurationMin: ptr(240)},
			{TripID: 7, Kind: domain.KindHotel, Key: "atlantis", Day: 1, Name: "Atlantis Dive Resort", Hotel: &domain.HotelInfo{Stars: ptr(4)}},
		},
		Days: []domain.DaySchedule{{TripID: 7, Day: 1, ItemKeys: []string{"pr2543", "gerrys", "atlantis"}}},
	}
}

// ---- tests ----

func TestGetTrip_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{tv: sampleTrip()}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	tv, err := q.GetTrip(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if tv.ID != 7 || len(tv.Items) != 4 {
		t.Fatalf("unexpected trip: %+v", tv)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.tv.Title = "SHOULD NOT SEE THIS"

	tv2, err := q.GetTrip(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if tv2.Title != "Negros Oriental in 5 days" {
		t.Fatalf("expected cached title, got %s", tv2.Title)
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{getErr: domain.ErrNotFound}, &fakeCache{}, time.Minute)
	if _, err := q.GetTrip(context.Background(), 1); err != domain.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetPreview_MasksEveryItem(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{tv: sampleTrip()}, &fakeCache{}, time.Minute)

	pv, err := q.GetPreview(context.Background(), 7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if pv.Title != "Negros Oriental in 5 days" || deref(pv.Destination) != "Dumaguete" {
		t.Fatalf("trip-level facts should stay visible: %+v", pv)
	}
	if len(pv.Entries) != 4 {
		t.Fatalf("entries: %d", len(pv.Entries))
	}

	body, _ := json.Marshal(pv.Entries)
	for _, secret := range []string{"Gerry's", "Rizal Blvd", "Philippine Airlines", "PR 2543", "Apo Island", "Atlantis"} {
		if strings.Contains(string(body), secret) {
			t.Fatalf("preview leaks %q: %s", secret, body)
		}
	}

	want := []string{"Local Restaurant", "Economy Flight Option", "Local Attraction", "Boutique Hotel"}
	for i, e := range pv.Entries {
		if e.IdentifyingName != want[i] {
			t.Fatalf("entry %d: %q, want %q", i, e.IdentifyingName, want[i])
		}
	}
	if pv.Entries[0].NonIdentifyingFields["price"] != 25.0 || pv.Entries[0].NonIdentifyingFields["rating"] != "4.5+" {
		t.Fatalf("non-identifying fields lost: %+v", pv.Entries[0].NonIdentifyingFields)
	}
	if pv.Entries[1].NonIdentifyingFields["cabinClass"] != "economy" {
		t.Fatalf("cabin class lost: %+v", pv.Entries[1].NonIdentifyingFields)
	}

	if len(pv.Days) != 2 || pv.Days[0].Day != 1 || pv.Days[0].Entries != 3 || pv.Days[1].Day != 2 || pv.Days[1].Entries != 1 {
		t.Fatalf("unexpected days: %+v", pv.Days)
	}
}

func TestGetPreview_ServedFromCache(t *testing.T) {
	repo := &fakeRepo{tv: sampleTrip()}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	if _, err := q.GetPreview(context.Background(), 7); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, ok := cache.store["preview:7"]; !ok {
		t.Fatalf("preview not cached: %v", cache.store)
	}
	repo.getErr = domain.ErrNotFound
	delete(cache.store, "trip:7")
	if _, err := q.GetPreview(context.Background(), 7); err != nil {
		t.Fatalf("expected cached preview, got %v", err)
	}
}

func TestListTrips_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute)

	_, _ = q.ListTrips(context.Background(), domain.TripsQuery{})
	if repo.lastQuery.Limit != 20 {
		t.Fatalf("default limit = %d", repo.lastQuery.Limit)
	}
	_, _ = q.ListTrips(context.Background(), domain.TripsQuery{Limit: 5000})
	if repo.lastQuery.Limit != 100 {
		t.Fatalf("max limit = %d", repo.lastQuery.Limit)
	}
}

func TestRunTeaser(t *testing.T) {
	data := json.RawMessage(`[{"kind":"dining","identifyingName":"Gerry's Dumaguete","nonIdentifyingFields":{"price":25}}]`)

	res, err := app.RunTeaser(data, "Please use TEASER_MODE for this response")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !res.Success || !res.TeaserModeActive || res.Data[0].IdentifyingName != "Local Restaurant" {
		t.Fatalf("unexpected: %+v", res)
	}

	res, err = app.RunTeaser(data, "Normal request")
	if err != nil || res.TeaserModeActive || res.Data[0].IdentifyingName != "Gerry's Dumaguete" {
		t.Fatalf("unexpected: %+v %v", res, err)
	}

	res, err = app.RunTeaser(json.RawMessage(`[{"kind":"yacht charter","identifyingName":"MV Siquijor Star"}]`), "TEASER_MODE")
	if err != nil || res.Data[0].Kind != "yacht charter" || res.Data[0].IdentifyingName != teaser.DefaultLabel {
		t.Fatalf("unknown kind must be echoed with the default label: %+v %v", res, err)
	}

	_, err = app.RunTeaser(json.RawMessage(`{"kind":"dining"}`), "TEASER_MODE")
	if _, ok := err.(*teaser.InvalidInputError); !ok {
		t.Fatalf("want InvalidInputError, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
