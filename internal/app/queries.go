package app

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"trip_teaser/internal/adapters/observability"
	"trip_teaser/internal/domain"
	"trip_teaser/internal/teaser"
)

const maxCachedBytes = 1_000_000

type QueryService struct {
	repo     domain.TripRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.TripRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetTrip(ctx context.Context, id int64) (domain.TripView, error) {
	var tv domain.TripView
	if ok, _ := s.cache.Get(ctx, tripKey(id), &tv); ok {
		return tv, nil
	}
	tv, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return domain.TripView{}, err
	}
	s.store(ctx, tripKey(id), tv)
	return tv, nil
}

// GetPreview returns the trip with every item masked. Trip-level facts that do
// not give the itinerary away (title, destination, dates, price) stay visible.
func (s *QueryService) GetPreview(ctx context.Context, id int64) (domain.PreviewView, error) {
	var pv domain.PreviewView
	if ok, _ := s.cache.Get(ctx, previewKey(id), &pv); ok {
		return pv, nil
	}
	tv, err := s.GetTrip(ctx, id)
	if err != nil {
		return domain.PreviewView{}, err
	}
	pv = BuildPreview(tv)
	s.store(ctx, previewKey(id), pv)
	return pv, nil
}

// BuildPreview is the uncached part of GetPreview.
func BuildPreview(tv domain.TripView) domain.PreviewView {
	entries := make([]teaser.Entry, len(tv.Items))
	kinds := make([]string, len(tv.Items))
	perDay := map[int]int{}
	for i, it := range tv.Items {
		entries[i] = it.TeaserEntry()
		kinds[i] = string(it.Kind)
		perDay[it.Day]++
	}
	masked := teaser.Apply(entries, true)
	observability.ObserveTeaser(true, kinds)

	days := make([]domain.PreviewDay, 0, len(tv.Days))
	for _, d := range tv.Days {
		days = append(days, domain.PreviewDay{Day: d.Day, Entries: len(d.ItemKeys)})
		delete(perDay, d.Day)
	}
	// items whose day has no schedule row still count toward a day
	for day, n := range perDay {
		if day > 0 {
			days = append(days, domain.PreviewDay{Day: day, Entries: n})
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	return domain.PreviewView{
		ID:          tv.ID,
		Title:       tv.Title,
		Destination: tv.Destination,
		StartDate:   tv.StartDate,
		EndDate:     tv.EndDate,
		Currency:    tv.Currency,
		PriceFrom:   tv.PriceFrom,
		CoverImage:  tv.CoverImage,
		Days:        days,
		Entries:     masked,
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *QueryService) ListTrips(ctx context.Context, q domain.TripsQuery) (domain.TripsPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	return s.repo.ListTrips(ctx, q)
}

func (s *QueryService) ListImages(ctx context.Context, tripID int64) ([]domain.Image, error) {
	if _, err := s.repo.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.ListImages(ctx, tripID)
}

// store caches v unless it is too large to be worth it.
func (s *QueryService) store(ctx context.Context, key string, v any) {
	if b, err := json.Marshal(v); err != nil || len(b) >= maxCachedBytes {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}
