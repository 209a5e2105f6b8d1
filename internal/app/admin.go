package app

import (
	"context"
	"fmt"
	"strings"

	"trip_teaser/internal/domain"
)

// AdminService holds the parameterized, idempotent edits that operators run
// against stored trips. Every write evicts the trip's cached views.
type AdminService struct {
	repo  domain.TripRepository
	cache domain.Cache
}

func NewAdminService(r domain.TripRepository, c domain.Cache) *AdminService {
	return &AdminService{repo: r, cache: c}
}

// UpsertItem creates or replaces the item identified by (trip, kind, key).
func (s *AdminService) UpsertItem(ctx context.Context, it domain.Item) error {
	if !it.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, it.Kind)
	}
	if strings.TrimSpace(it.Key) == "" || strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: key and name are required", domain.ErrInvalidInput)
	}
	// typed extras must match the kind
	if it.Kind != domain.KindFlight {
		it.Flight = nil
	}
	if it.Kind != domain.KindHotel {
		it.Hotel = nil
	}
	if err := s.repo.UpsertItem(ctx, it); err != nil {
		return err
	}
	invalidateTrip(ctx, s.cache, it.TripID)
	return nil
}

// ReplaceItemImages swaps all images attached to one item, keeping the given order.
func (s *AdminService) ReplaceItemImages(ctx context.Context, tripID int64, kind domain.ItemKind, key string, urls []string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, kind)
	}
	clean := make([]string, 0, len(urls))
	seen := map[string]struct{}{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if _, dup := seen[u]; dup || u == "" {
			continue
		}
		seen[u] = struct{}{}
		clean = append(clean, u)
	}
	if err := s.repo.ReplaceItemImages(ctx, tripID, kind, key, clean); err != nil {
		return err
	}
	invalidateTrip(ctx, s.cache, tripID)
	return nil
}

func (s *AdminService) ReplaceDaySchedule(ctx context.Context, d domain.DaySchedule) error {
	if d.Day < 1 {
		return fmt.Errorf("%w: day must be >= 1", domain.ErrInvalidInput)
	}
	if d.ItemKeys == nil {
		d.ItemKeys = []string{}
	}
	if err := s.repo.ReplaceDaySchedule(ctx, d); err != nil {
		return err
	}
	invalidateTrip(ctx, s.cache, d.TripID)
	return nil
}

func (s *AdminService) DeleteTrip(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTrip(ctx, id); err != nil {
		return err
	}
	invalidateTrip(ctx, s.cache, id)
	return nil
}
