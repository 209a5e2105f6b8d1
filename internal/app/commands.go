package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"trip_teaser/internal/adapters/itinerary"
	"trip_teaser/internal/adapters/observability"
	"trip_teaser/internal/domain"
)

type IngestionService struct {
	src   domain.ItineraryClient
	repo  domain.TripRepository
	cache domain.Cache
}

func NewIngestionService(c domain.ItineraryClient, r domain.TripRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{src: c, repo: r, cache: cache}
}

// IngestTrip pulls one trip from the itinerary service and replaces the stored copy.
// Trips the service reports as missing or locked are recorded as misses, not errors.
func (s *IngestionService) IngestTrip(ctx context.Context, id int64) error {
	p, err := s.src.GetTrip(ctx, id)
	if err != nil {
		if status, reason, ok := missOf(err); ok {
			if lerr := s.repo.LogMiss(ctx, id, status, reason); lerr != nil {
				log.Warn().Err(lerr).Int64("trip_id", id).Msg("record ingest miss failed")
			}
			invalidateTrip(ctx, s.cache, id)
			observability.ObserveIngest("miss")
			return nil
		}
		observability.ObserveIngest("error")
		return fmt.Errorf("fetch trip %d: %w", id, err)
	}

	m := mapTrip(id, p)

	// Parent upsert first to satisfy FKs on child rows.
	if err := s.repo.UpsertTrip(ctx, m.Trip); err != nil {
		observability.ObserveIngest("error")
		return fmt.Errorf("upsert trip %d: %w", id, err)
	}
	if err := s.repo.ReplaceTripContents(ctx, id, m.Items, m.Images, m.Days); err != nil {
		observability.ObserveIngest("error")
		return fmt.Errorf("replace contents of trip %d: %w", id, err)
	}

	invalidateTrip(ctx, s.cache, id)
	observability.ObserveIngest("ok")
	log.Debug().Int64("trip_id", id).Int("items", len(m.Items)).Int("images", len(m.Images)).Msg("trip ingested")
	return nil
}

func missOf(err error) (status int, reason string, ok bool) {
	switch {
	case errors.Is(err, itinerary.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return 404, "not found", true
	case errors.Is(err, itinerary.ErrForbidden):
		return 403, "forbidden", true
	case errors.Is(err, itinerary.ErrUnauthorized):
		return 401, "unauthorized", true
	}
	return 0, "", false
}

func tripKey(id int64) string    { return fmt.Sprintf("trip:%d", id) }
func previewKey(id int64) string { return fmt.Sprintf("preview:%d", id) }

// invalidateTrip evicts every cached view of a trip. Eviction is best-effort.
func invalidateTrip(ctx context.Context, c domain.Cache, id int64) {
	if c == nil {
		return
	}
	for _, k := range []string{tripKey(id), previewKey(id)} {
		if err := c.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache eviction failed")
		}
	}
}
