package domain

import (
	"context"

	"trip_teaser/internal/teaser"
)

type TripRepository interface {
	// Write paths
	UpsertTrip(ctx context.Context, t Trip) error
	ReplaceTripContents(ctx context.Context, tripID int64, items []Item, images []Image, days []DaySchedule) error
	UpsertItem(ctx context.Context, it Item) error
	ReplaceItemImages(ctx context.Context, tripID int64, kind ItemKind, key string, urls []string) error
	ReplaceDaySchedule(ctx context.Context, d DaySchedule) error
	DeleteTrip(ctx context.Context, id int64) error
	LogMiss(ctx context.Context, id int64, status int, reason string) error

	// Read paths
	GetTrip(ctx context.Context, id int64) (TripView, error)
	ListTrips(ctx context.Context, q TripsQuery) (TripsPage, error)
	ListImages(ctx context.Context, tripID int64) ([]Image, error)
}

type ItineraryClient interface {
	GetTrip(ctx context.Context, id int64) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type TripView struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Destination *string       `json:"destination,omitempty"`
	StartDate   *string       `json:"startDate,omitempty"`
	EndDate     *string       `json:"endDate,omitempty"`
	Currency    *string       `json:"currency,omitempty"`
	PriceFrom   *float64      `json:"priceFrom,omitempty"`
	CoverImage  *string       `json:"coverImage,omitempty"`
	Items       []Item        `json:"items,omitempty"`
	Images      []Image       `json:"images,omitempty"`
	Days        []DaySchedule `json:"days,omitempty"`
}

// PreviewView is what a viewer sees before unlocking the trip.
type PreviewView struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Destination *string         `json:"destination,omitempty"`
	StartDate   *string         `json:"startDate,omitempty"`
	EndDate     *string         `json:"endDate,omitempty"`
	Currency    *string         `json:"currency,omitempty"`
	PriceFrom   *float64        `json:"priceFrom,omitempty"`
	CoverImage  *string         `json:"coverImage,omitempty"`
	Days        []PreviewDay    `json:"days"`
	Entries     []teaser.Result `json:"entries"`
}

type PreviewDay struct {
	Day     int `json:"day"`
	Entries int `json:"entries"`
}

type TripSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Destination *string  `json:"destination,omitempty"`
	StartDate   *string  `json:"startDate,omitempty"`
	PriceFrom   *float64 `json:"priceFrom,omitempty"`
	CoverImage  *string  `json:"coverImage,omitempty"`
}

type TripsQuery struct {
	Destination *string
	Limit       int
	AfterID     int64
}

type TripsPage struct {
	Items      []TripSummary `json:"items"`
	NextCursor *string       `json:"nextCursor,omitempty"`
}
