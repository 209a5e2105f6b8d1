package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trip_teaser/internal/domain"
)

type itemRequest struct {
	Day         int            `json:"day" validate:"min=0,max=366"`
	Position    int            `json:"position" validate:"min=0"`
	Name        string         `json:"name" validate:"required,max=255"`
	Detail      *string        `json:"detail" validate:"omitempty,max=512"`
	Price       *float64       `json:"price" validate:"omitempty,min=0"`
	Currency    *string        `json:"currency" validate:"omitempty,len=3,alpha"`
	DurationMin *int           `json:"durationMin" validate:"omitempty,min=0"`
	Rating      *float64       `json:"rating" validate:"omitempty,min=0,max=5"`
	TimeWindow  *string        `json:"timeWindow" validate:"omitempty,max=64"`
	Flight      *flightRequest `json:"flight"`
	Hotel       *hotelRequest  `json:"hotel"`
}

// Bounds follow the trip_items column widths.
type flightRequest struct {
	Airline    *string `json:"airline" validate:"omitempty,max=128"`
	FromIATA   *string `json:"from" validate:"omitempty,len=3,alpha"`
	ToIATA     *string `json:"to" validate:"omitempty,len=3,alpha"`
	CabinClass *string `json:"cabinClass" validate:"omitempty,max=32"`
}

type hotelRequest struct {
	Stars *int `json:"stars" validate:"omitempty,min=0,max=7"`
}

func (f *flightRequest) toDomain() *domain.FlightInfo {
	if f == nil {
		return nil
	}
	return &domain.FlightInfo{Airline: f.Airline, FromIATA: f.FromIATA, ToIATA: f.ToIATA, CabinClass: f.CabinClass}
}

func (h *hotelRequest) toDomain() *domain.HotelInfo {
	if h == nil {
		return nil
	}
	return &domain.HotelInfo{Stars: h.Stars}
}

type imagesRequest struct {
	URLs []string `json:"urls" validate:"max=50,dive,required,http_url"`
}

type dayRequest struct {
	Summary  *string  `json:"summary" validate:"omitempty,max=512"`
	ItemKeys []string `json:"itemKeys" validate:"max=100,dive,required,max=128"`
}

func itemPath(w http.ResponseWriter, r *http.Request) (int64, domain.ItemKind, string, bool) {
	id, ok := tripID(w, r)
	if !ok {
		return 0, "", "", false
	}
	kind := domain.ItemKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeProblem(w, http.StatusBadRequest, "Invalid kind", "kind must be one of activity, dining, flight, hotel")
		return 0, "", "", false
	}
	key := chi.URLParam(r, "key")
	if key == "" || len(key) > 128 {
		writeProblem(w, http.StatusBadRequest, "Invalid key", "key must be 1 to 128 characters")
		return 0, "", "", false
	}
	return id, kind, key, true
}

func (h *Handlers) putItem(w http.ResponseWriter, r *http.Request) {
	id, kind, key, ok := itemPath(w, r)
	if !ok {
		return
	}
	var req itemRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}
	it := domain.Item{
		TripID: id, Kind: kind, Key: key,
		Day: req.Day, Position: req.Position, Name: req.Name, Detail: req.Detail,
		Price: req.Price, Currency: req.Currency, DurationMin: req.DurationMin,
		Rating: req.Rating, TimeWindow: req.TimeWindow, Flight: req.Flight.toDomain(), Hotel: req.Hotel.toDomain(),
	}
	if err := h.A.UpsertItem(r.Context(), it); err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) putItemImages(w http.ResponseWriter, r *http.Request) {
	id, kind, key, ok := itemPath(w, r)
	if !ok {
		return
	}
	var req imagesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}
	if err := h.A.ReplaceItemImages(r.Context(), id, kind, key, req.URLs); err != nil {
		writeError(w, r, err, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) putDay(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 || day > 366 {
		writeProblem(w, http.StatusBadRequest, "Invalid day", "day must be an integer between 1 and 366")
		return
	}
	var req dayRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}
	d := domain.DaySchedule{TripID: id, Day: day, Summary: req.Summary, ItemKeys: req.ItemKeys}
	if err := h.A.ReplaceDaySchedule(r.Context(), d); err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	if err := h.A.DeleteTrip(r.Context(), id); err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) listImages(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	imgs, err := h.Q.ListImages(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	if imgs == nil {
		imgs = []domain.Image{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": imgs})
}
