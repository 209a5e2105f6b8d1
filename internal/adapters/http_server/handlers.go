// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"trip_teaser/internal/app"
	"trip_teaser/internal/domain"
	"trip_teaser/internal/teaser"
)

// TripReader is the read side the public routes need; *app.QueryService satisfies it.
type TripReader interface {
	GetTrip(ctx context.Context, id int64) (domain.TripView, error)
	GetPreview(ctx context.Context, id int64) (domain.PreviewView, error)
	ListTrips(ctx context.Context, q domain.TripsQuery) (domain.TripsPage, error)
	ListImages(ctx context.Context, tripID int64) ([]domain.Image, error)
}

// TripEditor is the write side behind /v1/admin; *app.AdminService satisfies it.
type TripEditor interface {
	UpsertItem(ctx context.Context, it domain.Item) error
	ReplaceItemImages(ctx context.Context, tripID int64, kind domain.ItemKind, key string, urls []string) error
	ReplaceDaySchedule(ctx context.Context, d domain.DaySchedule) error
	DeleteTrip(ctx context.Context, id int64) error
}

type Handlers struct {
	Q TripReader
	A TripEditor
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/trips", h.listTrips)
	s.mux.Get("/v1/trips/{id}", h.getTrip)
	s.mux.Get("/v1/trips/{id}/preview", h.getPreview)
	s.mux.With(s.RateLimit()).Post("/v1/teaser", h.postTeaser)

	if h.A != nil {
		s.mux.Route("/v1/admin/trips/{id}", func(r chi.Router) {
			r.Use(s.RateLimit())
			r.Delete("/", h.deleteTrip)
			r.Get("/images", h.listImages)
			r.Put("/items/{kind}/{key}", h.putItem)
			r.Put("/items/{kind}/{key}/images", h.putItemImages)
			r.Put("/days/{day}", h.putDay)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses. Unknown errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var invalid *teaser.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", invalid.Reason)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", notFound)
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with a weak ETag, or 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func tripID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return 0, false
	}
	return id, true
}

func (h *Handlers) getTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	tv, err := h.Q.GetTrip(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	writeCached(w, r, tv)
}

func (h *Handlers) getPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	pv, err := h.Q.GetPreview(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "trip not found")
		return
	}
	writeCached(w, r, pv)
}

func (h *Handlers) listTrips(w http.ResponseWriter, r *http.Request) {
	q := domain.TripsQuery{}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return
		}
		q.Limit = l
	}
	if cs := r.URL.Query().Get("cursor"); cs != "" {
		after, err := strconv.ParseInt(cs, 10, 64)
		if err != nil || after <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "cursor must come from a previous page")
			return
		}
		q.AfterID = after
	}
	if d := strings.TrimSpace(r.URL.Query().Get("destination")); d != "" {
		q.Destination = &d
	}

	page, err := h.Q.ListTrips(r.Context(), q)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeCached(w, r, page)
}

type teaserRequest struct {
	Data   json.RawMessage `json:"data" validate:"required"`
	Prompt *string         `json:"prompt" validate:"required"`
}

func (h *Handlers) postTeaser(w http.ResponseWriter, r *http.Request) {
	var req teaserRequest
	if err := decodeLenient(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return
	}
	res, err := app.RunTeaser(req.Data, *req.Prompt)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
