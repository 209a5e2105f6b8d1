package itinerary_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"trip_teaser/internal/adapters/itinerary"
)

func TestClient_GetTrip_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 123.0, "title": "Negros Escape"})
		}
	}))
	defer ts.Close()

	cl, err := itinerary.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.GetTrip(ctx, 123)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["title"] != "Negros Escape" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_GetTrip_FallsBackToLegacyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/itineraries/9", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 9.0})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	cl, _ := itinerary.New(ts.URL, "k", 100)
	got, err := cl.GetTrip(context.Background(), 9)
	if err != nil || got["id"] != 9.0 {
		t.Fatalf("got %+v err %v", got, err)
	}
}

func TestClient_GetTrip_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, _ := itinerary.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cl.GetTrip(ctx, 1)
	if !errors.Is(err, itinerary.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_GetTrip_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, _ := itinerary.New(ts.URL, "test-key", 100)
	if _, err := cl.GetTrip(context.Background(), 1); !errors.Is(err, itinerary.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer ts.Close()

	cl, _ := itinerary.New(ts.URL, "test-key", 100)
	for i := 0; i < 5; i++ {
		if _, err := cl.GetTrip(context.Background(), 1); err == nil {
			t.Fatalf("expected error on call %d", i)
		}
	}
	before := atomic.LoadInt32(&hits)
	_, err := cl.GetTrip(context.Background(), 1)
	if !errors.Is(err, itinerary.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Fatalf("open circuit must not reach upstream")
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := itinerary.New("http://x", "", 1); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
