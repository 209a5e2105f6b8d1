//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"trip_teaser/internal/domain"
	mysqlrepo "trip_teaser/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string     { return &s }
func pint(i int) *int           { return &i }
func pfloat(f float64) *float64 { return &f }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=trips",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		"root", hostPort, "trips")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_TripLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	tr := domain.Trip{
		ID:          501,
		SourceID:    pstr("trp_501"),
		Title:       "Negros Oriental Highlights",
		Destination: pstr("Dumaguete"),
		StartDate:   pstr("2025-03-01"),
		EndDate:     pstr("2025-03-05"),
		Currency:    pstr("USD"),
		PriceFrom:   pfloat(1299),
		RawJSON:     []byte(`{}`),
	}
	if err := repo.UpsertTrip(ctx, tr); err != nil {
		t.Fatalf("UpsertTrip: %v", err)
	}

	items := []domain.Item{
		{Kind: domain.KindFlight, Key: "pr2543", Day: 1, Position: 0, Name: "Philippine Airlines", Detail: pstr("PR 2543"),
			Flight: &domain.FlightInfo{Airline: pstr("Philippine Airlines"), FromIATA: pstr("MNL"), ToIATA: pstr("DGT"), CabinClass: pstr("economy")}},
		{Kind: domain.KindDining, Key: "gerrys", Day: 1, Position: 1, Name: "Gerry's Dumaguete", Price: pfloat(25), Rating: pfloat(4.6)},
		{Kind: domain.KindHotel, Key: "atlantis", Day: 1, Position: 2, Name: "Atlantis Dive Resort", Hotel: &domain.HotelInfo{Stars: pint(4)}},
		{Kind: domain.KindActivity, Key: "apo", Day: 2, Position: 0, Name: "Apo Island Snorkel", DurationMin: pint(240)},
	}
	images := []domain.Image{
		{ItemKind: domain.KindDining, ItemKey: "gerrys", URL: "https://img/gerrys-1.jpg", Position: 0},
	}
	days := []domain.DaySchedule{
		{Day: 1, Summary: pstr("Arrival"), ItemKeys: []string{"pr2543", "gerrys", "atlantis"}},
	}
	if err := repo.ReplaceTripContents(ctx, tr.ID, items, images, days); err != nil {
		t.Fatalf("ReplaceTripContents: %v", err)
	}

	tv, err := repo.GetTrip(ctx, tr.ID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if tv.Title != tr.Title || len(tv.Items) != 4 || len(tv.Images) != 1 || len(tv.Days) != 1 {
		t.Fatalf("unexpected trip view: %+v", tv)
	}
	if tv.Items[0].Key != "pr2543" || tv.Items[0].Flight == nil || *tv.Items[0].Flight.ToIATA != "DGT" {
		t.Fatalf("flight row: %+v", tv.Items[0])
	}
	if tv.Items[2].Hotel == nil || *tv.Items[2].Hotel.Stars != 4 {
		t.Fatalf("hotel row: %+v", tv.Items[2])
	}
	if fmt.Sprint(tv.Days[0].ItemKeys) != "[pr2543 gerrys atlantis]" {
		t.Fatalf("day keys: %v", tv.Days[0].ItemKeys)
	}

	// upsert by natural key replaces, not duplicates
	items[1].Name = "Gerry's Grill"
	items[1].TripID = tr.ID
	if err := repo.UpsertItem(ctx, items[1]); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	tv, _ = repo.GetTrip(ctx, tr.ID)
	if len(tv.Items) != 4 || tv.Items[1].Name != "Gerry's Grill" {
		t.Fatalf("upsert should replace in place: %+v", tv.Items)
	}

	if err := repo.ReplaceItemImages(ctx, tr.ID, domain.KindDining, "gerrys", []string{"https://img/b.jpg", "https://img/a.jpg"}); err != nil {
		t.Fatalf("ReplaceItemImages: %v", err)
	}
	imgs, err := repo.ListImages(ctx, tr.ID)
	if err != nil || len(imgs) != 2 || imgs[0].URL != "https://img/b.jpg" {
		t.Fatalf("images after replace: %+v %v", imgs, err)
	}
	if err := repo.ReplaceItemImages(ctx, tr.ID, domain.KindDining, "nope", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown item: want ErrNotFound, got %v", err)
	}

	err = repo.ReplaceDaySchedule(ctx, domain.DaySchedule{TripID: tr.ID, Day: 2, ItemKeys: []string{"apo", "ghost"}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("unknown key: want ErrConflict, got %v", err)
	}
	if err := repo.ReplaceDaySchedule(ctx, domain.DaySchedule{TripID: tr.ID, Day: 2, ItemKeys: []string{"apo"}}); err != nil {
		t.Fatalf("ReplaceDaySchedule: %v", err)
	}

	orphan := domain.Item{TripID: 999, Kind: domain.KindActivity, Key: "x", Name: "x"}
	if err := repo.UpsertItem(ctx, orphan); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("orphan item: want ErrNotFound, got %v", err)
	}

	if err := repo.DeleteTrip(ctx, tr.ID); err != nil {
		t.Fatalf("DeleteTrip: %v", err)
	}
	if _, err := repo.GetTrip(ctx, tr.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted trip: want ErrNotFound, got %v", err)
	}
	var left int
	if err := db.QueryRow(`SELECT COUNT(*) FROM trip_items WHERE trip_id = ?`, tr.ID).Scan(&left); err != nil || left != 0 {
		t.Fatalf("children not cascaded: %d %v", left, err)
	}
	if err := repo.DeleteTrip(ctx, tr.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestRepo_MySQL_ListTripsPagination(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		dest := "Dumaguete"
		if i%2 == 0 {
			dest = "Siquijor"
		}
		if err := repo.UpsertTrip(ctx, domain.Trip{ID: i, Title: fmt.Sprintf("Trip %d", i), Destination: pstr(dest)}); err != nil {
			t.Fatalf("UpsertTrip: %v", err)
		}
	}

	p1, err := repo.ListTrips(ctx, domain.TripsQuery{Limit: 2})
	if err != nil {
		t.Fatalf("ListTrips: %v", err)
	}
	if len(p1.Items) != 2 || p1.NextCursor == nil || *p1.NextCursor != "2" {
		t.Fatalf("page 1: %+v", p1)
	}
	p3, err := repo.ListTrips(ctx, domain.TripsQuery{Limit: 2, AfterID: 4})
	if err != nil || len(p3.Items) != 1 || p3.NextCursor != nil {
		t.Fatalf("last page: %+v %v", p3, err)
	}

	f, err := repo.ListTrips(ctx, domain.TripsQuery{Limit: 10, Destination: pstr("Siquijor")})
	if err != nil || len(f.Items) != 2 || f.Items[0].ID != 2 || f.Items[1].ID != 4 {
		t.Fatalf("filtered: %+v %v", f, err)
	}

	if err := repo.LogMiss(ctx, 77, 404, "not found"); err != nil {
		t.Fatalf("LogMiss: %v", err)
	}
}
