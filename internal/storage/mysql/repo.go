package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	drv "github.com/go-sql-driver/mysql"

	"trip_teaser/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}
func nullF64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}
func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	i := int(n.Int64)
	return &i
}

// MySQL server error numbers mapped onto domain errors.
const (
	errOutOfRange      = 1264 // numeric value out of range for column
	errDataTooLong     = 1406 // string longer than the column
	errNoReferencedRow = 1452 // foreign key parent row is missing
)

func mapErr(err error) error {
	var me *drv.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errNoReferencedRow:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, me.Message)
	case errOutOfRange, errDataTooLong:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, me.Message)
	}
	return err
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertTrip(ctx context.Context, t domain.Trip) error {
	_, err := r.db.ExecContext(ctx, upsertTripSQL,
		t.ID,
		valStr(t.SourceID),
		t.Title,
		valStr(t.Destination),
		valStr(t.StartDate),
		valStr(t.EndDate),
		valStr(t.Currency),
		valF64(t.PriceFrom),
		valStr(t.CoverImage),
		valJSON(t.RawJSON),
	)
	return err
}

// ReplaceTripContents swaps every child row of a trip in one transaction,
// so readers never see a half-imported itinerary.
func (r *Repo) ReplaceTripContents(ctx context.Context, tripID int64, items []domain.Item, images []domain.Image, days []domain.DaySchedule) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{deleteImagesSQL, deleteDaysSQL, deleteItemsSQL} {
			if _, err := tx.ExecContext(ctx, q, tripID); err != nil {
				return err
			}
		}
		if err := insertItems(ctx, tx, tripID, items); err != nil {
			return err
		}
		if err := insertImages(ctx, tx, tripID, images); err != nil {
			return err
		}
		for _, d := range days {
			d.TripID = tripID
			if err := upsertDay(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) UpsertItem(ctx context.Context, it domain.Item) error {
	return mapErr(insertItems(ctx, r.db, it.TripID, []domain.Item{it}))
}

func (r *Repo) ReplaceItemImages(ctx context.Context, tripID int64, kind domain.ItemKind, key string, urls []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, itemExistsSQL, tripID, string(kind), key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteItemImagesSQL, tripID, string(kind), key); err != nil {
			return err
		}
		imgs := make([]domain.Image, len(urls))
		for i, u := range urls {
			imgs[i] = domain.Image{TripID: tripID, ItemKind: kind, ItemKey: key, URL: u, Position: i}
		}
		return insertImages(ctx, tx, tripID, imgs)
	})
}

// ReplaceDaySchedule rejects schedules that reference items the trip does not have.
func (r *Repo) ReplaceDaySchedule(ctx context.Context, d domain.DaySchedule) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, tripExistsSQL, d.TripID); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, itemKeysSQL, d.TripID)
		if err != nil {
			return err
		}
		known := map[string]struct{}{}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return err
			}
			known[k] = struct{}{}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, k := range d.ItemKeys {
			if _, ok := known[k]; !ok {
				return fmt.Errorf("%w: unknown item key %q", domain.ErrConflict, k)
			}
		}
		return upsertDay(ctx, tx, d)
	})
}

func (r *Repo) DeleteTrip(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteTripSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) LogMiss(ctx context.Context, id int64, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, id, status, reason)
	return err
}

func (r *Repo) GetTrip(ctx context.Context, id int64) (domain.TripView, error) {
	var tv domain.TripView
	var dest, start, end, cur, cover sql.NullString
	var price sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, getTripSQL, id).Scan(
		&tv.ID, &tv.Title, &dest, &start, &end, &cur, &price, &cover,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.TripView{}, domain.ErrNotFound
		}
		return domain.TripView{}, err
	}
	tv.Destination = nullStr(dest)
	tv.StartDate = nullStr(start)
	tv.EndDate = nullStr(end)
	tv.Currency = nullStr(cur)
	tv.PriceFrom = nullF64(price)
	tv.CoverImage = nullStr(cover)

	var err error
	if tv.Items, err = r.listItems(ctx, id); err != nil {
		return domain.TripView{}, err
	}
	if tv.Images, err = r.ListImages(ctx, id); err != nil {
		return domain.TripView{}, err
	}
	if tv.Days, err = r.listDays(ctx, id); err != nil {
		return domain.TripView{}, err
	}
	return tv, nil
}

func (r *Repo) ListTrips(ctx context.Context, q domain.TripsQuery) (domain.TripsPage, error) {
	// fetch one extra row to learn whether another page exists
	rows, err := r.db.QueryContext(ctx, listTripsSQL,
		q.AfterID, valStr(q.Destination), valStr(q.Destination), q.Limit+1)
	if err != nil {
		return domain.TripsPage{}, err
	}
	defer rows.Close()

	out := make([]domain.TripSummary, 0, q.Limit)
	for rows.Next() {
		var s domain.TripSummary
		var dest, start, cover sql.NullString
		var price sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Title, &dest, &start, &price, &cover); err != nil {
			return domain.TripsPage{}, err
		}
		s.Destination = nullStr(dest)
		s.StartDate = nullStr(start)
		s.PriceFrom = nullF64(price)
		s.CoverImage = nullStr(cover)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return domain.TripsPage{}, err
	}

	page := domain.TripsPage{Items: out}
	if len(out) > q.Limit {
		page.Items = out[:q.Limit]
		next := strconv.FormatInt(page.Items[q.Limit-1].ID, 10)
		page.NextCursor = &next
	}
	return page, nil
}

func (r *Repo) ListImages(ctx context.Context, tripID int64) ([]domain.Image, error) {
	rows, err := r.db.QueryContext(ctx, listImagesSQL, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Image
	for rows.Next() {
		var im domain.Image
		var kind string
		if err := rows.Scan(&im.TripID, &kind, &im.ItemKey, &im.URL, &im.Position); err != nil {
			return nil, err
		}
		im.ItemKind = domain.ItemKind(kind)
		out = append(out, im)
	}
	return out, rows.Err()
}

func (r *Repo) listItems(ctx context.Context, tripID int64) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, listItemsSQL, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		var it domain.Item
		var kind string
		var (
			detail, cur, window      sql.NullString
			airline, from, to, cabin sql.NullString
			price, rating            sql.NullFloat64
			duration, stars          sql.NullInt64
		)
		if err := rows.Scan(
			&it.TripID, &kind, &it.Key, &it.Day, &it.Position, &it.Name,
			&detail, &price, &cur, &duration, &rating, &window,
			&airline, &from, &to, &cabin, &stars,
		); err != nil {
			return nil, err
		}
		it.Kind = domain.ItemKind(kind)
		it.Detail = nullStr(detail)
		it.Price = nullF64(price)
		it.Currency = nullStr(cur)
		it.DurationMin = nullInt(duration)
		it.Rating = nullF64(rating)
		it.TimeWindow = nullStr(window)
		switch it.Kind {
		case domain.KindFlight:
			it.Flight = &domain.FlightInfo{
				Airline:    nullStr(airline),
				FromIATA:   nullStr(from),
				ToIATA:     nullStr(to),
				CabinClass: nullStr(cabin),
			}
		case domain.KindHotel:
			it.Hotel = &domain.HotelInfo{Stars: nullInt(stars)}
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) listDays(ctx context.Context, tripID int64) ([]domain.DaySchedule, error) {
	rows, err := r.db.QueryContext(ctx, listDaysSQL, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DaySchedule
	for rows.Next() {
		var d domain.DaySchedule
		var summary sql.NullString
		var keys []byte
		if err := rows.Scan(&d.TripID, &d.Day, &summary, &keys); err != nil {
			return nil, err
		}
		d.Summary = nullStr(summary)
		if err := json.Unmarshal(keys, &d.ItemKeys); err != nil {
			return nil, fmt.Errorf("day %d item_keys: %w", d.Day, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- write helpers shared by *sql.DB and *sql.Tx ----

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return mapErr(err)
	}
	return tx.Commit()
}

func exists(ctx context.Context, q execer, query string, args ...any) error {
	var one int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func insertItems(ctx context.Context, q execer, tripID int64, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*17)
	for _, it := range items {
		var airline, from, to, cabin *string
		if f := it.Flight; f != nil {
			airline, from, to, cabin = f.Airline, f.FromIATA, f.ToIATA, f.CabinClass
		}
		var stars *int
		if h := it.Hotel; h != nil {
			stars = h.Stars
		}
		values = append(values, itemPlaceholders)
		args = append(args,
			tripID,
			string(it.Kind),
			it.Key,
			it.Day,
			it.Position,
			it.Name,
			valStr(it.Detail),
			valF64(it.Price),
			valStr(it.Currency),
			valInt(it.DurationMin),
			valF64(it.Rating),
			valStr(it.TimeWindow),
			valStr(airline),
			valStr(from),
			valStr(to),
			valStr(cabin),
			valInt(stars),
		)
	}
	sqlStr := insertItemsPrefix + strings.Join(values, ",") + insertItemsOnDup
	_, err := q.ExecContext(ctx, sqlStr, args...)
	return err
}

func insertImages(ctx context.Context, q execer, tripID int64, imgs []domain.Image) error {
	if len(imgs) == 0 {
		return nil
	}
	values := make([]string, 0, len(imgs))
	args := make([]any, 0, len(imgs)*5)
	for _, im := range imgs {
		values = append(values, "(?,?,?,?,?)")
		args = append(args, tripID, string(im.ItemKind), im.ItemKey, im.URL, im.Position)
	}
	_, err := q.ExecContext(ctx, insertImagesPrefix+strings.Join(values, ","), args...)
	return err
}

func upsertDay(ctx context.Context, q execer, d domain.DaySchedule) error {
	keys := d.ItemKeys
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, upsertDaySQL, d.TripID, d.Day, valStr(d.Summary), string(b))
	return err
}
