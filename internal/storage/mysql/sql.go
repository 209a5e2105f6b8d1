package mysql

const upsertTripSQL = `
INSERT INTO trips
  (id, source_id, title, destination, start_date, end_date, currency, price_from, cover_image, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  source_id   = VALUES(source_id),
  title       = VALUES(title),
  destination = VALUES(destination),
  start_date  = VALUES(start_date),
  end_date    = VALUES(end_date),
  currency    = VALUES(currency),
  price_from  = VALUES(price_from),
  cover_image = VALUES(cover_image),
  raw         = VALUES(raw),
  updated_at  = CURRENT_TIMESTAMP
`

const itemColumns = "(trip_id, kind, item_key, day, position, name, detail, price, currency, duration_min, rating, time_window, airline, from_iata, to_iata, cabin_class, stars)"

const itemPlaceholders = "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"

const insertItemsPrefix = "INSERT INTO trip_items\n  " + itemColumns + "\nVALUES "

// Natural key is (trip_id, kind, item_key); everything else is replaced.
const insertItemsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  day          = VALUES(day),\n" +
	"  position     = VALUES(position),\n" +
	"  name         = VALUES(name),\n" +
	"  detail       = VALUES(detail),\n" +
	"  price        = VALUES(price),\n" +
	"  currency     = VALUES(currency),\n" +
	"  duration_min = VALUES(duration_min),\n" +
	"  rating       = VALUES(rating),\n" +
	"  time_window  = VALUES(time_window),\n" +
	"  airline      = VALUES(airline),\n" +
	"  from_iata    = VALUES(from_iata),\n" +
	"  to_iata      = VALUES(to_iata),\n" +
	"  cabin_class  = VALUES(cabin_class),\n" +
	"  stars        = VALUES(stars)\n"

const insertImagesPrefix = "INSERT INTO item_images (trip_id, item_kind, item_key, url, position) VALUES "

const upsertDaySQL = `
INSERT INTO day_schedules (trip_id, day, summary, item_keys)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  summary   = VALUES(summary),
  item_keys = VALUES(item_keys)
`

const (
	deleteItemsSQL      = `DELETE FROM trip_items WHERE trip_id = ?`
	deleteImagesSQL     = `DELETE FROM item_images WHERE trip_id = ?`
	deleteDaysSQL       = `DELETE FROM day_schedules WHERE trip_id = ?`
	deleteItemImagesSQL = `DELETE FROM item_images WHERE trip_id = ? AND item_kind = ? AND item_key = ?`
	deleteTripSQL       = `DELETE FROM trips WHERE id = ?`
	tripExistsSQL       = `SELECT 1 FROM trips WHERE id = ?`
	itemExistsSQL       = `SELECT 1 FROM trip_items WHERE trip_id = ? AND kind = ? AND item_key = ?`
	itemKeysSQL         = `SELECT item_key FROM trip_items WHERE trip_id = ?`
)

const insertMissSQL = `
INSERT INTO ingest_misses (id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  http_status = VALUES(http_status),
  reason      = VALUES(reason),
  seen_at     = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getTripSQL = `
SELECT id, title, destination, start_date, end_date, currency, price_from, cover_image
FROM trips
WHERE id = ?
`

const listItemsSQL = `
SELECT trip_id, kind, item_key, day, position, name, detail, price, currency,
       duration_min, rating, time_window, airline, from_iata, to_iata, cabin_class, stars
FROM trip_items
WHERE trip_id = ?
ORDER BY day, position, id
`

const listImagesSQL = `
SELECT trip_id, item_kind, item_key, url, position
FROM item_images
WHERE trip_id = ?
ORDER BY item_kind, item_key, position, id
`

const listDaysSQL = `
SELECT trip_id, day, summary, item_keys
FROM day_schedules
WHERE trip_id = ?
ORDER BY day
`

// Keyset pagination on id; the destination filter is optional.
const listTripsSQL = `
SELECT id, title, destination, start_date, price_from, cover_image
FROM trips
WHERE id > ? AND (? IS NULL OR destination = ?)
ORDER BY id
LIMIT ?
`
