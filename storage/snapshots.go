package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"courtmap/api"
)

// Snapshot is the last good nearby response for one query.
type Snapshot struct {
	Key         string            `json:"key"`
	Lat         float64           `json:"lat"`
	Lng         float64           `json:"lng"`
	RadiusMiles float64           `json:"radius_mi"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Count       int               `json:"count"`
	Source      string            `json:"source,omitempty"`
	Records     []api.VenueRecord `json:"records,omitempty"`
}

type SnapshotFilter struct {
	Since time.Time
	Limit int
}

// SnapshotKey rounds the query to about 100 m so nearby repeats share a snapshot.
func SnapshotKey(lat, lng, radiusMiles float64) string {
	return fmt.Sprintf("%.3f,%.3f,%g", roundTo(lat, 3), roundTo(lng, 3), roundTo(radiusMiles, 1))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

func OpenSnapshotsDB() (*sql.DB, error) {
	if _, err := ensureConfigDir(); err != nil {
		return nil, err
	}
	path, err := SnapshotsPath()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := ensureSnapshotsSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func ensureSnapshotsSchema(db *sql.DB) error {
	createTable := `
CREATE TABLE IF NOT EXISTS snapshots (
  key TEXT PRIMARY KEY,
  lat REAL,
  lng REAL,
  radius_mi REAL,
  fetched_at TEXT,
  count INTEGER,
  payload TEXT
);`

	if _, err := db.Exec(createTable); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);"); err != nil {
		return fmt.Errorf("create snapshots index: %w", err)
	}

	if err := ensureSnapshotColumns(db, []string{"source"}); err != nil {
		return err
	}

	return nil
}

func ensureSnapshotColumns(db *sql.DB, columns []string) error {
	rows, err := db.Query("PRAGMA table_info(snapshots);")
	if err != nil {
		return fmt.Errorf("inspect snapshots table: %w", err)
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect snapshots columns: %w", err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect snapshots columns: %w", err)
	}

	for _, column := range columns {
		if _, ok := existing[column]; ok {
			continue
		}
		_, err := db.Exec(fmt.Sprintf("ALTER TABLE snapshots ADD COLUMN %s TEXT;", column))
		if err != nil {
			return fmt.Errorf("add snapshots column %s: %w", column, err)
		}
	}
	return nil
}

// SaveSnapshot stores records as the last good result for their query,
// replacing any earlier snapshot with the same key.
func SaveSnapshot(db *sql.DB, snap Snapshot) error {
	payload, err := json.Marshal(snap.Records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := SnapshotKey(snap.Lat, snap.Lng, snap.RadiusMiles)

	query := `
INSERT OR REPLACE INTO snapshots (
  key, lat, lng, radius_mi, fetched_at, count, payload, source
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`

	_, err = db.Exec(
		query,
		key,
		snap.Lat,
		snap.Lng,
		snap.RadiusMiles,
		snap.FetchedAt.UTC().Format(time.RFC3339),
		len(snap.Records),
		string(payload),
		snap.Source,
	)
	return err
}

// LoadSnapshot returns the snapshot for a query, or nil when none was saved.
func LoadSnapshot(db *sql.DB, lat, lng, radiusMiles float64) (*Snapshot, error) {
	row := db.QueryRow(`
SELECT key, lat, lng, radius_mi, fetched_at, count, source, payload
FROM snapshots WHERE key = ?`, SnapshotKey(lat, lng, radiusMiles))

	var snap Snapshot
	var fetchedAt string
	var source sql.NullString
	var payload string
	err := row.Scan(&snap.Key, &snap.Lat, &snap.Lng, &snap.RadiusMiles, &fetchedAt, &snap.Count, &source, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if snap.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt); err != nil {
		return nil, fmt.Errorf("snapshot %s: fetched_at: %w", snap.Key, err)
	}
	if source.Valid {
		snap.Source = source.String
	}
	if err := json.Unmarshal([]byte(payload), &snap.Records); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode payload: %w", snap.Key, err)
	}
	return &snap, nil
}

// ListSnapshots returns snapshot metadata, newest first, without records.
func ListSnapshots(db *sql.DB, filter SnapshotFilter) ([]Snapshot, error) {
	base := `
SELECT key, lat, lng, radius_mi, fetched_at, count, source
FROM snapshots`

	conds := []string{}
	args := []any{}

	if !filter.Since.IsZero() {
		conds = append(conds, "fetched_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}

	query := base
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY fetched_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		var fetchedAt string
		var source sql.NullString
		if err := rows.Scan(&snap.Key, &snap.Lat, &snap.Lng, &snap.RadiusMiles, &fetchedAt, &snap.Count, &source); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339, fetchedAt); err == nil {
			snap.FetchedAt = parsed
		}
		if source.Valid {
			snap.Source = source.String
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snaps, nil
}

// PruneSnapshots deletes snapshots fetched before cutoff.
func PruneSnapshots(db *sql.DB, cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM snapshots WHERE fetched_at < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
