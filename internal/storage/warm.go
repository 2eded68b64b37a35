package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// WarmTier is the local, crash-safe warm tier: a single-writer
// SQLite file rather than a hand-rolled append log, giving the tier's
// "local history" query a real index on purpose instead of a linear scan.
type WarmTier struct {
	db *sql.DB
}

// OpenWarmTier opens (creating if needed) the warm tier's SQLite file at
// path and ensures its schema exists.
func OpenWarmTier(path string) (*WarmTier, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "open warm tier db")
	}
	db.SetMaxOpenConns(1) // single-writer

	const schema = `
CREATE TABLE IF NOT EXISTS records (
	trace_id TEXT PRIMARY KEY,
	hologram_id TEXT NOT NULL,
	purpose TEXT NOT NULL,
	hint TEXT NOT NULL,
	origin TEXT NOT NULL,
	path TEXT NOT NULL,
	clock TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_accessed INTEGER NOT NULL,
	access_count INTEGER NOT NULL,
	importance TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_purpose ON records(purpose);
CREATE INDEX IF NOT EXISTS idx_records_last_accessed ON records(last_accessed);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "migrate warm tier schema")
	}
	return &WarmTier{db: db}, nil
}

func (w *WarmTier) Close() error { return w.db.Close() }

func (w *WarmTier) Name() Tier { return TierWarm }

func (w *WarmTier) Put(ctx context.Context, r Record) error {
	hint, err := json.Marshal(map[string]interface{}(r.Hint))
	if err != nil {
		return kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal hint")
	}
	path, _ := json.Marshal(r.Path)
	clockJSON, _ := json.Marshal(r.Clock.ToMap())

	_, err = w.db.ExecContext(ctx, `
INSERT INTO records (trace_id, hologram_id, purpose, hint, origin, path, clock, created_at, last_accessed, access_count, importance)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(trace_id) DO UPDATE SET
	hologram_id=excluded.hologram_id, purpose=excluded.purpose, hint=excluded.hint,
	origin=excluded.origin, path=excluded.path, clock=excluded.clock,
	last_accessed=excluded.last_accessed, access_count=excluded.access_count, importance=excluded.importance
`, r.TraceID, r.HologramID, string(r.Purpose), string(hint), r.Origin, string(path), string(clockJSON),
		r.CreatedAt.UnixNano(), r.LastAccessed.UnixNano(), r.AccessCount, string(r.Importance))
	if err != nil {
		return kudzuerr.Unreachable(string(TierWarm), "%v", err)
	}
	return nil
}

func (w *WarmTier) Get(ctx context.Context, id string) (Record, bool, error) {
	row := w.db.QueryRowContext(ctx, `SELECT trace_id, hologram_id, purpose, hint, origin, path, clock, created_at, last_accessed, access_count, importance FROM records WHERE trace_id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, kudzuerr.Unreachable(string(TierWarm), "%v", err)
	}
	return r, true, nil
}

func (w *WarmTier) Delete(ctx context.Context, id string) error {
	if _, err := w.db.ExecContext(ctx, `DELETE FROM records WHERE trace_id = ?`, id); err != nil {
		return kudzuerr.Unreachable(string(TierWarm), "%v", err)
	}
	return nil
}

func (w *WarmTier) Query(ctx context.Context, purpose string, limit int) ([]Record, error) {
	var rows *sql.Rows
	var err error
	q := `SELECT trace_id, hologram_id, purpose, hint, origin, path, clock, created_at, last_accessed, access_count, importance FROM records`
	if purpose != "" {
		q += ` WHERE purpose = ?`
	}
	if limit > 0 {
		q += ` LIMIT ?`
	}
	switch {
	case purpose != "" && limit > 0:
		rows, err = w.db.QueryContext(ctx, q, purpose, limit)
	case purpose != "":
		rows, err = w.db.QueryContext(ctx, q, purpose)
	case limit > 0:
		rows, err = w.db.QueryContext(ctx, q, limit)
	default:
		rows, err = w.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, kudzuerr.Unreachable(string(TierWarm), "%v", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (w *WarmTier) All(ctx context.Context, limitPerPurpose int) ([]Record, error) {
	all, err := w.Query(ctx, "", 0)
	if err != nil {
		return nil, err
	}
	if limitPerPurpose <= 0 {
		return all, nil
	}
	counts := map[string]int{}
	var out []Record
	for _, r := range all {
		if counts[string(r.Purpose)] >= limitPerPurpose {
			continue
		}
		counts[string(r.Purpose)]++
		out = append(out, r)
	}
	return out, nil
}

// AgingCandidates returns records whose last_accessed predates the cutoff
// and whose importance isn't critical — the warm→cold selector the aging
// loop drives.
func (w *WarmTier) AgingCandidates(ctx context.Context, cutoff time.Time) ([]Record, error) {
	rows, err := w.db.QueryContext(ctx, `
SELECT trace_id, hologram_id, purpose, hint, origin, path, clock, created_at, last_accessed, access_count, importance
FROM records WHERE last_accessed < ? AND importance != ?`, cutoff.UnixNano(), string(trace.ImportanceCritical))
	if err != nil {
		return nil, kudzuerr.Unreachable(string(TierWarm), "%v", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		traceID, hologramID, purpose, hintJSON, origin, pathJSON, clockJSON, importance string
		createdAt, lastAccessed                                                          int64
		accessCount                                                                      int64
	)
	if err := row.Scan(&traceID, &hologramID, &purpose, &hintJSON, &origin, &pathJSON, &clockJSON, &createdAt, &lastAccessed, &accessCount, &importance); err != nil {
		return Record{}, err
	}
	var hint map[string]interface{}
	_ = json.Unmarshal([]byte(hintJSON), &hint)
	var path []string
	_ = json.Unmarshal([]byte(pathJSON), &path)
	var clockMap map[string]uint64
	_ = json.Unmarshal([]byte(clockJSON), &clockMap)

	return Record{
		TraceID:      traceID,
		HologramID:   hologramID,
		Purpose:      trace.Purpose(purpose),
		Hint:         trace.Hint(hint),
		Origin:       origin,
		Path:         path,
		Clock:        clock.FromMap(clockMap),
		CreatedAt:    time.Unix(0, createdAt).UTC(),
		LastAccessed: time.Unix(0, lastAccessed).UTC(),
		AccessCount:  accessCount,
		Importance:   trace.Importance(importance),
	}, nil
}

func scanAll(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
