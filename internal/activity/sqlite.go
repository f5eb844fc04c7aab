package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrBatchNotFound = errors.New("batch snapshot not found")
)

// SingleWriterDB serialises every write to the SQLite activity log.
// Reads go straight to the pool.
type SingleWriterDB struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// Entry is one projected event.
type Entry struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	SubjectType string    `json:"subjectType"`
	SubjectID   string    `json:"subjectId"`
	UserID      string    `json:"userId,omitempty"`
	Summary     string    `json:"summary"`
	Payload     string    `json:"-"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// BatchSnapshot is the last bucket split confirmed for a batch.
type BatchSnapshot struct {
	BatchID   string    `json:"batchId"`
	BatchCode string    `json:"batchCode"`
	Available int       `json:"available"`
	Reserved  int       `json:"reserved"`
	Sold      int       `json:"sold"`
	Inactive  int       `json:"inactive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LinkStats aggregates issuance and delivery of a sales link.
type LinkStats struct {
	LinkID      string    `json:"linkId"`
	LinkType    string    `json:"linkType"`
	Slug        string    `json:"slug"`
	URL         string    `json:"url"`
	TotalPieces int       `json:"totalPieces"`
	Sent        int       `json:"sent"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	IssuedBy    string    `json:"issuedBy"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Filter narrows ListEntries.
type Filter struct {
	SubjectID string
	EventType string
	UserID    string
	Limit     int
	Offset    int
}

// Open connects to the database at path and creates the schema.
func Open(path string, logger *zap.Logger) (*SingleWriterDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	swdb := &SingleWriterDB{db: db, logger: logger}
	if err := swdb.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return swdb, nil
}

func (swdb *SingleWriterDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity_log (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		subject_type TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		user_id TEXT,
		summary TEXT NOT NULL,
		payload TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		CHECK(subject_type IN ('batch', 'link'))
	);

	CREATE TABLE IF NOT EXISTS batch_snapshots (
		batch_id TEXT PRIMARY KEY,
		batch_code TEXT NOT NULL,
		available INTEGER NOT NULL,
		reserved INTEGER NOT NULL,
		sold INTEGER NOT NULL,
		inactive INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK(available >= 0 AND reserved >= 0 AND sold >= 0 AND inactive >= 0)
	);

	CREATE TABLE IF NOT EXISTS link_stats (
		link_id TEXT PRIMARY KEY,
		link_type TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		total_pieces INTEGER NOT NULL DEFAULT 0,
		sent INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		issued_by TEXT NOT NULL DEFAULT '',
		issued_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_subject ON activity_log(subject_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_activity_type ON activity_log(event_type);
	CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_log(user_id);
	`
	_, err := swdb.db.Exec(schema)
	return err
}

// Ping checks the database connection
func (swdb *SingleWriterDB) Ping(ctx context.Context) error {
	return swdb.db.PingContext(ctx)
}

// Close closes the database connection
func (swdb *SingleWriterDB) Close() error {
	return swdb.db.Close()
}

// withTx runs fn in a transaction under the writer lock.
func (swdb *SingleWriterDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	swdb.mu.Lock()
	defer swdb.mu.Unlock()

	tx, err := swdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// insertEntry adds entry unless its event id is already recorded. It
// reports whether a row was written, so redelivered events are applied once.
func insertEntry(ctx context.Context, tx *sql.Tx, entry Entry) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO activity_log
			(event_id, event_type, subject_type, subject_id, user_id, summary, payload, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.EventID, entry.EventType, entry.SubjectType, entry.SubjectID, entry.UserID,
		entry.Summary, entry.Payload,
		entry.OccurredAt.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// RecordBatchChange logs entry and stores the snapshot, unless the snapshot
// on file is newer.
func (swdb *SingleWriterDB) RecordBatchChange(ctx context.Context, entry Entry, snap BatchSnapshot) error {
	return swdb.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := insertEntry(ctx, tx, entry)
		if err != nil || !inserted {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO batch_snapshots (batch_id, batch_code, available, reserved, sold, inactive, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(batch_id) DO UPDATE SET
				batch_code = excluded.batch_code,
				available = excluded.available,
				reserved = excluded.reserved,
				sold = excluded.sold,
				inactive = excluded.inactive,
				updated_at = excluded.updated_at
			WHERE excluded.updated_at >= batch_snapshots.updated_at
		`,
			snap.BatchID, snap.BatchCode, snap.Available, snap.Reserved, snap.Sold, snap.Inactive,
			snap.UpdatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert batch snapshot: %w", err)
		}
		return nil
	})
}

// RecordLinkIssued logs entry and opens the stats row of the link.
func (swdb *SingleWriterDB) RecordLinkIssued(ctx context.Context, entry Entry, stats LinkStats) error {
	return swdb.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := insertEntry(ctx, tx, entry)
		if err != nil || !inserted {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO link_stats (link_id, link_type, slug, url, total_pieces, issued_by, issued_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(link_id) DO UPDATE SET
				link_type = excluded.link_type,
				slug = excluded.slug,
				url = excluded.url,
				total_pieces = excluded.total_pieces,
				issued_by = excluded.issued_by,
				issued_at = excluded.issued_at
		`,
			stats.LinkID, stats.LinkType, stats.Slug, stats.URL, stats.TotalPieces, stats.IssuedBy,
			stats.IssuedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert link stats: %w", err)
		}
		return nil
	})
}

// RecordLinkDelivery logs entry and adds the delivery counts to the link.
// A delivery seen before its issuance creates the row with counts only.
func (swdb *SingleWriterDB) RecordLinkDelivery(ctx context.Context, entry Entry, linkID string, sent, failed, skipped int) error {
	return swdb.withTx(ctx, func(tx *sql.Tx) error {
		inserted, err := insertEntry(ctx, tx, entry)
		if err != nil || !inserted {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO link_stats (link_id, sent, failed, skipped, issued_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(link_id) DO UPDATE SET
				sent = link_stats.sent + excluded.sent,
				failed = link_stats.failed + excluded.failed,
				skipped = link_stats.skipped + excluded.skipped
		`,
			linkID, sent, failed, skipped, entry.OccurredAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to update link stats: %w", err)
		}
		return nil
	})
}

// ListEntries returns the newest entries matching f and the total match count.
func (swdb *SingleWriterDB) ListEntries(ctx context.Context, f Filter) ([]Entry, int, error) {
	var where []string
	var args []interface{}
	if f.SubjectID != "" {
		where = append(where, "subject_id = ?")
		args = append(args, f.SubjectID)
	}
	if f.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, f.EventType)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := swdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activity_log"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_id, event_type, subject_type, subject_id, COALESCE(user_id, ''), summary, payload, occurred_at
		FROM activity_log` + clause + `
		ORDER BY occurred_at DESC, event_id
		LIMIT ? OFFSET ?
	`
	rows, err := swdb.db.QueryContext(ctx, query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var occurredAt string
		if err := rows.Scan(&e.EventID, &e.EventType, &e.SubjectType, &e.SubjectID, &e.UserID,
			&e.Summary, &e.Payload, &occurredAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.OccurredAt, _ = time.Parse(timeLayout, occurredAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return entries, total, nil
}

// GetBatchSnapshot returns the last projected buckets of a batch.
func (swdb *SingleWriterDB) GetBatchSnapshot(ctx context.Context, batchID string) (*BatchSnapshot, error) {
	var s BatchSnapshot
	var updatedAt string
	err := swdb.db.QueryRowContext(ctx, `
		SELECT batch_id, batch_code, available, reserved, sold, inactive, updated_at
		FROM batch_snapshots WHERE batch_id = ?
	`, batchID).Scan(&s.BatchID, &s.BatchCode, &s.Available, &s.Reserved, &s.Sold, &s.Inactive, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch snapshot: %w", err)
	}
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &s, nil
}

// GetLinkStats returns the issuance and delivery counters of a link.
func (swdb *SingleWriterDB) GetLinkStats(ctx context.Context, linkID string) (*LinkStats, error) {
	var s LinkStats
	var issuedAt string
	err := swdb.db.QueryRowContext(ctx, `
		SELECT link_id, link_type, slug, url, total_pieces, sent, failed, skipped, issued_by, issued_at
		FROM link_stats WHERE link_id = ?
	`, linkID).Scan(&s.LinkID, &s.LinkType, &s.Slug, &s.URL, &s.TotalPieces,
		&s.Sent, &s.Failed, &s.Skipped, &s.IssuedBy, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link stats: %w", err)
	}
	s.IssuedAt, _ = time.Parse(timeLayout, issuedAt)
	return &s, nil
}

// Stats counts the rows of each projection.
type Stats struct {
	Entries int `json:"entries"`
	Batches int `json:"batches"`
	Links   int `json:"links"`
}

func (swdb *SingleWriterDB) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"activity_log", &s.Entries},
		{"batch_snapshots", &s.Batches},
		{"link_stats", &s.Links},
	}
	for _, c := range counts {
		if err := swdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return &s, nil
}
