// Package sqlite is the self-hosted remote collection backend. Records are
// stored with a TEXT date and a REAL amount, so the rows that come back carry
// exactly the loosely typed shapes the normalize boundary expects.
//
// Change events fan out in-process to watchers and, when a publisher is
// configured, across processes through AMQP.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"smartspend/internal/budget"
	"smartspend/internal/remote"
)

type watcher struct {
	ownerID string
	ch      chan remote.Event
}

type Repository struct {
	db  *sql.DB
	pub remote.EventPublisher

	mu       sync.Mutex
	watchers map[int]*watcher
	nextW    int
}

var (
	_ remote.Collection = (*Repository)(nil)
	_ budget.Store      = (*Repository)(nil)
)

// NewRepository opens (creating if needed) the database at dbPath and runs
// migrations. pub may be nil to disable cross-process fanout.
func NewRepository(dbPath string, pub remote.EventPublisher) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:       db,
		pub:      pub,
		watchers: make(map[int]*watcher),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// List returns the owner's records. The ORDER BY is opportunistic (ISO date
// text sorts chronologically); consumers still sort themselves.
func (r *Repository) List(ctx context.Context, ownerID string) ([]remote.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, description, amount, category, date, created_at, updated_at
		FROM expenses WHERE owner_id = ? ORDER BY date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []remote.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (remote.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, description, amount, category, date, created_at, updated_at
		FROM expenses WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		return remote.Record{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return rec, nil
}

func (r *Repository) Insert(ctx context.Context, rec remote.Record) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, owner_id, description, amount, category, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.OwnerID, rec.Description, amountValue(rec.Amount), rec.Category,
		dateText(rec.Date), epochValue(rec.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"owner_id", rec.OwnerID,
		"category", rec.Category)

	r.notify(ctx, remote.Event{Op: remote.OpCreate, ID: id, OwnerID: rec.OwnerID, At: time.Now()})
	return id, nil
}

func (r *Repository) Update(ctx context.Context, id string, rec remote.Record) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET description = ?, amount = ?, category = ?, date = ?, updated_at = ?
		WHERE id = ?`,
		rec.Description, amountValue(rec.Amount), rec.Category,
		dateText(rec.Date), epochValue(rec.UpdatedAt), id)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s not found", id)
	}

	ownerID := r.ownerOf(ctx, id)
	r.notify(ctx, remote.Event{Op: remote.OpUpdate, ID: id, OwnerID: ownerID, At: time.Now()})
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ownerID := r.ownerOf(ctx, id)
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %s not found", id)
	}

	r.notify(ctx, remote.Event{Op: remote.OpDelete, ID: id, OwnerID: ownerID, At: time.Now()})
	return nil
}

// Watch registers an in-process change feed for one owner. Lagging
// subscribers lose events, which is safe because consumers re-list.
func (r *Repository) Watch(ownerID string) (<-chan remote.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextW
	r.nextW++
	w := &watcher{ownerID: ownerID, ch: make(chan remote.Event, 16)}
	r.watchers[id] = w
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(cur.ch)
		}
	}
	return w.ch, cancel
}

// Load implements budget.Store.
func (r *Repository) Load(ctx context.Context, userID string) (budget.Config, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM budget_configs WHERE owner_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return budget.Config{}, false, nil
	}
	if err != nil {
		return budget.Config{}, false, fmt.Errorf("load budget config: %w", err)
	}
	var cfg budget.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return budget.Config{}, false, fmt.Errorf("decode budget config: %w", err)
	}
	return cfg, true, nil
}

// Save implements budget.Store.
func (r *Repository) Save(ctx context.Context, userID string, cfg budget.Config) error {
	payload, err := json.Marshal(cfg.Clamp())
	if err != nil {
		return fmt.Errorf("encode budget config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO budget_configs (owner_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save budget config: %w", err)
	}
	return nil
}

// notify fans the event out locally and, when configured, over AMQP. Fanout
// failure never fails the committed write.
func (r *Repository) notify(ctx context.Context, ev remote.Event) {
	r.mu.Lock()
	for _, w := range r.watchers {
		if w.ownerID != ev.OwnerID {
			continue
		}
		select {
		case w.ch <- ev:
		default:
		}
	}
	r.mu.Unlock()

	if r.pub != nil {
		if err := r.pub.PublishLedgerEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"op", ev.Op, "id", ev.ID, "error", err)
		}
	}
}

func (r *Repository) ownerOf(ctx context.Context, id string) string {
	var ownerID string
	if err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM expenses WHERE id = ?`, id).Scan(&ownerID); err != nil {
		return ""
	}
	return ownerID
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (remote.Record, error) {
	var (
		rec       remote.Record
		amount    float64
		date      sql.NullString
		createdAt int64
		updatedAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.Description, &amount, &rec.Category,
		&date, &createdAt, &updatedAt)
	if err != nil {
		return remote.Record{}, err
	}
	rec.Amount = amount
	if date.Valid {
		rec.Date = date.String
	}
	rec.CreatedAt = remote.Timestamp{Seconds: createdAt}
	if updatedAt.Valid {
		rec.UpdatedAt = remote.Timestamp{Seconds: updatedAt.Int64}
	}
	return rec, nil
}

// amountValue coerces the loosely typed wire amount to the column type.
func amountValue(v any) float64 {
	switch a := v.(type) {
	case float64:
		return a
	case int64:
		return float64(a)
	case int:
		return float64(a)
	}
	return 0
}

// dateText renders the wire date as an ISO calendar date string.
func dateText(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case time.Time:
		return d.Format("2006-01-02")
	case remote.Timestamp:
		return d.Time().UTC().Format("2006-01-02")
	}
	return ""
}

// epochValue renders a wire timestamp as epoch seconds.
func epochValue(v any) int64 {
	switch t := v.(type) {
	case remote.Timestamp:
		return t.Seconds
	case time.Time:
		return t.Unix()
	case int64:
		return t
	}
	return time.Now().Unix()
}
