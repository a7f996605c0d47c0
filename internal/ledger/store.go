// Package ledger maintains the ordered, normalized local view of one user's
// expenses over the remote collection and mediates every write.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/remote"
)

// Snapshot is one complete, normalized, sorted view of a user's expense set.
type Snapshot struct {
	UserID   string
	Expenses []core.Expense
	At       time.Time
}

// Observer receives snapshots. Delivery is in order and one at a time: the
// next snapshot is not produced until OnSnapshot returns.
type Observer interface {
	OnSnapshot(Snapshot)
}

// StoreError wraps a transport or permission failure behind a mutation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("ledger %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Draft is the caller-supplied shape of a create or update. Amount is a
// decimal string; Date may be a string, a native time value or an
// already-normalized remote timestamp, and defaults to now when absent.
type Draft struct {
	Description string
	Amount      string
	Category    string
	Date        any
}

// Store mediates reads and writes against the remote collection.
type Store struct {
	coll  remote.Collection
	clock func() time.Time

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewStore(coll remote.Collection) *Store {
	return &Store{
		coll:  coll,
		clock: time.Now,
		subs:  make(map[string]*Subscription),
	}
}

// Subscribe starts delivering snapshots for userID to obs, beginning with an
// immediate full snapshot. At most one subscription is active per user:
// subscribing again for the same user tears the previous one down first. An
// empty userID yields a single empty snapshot and no remote watch.
func (s *Store) Subscribe(userID string, obs Observer) *Subscription {
	s.mu.Lock()
	if prev, ok := s.subs[userID]; ok {
		prev.cancel()
		delete(s.subs, userID)
	}
	sub := &Subscription{
		store:  s,
		userID: userID,
		obs:    obs,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if userID == "" {
		s.mu.Unlock()
		close(sub.done)
		sub.emit(Snapshot{At: s.clock()})
		return sub
	}
	events, cancelWatch := s.coll.Watch(userID)
	sub.events = events
	sub.cancelWatch = cancelWatch
	s.subs[userID] = sub
	s.mu.Unlock()

	go sub.run()
	return sub
}

// Create validates the draft, stamps the creation time and writes a new
// record. The local view is not patched optimistically; the change is
// observed through the next subscription snapshot.
func (s *Store) Create(ctx context.Context, userID string, d Draft) error {
	rec, err := s.recordFromDraft(userID, d)
	if err != nil {
		return err
	}
	rec.CreatedAt = remote.TimestampOf(s.clock())
	if _, err := s.coll.Insert(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to create expense", "owner_id", userID, "error", err)
		return &StoreError{Op: "create", Err: err}
	}
	return nil
}

// Update validates the draft and rewrites the record, stamping the update
// time.
func (s *Store) Update(ctx context.Context, userID, id string, d Draft) error {
	rec, err := s.recordFromDraft(userID, d)
	if err != nil {
		return err
	}
	rec.UpdatedAt = remote.TimestampOf(s.clock())
	if err := s.coll.Update(ctx, id, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to update expense", "id", id, "error", err)
		return &StoreError{Op: "update", Err: err}
	}
	return nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.coll.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to delete expense", "id", id, "error", err)
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// recordFromDraft is the mutation-boundary gate: unlike the read path,
// nothing is coerced here. A missing date defaults to now, but an amount or
// category that does not parse is rejected.
func (s *Store) recordFromDraft(userID string, d Draft) (remote.Record, error) {
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		return remote.Record{}, core.ErrEmptyDescription
	}
	amount, err := core.MoneyFromString(strings.TrimSpace(d.Amount))
	if err != nil {
		return remote.Record{}, err
	}
	category, err := core.ParseCategoryStrict(d.Category)
	if err != nil {
		return remote.Record{}, err
	}
	date, err := s.draftDate(d.Date)
	if err != nil {
		return remote.Record{}, err
	}
	return remote.Record{
		OwnerID:     userID,
		Description: desc,
		Amount:      amount.Amount(),
		Category:    category.String(),
		Date:        remote.TimestampOf(date),
	}, nil
}

// draftDate converts the caller-supplied date into the storage
// representation. Absent dates default to now; present but unparseable dates
// are a validation failure.
func (s *Store) draftDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return s.clock(), nil
	case string:
		if strings.TrimSpace(d) == "" {
			return s.clock(), nil
		}
		t, ok := parseDateString(d)
		if !ok {
			return time.Time{}, core.ErrInvalidDate
		}
		return t, nil
	case time.Time:
		if d.IsZero() {
			return time.Time{}, core.ErrInvalidDate
		}
		return d, nil
	case remote.Timestamp:
		return d.Time(), nil
	}
	return time.Time{}, core.ErrInvalidDate
}

// Subscription is the handle for one active snapshot stream.
type Subscription struct {
	store       *Store
	userID      string
	obs         Observer
	events      <-chan remote.Event
	cancelWatch func()
	stop        chan struct{}
	done        chan struct{}

	mu      sync.Mutex
	stopped bool
}

// Cancel tears the subscription down. No snapshot is delivered after Cancel
// returns, including ones already in flight.
func (sub *Subscription) Cancel() {
	sub.store.mu.Lock()
	if cur, ok := sub.store.subs[sub.userID]; ok && cur == sub {
		delete(sub.store.subs, sub.userID)
	}
	sub.store.mu.Unlock()
	sub.cancel()
}

// Done is closed once the delivery loop has exited.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

func (sub *Subscription) cancel() {
	sub.mu.Lock()
	if sub.stopped {
		sub.mu.Unlock()
		return
	}
	sub.stopped = true
	sub.mu.Unlock()

	if sub.cancelWatch != nil {
		sub.cancelWatch()
	}
	close(sub.stop)
}

// run delivers the initial snapshot, then one snapshot per change event.
// Running on a single goroutine gives the in-order, one-at-a-time guarantee.
func (sub *Subscription) run() {
	defer close(sub.done)

	sub.deliver()
	for {
		select {
		case <-sub.stop:
			return
		case _, ok := <-sub.events:
			if !ok {
				return
			}
			sub.deliver()
		}
	}
}

// deliver rebuilds the full snapshot from the remote collection. A failing
// list degrades to an empty set with a logged fault; downstream consumers
// always see a well-formed snapshot.
func (sub *Subscription) deliver() {
	now := sub.store.clock()
	recs, err := sub.store.coll.List(context.Background(), sub.userID)
	if err != nil {
		slog.Error("Failed to list expenses, delivering empty set",
			"owner_id", sub.userID, "error", err)
		recs = nil
	}
	sub.emit(Snapshot{
		UserID:   sub.userID,
		Expenses: NormalizeAll(recs, now),
		At:       now,
	})
}

// emit hands the snapshot to the observer unless the subscription was torn
// down; a snapshot that arrives after Cancel is dropped, never applied.
func (sub *Subscription) emit(snap Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	sub.obs.OnSnapshot(snap)
}
