// Package memory provides an in-memory remote collection used by tests and
// the default development backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartspend/internal/remote"
)

type watcher struct {
	ownerID string
	ch      chan remote.Event
}

// Collection is a map-backed remote.Collection with in-process change fanout.
type Collection struct {
	mu       sync.Mutex
	records  map[string]remote.Record
	watchers map[int]*watcher
	nextW    int
}

var _ remote.Collection = (*Collection)(nil)

func New() *Collection {
	return &Collection{
		records:  make(map[string]remote.Record),
		watchers: make(map[int]*watcher),
	}
}

// List returns records owned by ownerID in insertion-independent (map) order.
// The lack of ordering here is deliberate: consumers must sort themselves.
func (c *Collection) List(_ context.Context, ownerID string) ([]remote.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []remote.Record
	for _, rec := range c.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *Collection) Get(_ context.Context, id string) (remote.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return remote.Record{}, fmt.Errorf("record %s not found", id)
	}
	return rec, nil
}

func (c *Collection) Insert(_ context.Context, rec remote.Record) (string, error) {
	c.mu.Lock()
	rec.ID = uuid.NewString()
	c.records[rec.ID] = rec
	ev := remote.Event{Op: remote.OpCreate, ID: rec.ID, OwnerID: rec.OwnerID, At: time.Now()}
	c.notifyLocked(ev)
	c.mu.Unlock()
	return rec.ID, nil
}

func (c *Collection) Update(_ context.Context, id string, rec remote.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	rec.ID = id
	rec.OwnerID = old.OwnerID
	rec.CreatedAt = old.CreatedAt
	c.records[id] = rec
	c.notifyLocked(remote.Event{Op: remote.OpUpdate, ID: id, OwnerID: old.OwnerID, At: time.Now()})
	return nil
}

func (c *Collection) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return fmt.Errorf("record %s not found", id)
	}
	delete(c.records, id)
	c.notifyLocked(remote.Event{Op: remote.OpDelete, ID: id, OwnerID: rec.OwnerID, At: time.Now()})
	return nil
}

// Watch registers a change feed for one owner. Events are dropped when the
// subscriber lags; that is safe because consumers re-list on every event.
func (c *Collection) Watch(ownerID string) (<-chan remote.Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextW
	c.nextW++
	w := &watcher{ownerID: ownerID, ch: make(chan remote.Event, 16)}
	c.watchers[id] = w
	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if cur, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(cur.ch)
		}
	}
	return w.ch, cancel
}

func (c *Collection) notifyLocked(ev remote.Event) {
	for _, w := range c.watchers {
		if w.ownerID != ev.OwnerID {
			continue
		}
		select {
		case w.ch <- ev:
		default:
		}
	}
}
