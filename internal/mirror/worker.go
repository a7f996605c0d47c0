package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartspend/internal/amqp"
	"smartspend/internal/ledger"
	"smartspend/internal/remote"
)

// Worker applies ledger change events to the spreadsheet mirror. It fetches
// the current record for each event instead of trusting event payloads, so a
// replayed or coalesced event converges to the same row.
type Worker struct {
	coll    remote.Collection
	writer  RowWriter
	deleter RowDeleter
	clock   func() time.Time
}

func NewWorker(coll remote.Collection, writer RowWriter, deleter RowDeleter) *Worker {
	return &Worker{
		coll:    coll,
		writer:  writer,
		deleter: deleter,
		clock:   time.Now,
	}
}

// HandleLedgerEvent processes a single ledger event message from AMQP.
func (w *Worker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"op", msg.Op,
		"id", msg.ID,
		"owner_id", msg.OwnerID)

	if remote.Op(msg.Op) == remote.OpDelete {
		if w.deleter == nil {
			slog.WarnContext(ctx, "No row deleter configured, skipping mirror deletion",
				"id", msg.ID)
			return nil
		}
		if err := w.deleter.DeleteRow(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirror row: %w", err)
		}
		return nil
	}

	rec, err := w.coll.Get(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get record from collection: %w", err)
	}

	exp := ledger.Normalize(rec, w.clock())
	row := Row{
		ID:          exp.ID,
		OwnerID:     exp.OwnerID,
		Date:        exp.Date.UTC().Format("2006-01-02"),
		Description: exp.Description,
		Amount:      exp.Amount.Amount(),
		Category:    string(exp.Category),
	}

	if err := w.writer.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert mirror row: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"id", msg.ID,
		"owner_id", msg.OwnerID)
	return nil
}
