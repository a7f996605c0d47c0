// Package mirror keeps an external spreadsheet copy of the ledger in sync by
// consuming ledger change events.
package mirror

import "context"

// Row is the flattened spreadsheet form of one expense.
type Row struct {
	ID          string
	OwnerID     string
	Date        string
	Description string
	Amount      float64
	Category    string
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		Upsert(ctx context.Context, row Row) error
	}

	RowDeleter interface {
		DeleteRow(ctx context.Context, id string) error
	}
)
