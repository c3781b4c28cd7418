// Package ticket persists logged friction reports.
package ticket

import (
	"context"
	"time"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// Store is the append-only persistence interface for tickets. The store
// assigns the write timestamp; callers never set it.
type Store interface {
	// Append writes a new ticket. The record's ID is filled in if empty.
	Append(ctx context.Context, t *protocol.Ticket) error
	// List returns tickets newest first. limit 0 means no limit.
	List(ctx context.Context, limit int) ([]*protocol.Ticket, error)
	// CountSince returns the number of tickets written at or after cutoff.
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
	// Close releases the underlying storage.
	Close() error
}
