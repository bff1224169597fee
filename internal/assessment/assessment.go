// Package assessment keeps an append-only log of scored transactions.
//
// Two implementations of the Store interface are provided:
//   - MemoryStore: bounded in-process log, the default.
//   - PostgresStore: durable, for deployments that audit decisions.
package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nabahah/riskscore/internal/risk"
)

// ErrNotFound is returned when no assessment has the requested ID.
var ErrNotFound = errors.New("assessment not found")

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// MaxListLimit caps a single List call.
const MaxListLimit = 500

// Record is a stored assessment.
type Record struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ClientIP  string    `json:"client_ip,omitempty"`
	risk.Assessment
}

// NewRecord stamps an assessment with a fresh ID and the current time.
func NewRecord(a risk.Assessment, clientIP string) *Record {
	return &Record{
		ID:         uuid.New(),
		CreatedAt:  time.Now().UTC(),
		ClientIP:   clientIP,
		Assessment: a,
	}
}

// Store persists assessment records.
type Store interface {
	// Save appends r to the log.
	Save(ctx context.Context, r *Record) error
	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*Record, error)
	// Len returns the number of records currently held.
	Len(ctx context.Context) (int, error)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
