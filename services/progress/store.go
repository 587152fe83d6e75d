package progress

import (
	"context"

	"phimstream/models"
)

// Store is the document-store gateway the progress service persists through.
// Implementations only need four primitives: full-overwrite upsert by key,
// get by key, equality query on the user field, and delete by key. Ordering
// and filtering happen client-side in the service.
type Store interface {
	// Upsert stores the record under its ID, replacing any previous version
	// wholesale.
	Upsert(ctx context.Context, rec models.WatchProgressRecord) error
	// Get returns the record for id, or nil when absent.
	Get(ctx context.Context, id string) (*models.WatchProgressRecord, error)
	// ListByUser returns all records whose UserID matches, in no particular
	// order.
	ListByUser(ctx context.Context, userID string) ([]models.WatchProgressRecord, error)
	// Delete removes the record for id; deleting an absent record is not an
	// error.
	Delete(ctx context.Context, id string) error
	Close() error
}
