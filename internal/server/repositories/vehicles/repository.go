// Package vehicles is the record store: service records keyed by their
// owning account. Every read and write is filtered by account id.
package vehicles

import (
	"context"

	"github.com/dmitrijs2005/garagebook/internal/server/models"
)

// Repository persists service records.
type Repository interface {
	// Create inserts v and fills in its ID and CreatedAt.
	Create(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)

	// ListByAccount returns the account's records, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]models.Vehicle, error)

	// Get returns the record only if it belongs to accountID, otherwise
	// common.ErrNotFound.
	Get(ctx context.Context, accountID, id int64) (*models.Vehicle, error)

	// Update overwrites every mutable field of the record (v.ID, v.AccountID).
	// A record that does not exist or belongs to another account is left
	// untouched and common.ErrNotFound is returned.
	Update(ctx context.Context, v *models.Vehicle) error

	// Delete removes the record under the same ownership rule as Update.
	Delete(ctx context.Context, accountID, id int64) error
}
