// Package accounts is the credential store: persistence of garage accounts
// with a unique email.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/garagebook/internal/server/models"
)

// Repository persists accounts.
type Repository interface {
	// Create inserts account and fills in its ID and CreatedAt. An email that
	// is already registered yields common.ErrDuplicateEmail.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail returns the account with exactly this email or common.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// GetByID returns the account or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Account, error)
}
