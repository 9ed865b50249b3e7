package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/garagebook/internal/dbx"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/vehicles"
)

// RepositoryManager hands out repositories bound to either a pool or an open
// transaction, so services can decide the unit of work.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Vehicles(db dbx.DBTX) vehicles.Repository
}
