package vehicles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/dbx"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const vehicleColumns = `id, account_id, owner_name, phone, vehicle_number, make, model,
		last_service_date, next_service_date, notes, created_at`

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	query :=
		`INSERT INTO vehicles (account_id, owner_name, phone, vehicle_number, make, model,
		 last_service_date, next_service_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		v.AccountID, v.OwnerName, v.Phone, v.VehicleNumber, v.Make, v.Model,
		v.LastServiceDate, v.NextServiceDate, v.Notes,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return v, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Vehicle, 0)
	for rows.Next() {
		var v models.Vehicle
		if err := scanVehicle(rows, &v); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, accountID, id int64) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE id = $1 AND account_id = $2
		`

	var v models.Vehicle
	if err := scanVehicle(r.db.QueryRowContext(ctx, query, id, accountID), &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &v, nil
}

func (r *PostgresRepository) Update(ctx context.Context, v *models.Vehicle) error {
	query :=
		`UPDATE vehicles SET
			owner_name = $1, phone = $2, vehicle_number = $3, make = $4, model = $5,
			last_service_date = $6, next_service_date = $7, notes = $8
		 WHERE id = $9 AND account_id = $10
		 `

	res, err := r.db.ExecContext(ctx, query,
		v.OwnerName, v.Phone, v.VehicleNumber, v.Make, v.Model,
		v.LastServiceDate, v.NextServiceDate, v.Notes,
		v.ID, v.AccountID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, accountID, id int64) error {
	query :=
		`DELETE FROM vehicles
		 WHERE id = $1 AND account_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// expectOneRow maps the rows-affected count of an owner-filtered write:
// zero means the id is absent or owned by another account.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVehicle(s scanner, v *models.Vehicle) error {
	return s.Scan(
		&v.ID, &v.AccountID, &v.OwnerName, &v.Phone, &v.VehicleNumber, &v.Make, &v.Model,
		&v.LastServiceDate, &v.NextServiceDate, &v.Notes, &v.CreatedAt,
	)
}
