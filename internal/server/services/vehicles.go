package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/dbx"
	"github.com/dmitrijs2005/garagebook/internal/server/metrics"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/repomanager"
)

// VehicleService manages service records. Every method takes the account id
// of a verified session; records of other accounts are indistinguishable
// from records that do not exist.
type VehicleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Metrics
}

func NewVehicleService(db *sql.DB, rm repomanager.RepositoryManager, m *metrics.Metrics) *VehicleService {
	return &VehicleService{
		db:          db,
		repomanager: rm,
		metrics:     m,
	}
}

// Create stores a new record owned by accountID.
func (s *VehicleService) Create(ctx context.Context, accountID int64, in VehicleInput) (v *models.Vehicle, err error) {
	defer func() { s.metrics.RecordOp("create", err) }()

	if accountID <= 0 {
		return nil, common.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	repo := s.repomanager.Vehicles(s.db)
	v, err = repo.Create(ctx, in.toVehicle(accountID))
	if err != nil {
		return nil, fmt.Errorf("error creating vehicle: %w", err)
	}
	return v, nil
}

// List returns the account's records, newest first, with status as of now.
func (s *VehicleService) List(ctx context.Context, accountID int64, now time.Time) (views []models.VehicleView, err error) {
	defer func() { s.metrics.RecordOp("list", err) }()

	if accountID <= 0 {
		return nil, common.ErrUnauthenticated
	}

	repo := s.repomanager.Vehicles(s.db)
	list, err := repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("error listing vehicles: %w", err)
	}

	views = make([]models.VehicleView, 0, len(list))
	for _, v := range list {
		views = append(views, v.ViewAt(now))
	}
	return views, nil
}

// Get returns one record of the account or common.ErrNotFound.
func (s *VehicleService) Get(ctx context.Context, accountID, id int64, now time.Time) (view *models.VehicleView, err error) {
	defer func() { s.metrics.RecordOp("get", err) }()

	if accountID <= 0 {
		return nil, common.ErrUnauthenticated
	}
	if id <= 0 {
		return nil, common.ErrNotFound
	}

	repo := s.repomanager.Vehicles(s.db)
	v, err := repo.Get(ctx, accountID, id)
	if err != nil {
		return nil, fmt.Errorf("error getting vehicle: %w", err)
	}
	vv := v.ViewAt(now)
	return &vv, nil
}

// Update overwrites every mutable field of an owned record and returns the
// stored result. The write and the re-read share one transaction.
func (s *VehicleService) Update(ctx context.Context, accountID, id int64, in VehicleInput) (updated *models.Vehicle, err error) {
	defer func() { s.metrics.RecordOp("update", err) }()

	if accountID <= 0 {
		return nil, common.ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, common.ErrNotFound
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Vehicles(tx)

		v := in.toVehicle(accountID)
		v.ID = id
		if err := repo.Update(ctx, v); err != nil {
			return err
		}

		got, err := repo.Get(ctx, accountID, id)
		if err != nil {
			return err
		}
		updated = got
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error updating vehicle: %w", err)
	}
	return updated, nil
}

// Delete removes an owned record. Absent and foreign ids both yield
// common.ErrNotFound and change nothing.
func (s *VehicleService) Delete(ctx context.Context, accountID, id int64) (err error) {
	defer func() { s.metrics.RecordOp("delete", err) }()

	if accountID <= 0 {
		return common.ErrUnauthenticated
	}
	if id <= 0 {
		return common.ErrNotFound
	}

	repo := s.repomanager.Vehicles(s.db)
	if err := repo.Delete(ctx, accountID, id); err != nil {
		return fmt.Errorf("error deleting vehicle: %w", err)
	}
	return nil
}

// Summary counts the account's records per status as of now.
func (s *VehicleService) Summary(ctx context.Context, accountID int64, now time.Time) (models.Summary, error) {
	views, err := s.List(ctx, accountID, now)
	if err != nil {
		return models.Summary{}, err
	}
	var sum models.Summary
	for _, v := range views {
		sum.Add(v.Status)
	}
	return sum, nil
}
