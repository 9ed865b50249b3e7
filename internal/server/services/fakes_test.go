package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/dbx"
	"github.com/dmitrijs2005/garagebook/internal/server/auth"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/vehicles"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memStore backs both fake repositories with maps, honouring the same
// ownership rules as the Postgres queries.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]models.Account
	vehicles map[int64]models.Vehicle
	nextID   int64
	clock    time.Time

	// injected failures
	accountsErr error
	vehiclesErr error
	calls       int
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]models.Account{},
		vehicles: map[int64]models.Vehicle{},
		clock:    time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type fakeAccountsRepo struct{ s *memStore }

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.accountsErr != nil {
		return nil, f.s.accountsErr
	}
	for _, existing := range f.s.accounts {
		if existing.Email == a.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	f.s.nextID++
	a.ID = f.s.nextID
	a.CreatedAt = f.s.tick()
	f.s.accounts[a.ID] = *a
	return a, nil
}

func (f *fakeAccountsRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.accountsErr != nil {
		return nil, f.s.accountsErr
	}
	for _, a := range f.s.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeAccountsRepo) GetByID(_ context.Context, id int64) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.accountsErr != nil {
		return nil, f.s.accountsErr
	}
	a, ok := f.s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

type fakeVehiclesRepo struct{ s *memStore }

func (f *fakeVehiclesRepo) Create(_ context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.vehiclesErr != nil {
		return nil, f.s.vehiclesErr
	}
	f.s.nextID++
	v.ID = f.s.nextID
	v.CreatedAt = f.s.tick()
	f.s.vehicles[v.ID] = *v
	return v, nil
}

func (f *fakeVehiclesRepo) ListByAccount(_ context.Context, accountID int64) ([]models.Vehicle, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.vehiclesErr != nil {
		return nil, f.s.vehiclesErr
	}
	out := []models.Vehicle{}
	for _, v := range f.s.vehicles {
		if v.AccountID == accountID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeVehiclesRepo) Get(_ context.Context, accountID, id int64) (*models.Vehicle, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.vehiclesErr != nil {
		return nil, f.s.vehiclesErr
	}
	v, ok := f.s.vehicles[id]
	if !ok || v.AccountID != accountID {
		return nil, common.ErrNotFound
	}
	return &v, nil
}

func (f *fakeVehiclesRepo) Update(_ context.Context, v *models.Vehicle) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.vehiclesErr != nil {
		return f.s.vehiclesErr
	}
	cur, ok := f.s.vehicles[v.ID]
	if !ok || cur.AccountID != v.AccountID {
		return common.ErrNotFound
	}
	v.CreatedAt = cur.CreatedAt
	f.s.vehicles[v.ID] = *v
	return nil
}

func (f *fakeVehiclesRepo) Delete(_ context.Context, accountID, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.calls++
	if f.s.vehiclesErr != nil {
		return f.s.vehiclesErr
	}
	cur, ok := f.s.vehicles[id]
	if !ok || cur.AccountID != accountID {
		return common.ErrNotFound
	}
	delete(f.s.vehicles, id)
	return nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return &fakeAccountsRepo{m.s} }
func (m *fakeRepoManager) Vehicles(dbx.DBTX) vehicles.Repository       { return &fakeVehiclesRepo{m.s} }

// fakeHasher keeps tests fast; bcrypt itself is covered in package auth.
type fakeHasher struct {
	hashErr  error
	verifies int
}

func (h *fakeHasher) Hash(p string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + p, nil
}

func (h *fakeHasher) Verify(p, digest string) bool {
	h.verifies++
	return strings.TrimPrefix(digest, "hashed:") == p && strings.HasPrefix(digest, "hashed:")
}

type fakeIssuer struct{ err error }

func (i fakeIssuer) Issue(c auth.Claim) (string, error) {
	if i.err != nil {
		return "", i.err
	}
	return "token-for-" + c.Email, nil
}

var errDBDown = errors.New("db error: connection refused")
