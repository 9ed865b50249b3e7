package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/server/auth"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/services"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

type fakeAccounts struct {
	mu       sync.Mutex
	byEmail  map[string]*models.Account
	password map[string]string
	nextID   int64
	tokens   *auth.TokenCodec
	err      error
}

func newFakeAccounts(codec *auth.TokenCodec) *fakeAccounts {
	return &fakeAccounts{byEmail: map[string]*models.Account{}, password: map[string]string{}, tokens: codec}
}

func (f *fakeAccounts) session(a *models.Account) (*services.Session, error) {
	tok, err := f.tokens.Issue(auth.Claim{AccountID: a.ID, Email: a.Email, GarageName: a.GarageName})
	if err != nil {
		return nil, err
	}
	return &services.Session{Token: tok, Account: a}, nil
}

func (f *fakeAccounts) Signup(_ context.Context, in services.SignupInput) (*services.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if in.Email == "" {
		return nil, services.NewValidationError("email", "required")
	}
	if _, ok := f.byEmail[in.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	f.nextID++
	a := &models.Account{ID: f.nextID, Email: in.Email, GarageName: in.GarageName}
	f.byEmail[in.Email] = a
	f.password[in.Email] = in.Password
	return f.session(a)
}

func (f *fakeAccounts) Login(_ context.Context, in services.LoginInput) (*services.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byEmail[in.Email]
	if !ok || f.password[in.Email] != in.Password {
		return nil, common.ErrInvalidCredentials
	}
	return f.session(a)
}

func (f *fakeAccounts) Me(_ context.Context, id int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, common.ErrUnauthenticated
}

// fakeVehicles mimics the ownership rules of VehicleService and counts calls
// so tests can prove a rejected request never reached it.
type fakeVehicles struct {
	mu     sync.Mutex
	rows   map[int64]models.Vehicle
	nextID int64
	calls  int
	err    error
}

func newFakeVehicles() *fakeVehicles {
	return &fakeVehicles{rows: map[int64]models.Vehicle{}}
}

func (f *fakeVehicles) Create(_ context.Context, accountID int64, in services.VehicleInput) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	f.nextID++
	v := models.Vehicle{
		ID: f.nextID, AccountID: accountID,
		OwnerName: in.OwnerName, Phone: in.Phone, VehicleNumber: in.VehicleNumber,
		Make: in.Make, Model: in.Model,
		LastServiceDate: in.LastServiceDate, NextServiceDate: in.NextServiceDate,
		Notes: in.Notes, CreatedAt: testNow.Add(time.Duration(f.nextID) * time.Second),
	}
	f.rows[v.ID] = v
	return &v, nil
}

func (f *fakeVehicles) List(_ context.Context, accountID int64, now time.Time) ([]models.VehicleView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := []models.VehicleView{}
	for _, v := range f.rows {
		if v.AccountID == accountID {
			out = append(out, v.ViewAt(now))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeVehicles) Get(_ context.Context, accountID, id int64, now time.Time) (*models.VehicleView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.rows[id]
	if !ok || v.AccountID != accountID {
		return nil, common.ErrNotFound
	}
	vv := v.ViewAt(now)
	return &vv, nil
}

func (f *fakeVehicles) Update(_ context.Context, accountID, id int64, in services.VehicleInput) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := in.Validate(); err != nil {
		return nil, err
	}
	cur, ok := f.rows[id]
	if !ok || cur.AccountID != accountID {
		return nil, common.ErrNotFound
	}
	cur.OwnerName, cur.Phone, cur.VehicleNumber = in.OwnerName, in.Phone, in.VehicleNumber
	cur.Make, cur.Model, cur.Notes = in.Make, in.Model, in.Notes
	cur.LastServiceDate, cur.NextServiceDate = in.LastServiceDate, in.NextServiceDate
	f.rows[id] = cur
	return &cur, nil
}

func (f *fakeVehicles) Delete(_ context.Context, accountID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	cur, ok := f.rows[id]
	if !ok || cur.AccountID != accountID {
		return common.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeVehicles) Summary(ctx context.Context, accountID int64, now time.Time) (models.Summary, error) {
	list, err := f.List(ctx, accountID, now)
	if err != nil {
		return models.Summary{}, err
	}
	var s models.Summary
	for _, v := range list {
		s.Add(v.Status)
	}
	return s, nil
}

func (f *fakeVehicles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExports struct {
	err error
}

func (f fakeExports) Export(_ context.Context, accountID int64, _ time.Time) (*services.Export, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Export{Key: "accounts/1/exports/x.json", URL: "https://s3.local/x"}, nil
}

// --- harness ---

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	codec    *auth.TokenCodec
	accounts *fakeAccounts
	vehicles *fakeVehicles
}

func newTestAPI(t *testing.T, tweak ...func(*Deps)) *testAPI {
	t.Helper()
	codec, err := auth.NewTokenCodec([]byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	api := &testAPI{t: t, codec: codec, accounts: newFakeAccounts(codec), vehicles: newFakeVehicles()}
	d := Deps{
		Accounts: api.accounts,
		Vehicles: api.vehicles,
		Tokens:   codec,
		Now:      func() time.Time { return testNow },
	}
	for _, fn := range tweak {
		fn(&d)
	}
	api.handler = NewRouter(d)
	return api
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(req)
}

func (a *testAPI) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signup(email string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/signup", "",
		`{"email":"`+email+`","password":"pw123","garageName":"Bob's Garage"}`)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("signup %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(a.t, rec, &out)
	return out.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

const janeBody = `{"ownerName":"Jane","phone":"555","vehicleNumber":"AB123","make":"Honda","model":"City",` +
	`"lastServiceDate":"2024-01-01","nextServiceDate":"2024-01-02"}`
