// Package services contains server-side business logic. AccountService
// handles signup, login and session lookups; VehicleService owns the
// account-scoped service records; ExportService ships them to object storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/server/auth"
	"github.com/dmitrijs2005/garagebook/internal/server/metrics"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
	"github.com/dmitrijs2005/garagebook/internal/server/repositories/repomanager"
)

// PasswordHasher is satisfied by *auth.PasswordHasher.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer is satisfied by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(claim auth.Claim) (string, error)
}

// Session is what a successful signup or login hands back to the client.
type Session struct {
	Token   string
	Account *models.Account
}

// AccountService provides the authentication operations.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenIssuer
	metrics     *metrics.Metrics

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAccountService constructs an AccountService. m may be nil.
func NewAccountService(db *sql.DB, rm repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenIssuer, m *metrics.Metrics) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: rm,
		hasher:      hasher,
		tokens:      tokens,
		metrics:     m,
	}
}

// Signup registers a garage and logs it in. A taken email yields
// common.ErrDuplicateEmail and creates nothing.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (sess *Session, err error) {
	defer func() { s.metrics.AuthAttempt("signup", err) }()

	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.Create(ctx, &models.Account{
		Email:        in.Email,
		PasswordHash: digest,
		GarageName:   in.GarageName,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	return s.newSession(account)
}

// Login checks credentials. Unknown email and wrong password both yield
// common.ErrInvalidCredentials, and both cost one bcrypt comparison.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (sess *Session, err error) {
	defer func() { s.metrics.AuthAttempt("login", err) }()

	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummyHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching account: %w", err)
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.newSession(account)
}

// Me returns the account behind a verified session. A session whose account
// no longer exists is treated as unauthenticated.
func (s *AccountService) Me(ctx context.Context, accountID int64) (*models.Account, error) {
	repo := s.repomanager.Accounts(s.db)
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error getting account: %w", err)
	}
	return account, nil
}

func (s *AccountService) newSession(a *models.Account) (*Session, error) {
	token, err := s.tokens.Issue(auth.Claim{
		AccountID:  a.ID,
		Email:      a.Email,
		GarageName: a.GarageName,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, Account: a}, nil
}

// dummyHash is compared against when the email is unknown so the response
// time matches a wrong password.
func (s *AccountService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("garagebook-timing-equaliser")
	})
	return s.dummyDigest
}
