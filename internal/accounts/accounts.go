// Package accounts implements registration and credential verification on
// top of the users table. Passwords are stored as bcrypt hashes and never
// leave this package.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ptracker-app/ptracker/internal/models"
	"github.com/ptracker-app/ptracker/internal/user"
)

// BcryptCost matches the cost the stored legacy hashes were created with.
const BcryptCost = 12

type usersKeeper interface {
	CreateUser(ctx context.Context, email, passwordHash string, transaction *sql.Tx) (*user.User, error)
	FindUserByEmail(ctx context.Context, email string, transaction *sql.Tx) (*user.User, bool, error)
}

// Service provides account registration and login verification.
type Service struct {
	db usersKeeper
}

// New creates the accounts service.
func New(db usersKeeper) *Service {
	return &Service{db: db}
}

// Register creates a new account. Returns models.ErrUserAlreadyExists when
// the email is taken.
func (s *Service) Register(ctx context.Context, email, password string) (*user.User, error) {
	_, exists, err := s.db.FindUserByEmail(ctx, email, nil)
	if err != nil {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}
	if exists {
		return nil, models.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	created, err := s.db.CreateUser(ctx, email, string(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return created, nil
}

// Login verifies the credentials and returns the matching user. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*user.User, error) {
	usr, exists, err := s.db.FindUserByEmail(ctx, email, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	if !exists {
		return nil, models.ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, models.ErrBadCredentials
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	return usr, nil
}
