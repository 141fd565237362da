// Package services contains server-side business logic. This file implements
// UserService, which handles registration and login.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/bookshelf/internal/common"
	"github.com/dmitrijs2005/bookshelf/internal/server/auth"
	"github.com/dmitrijs2005/bookshelf/internal/server/models"
	"github.com/dmitrijs2005/bookshelf/internal/server/repositories/repomanager"
)

// TokenIssuer mints access tokens for a user id.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string
	User  *models.User
}

// UserService provides authentication-related operations:
// - Register: create users with a hashed password
// - Login: verify credentials and mint an access token
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	passwords   auth.PasswordHasher
	dummyHash   func() string
}

// NewUserService constructs a UserService. The token issuer and password
// hasher are injected so the signing secret never lives in package state.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenIssuer, passwords auth.PasswordHasher) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		passwords:   passwords,
	}
	s.dummyHash = sync.OnceValue(func() string {
		h, _ := passwords.Hash("bookshelf-dummy-password")
		return h
	})
	return s
}

// Register creates a new user. Missing fields fail with common.ErrorValidation
// before the store is touched; an existing email fails with
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: please provide name, email and password", common.ErrorValidation)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{Name: name, Email: email, Password: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies email and password and returns a fresh token together with
// the stored user. An unknown email and a wrong password both yield
// common.ErrorInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: please provide email and password", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep timing close to the found-user path
			_, _ = s.passwords.Verify(password, s.dummyHash())
			return nil, common.ErrorInvalidCredentials
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	ok, err := s.passwords.Verify(password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, common.ErrorInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}

	user.Password = ""
	return &LoginResult{Token: token, User: user}, nil
}
