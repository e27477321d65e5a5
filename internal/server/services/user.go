// Package services contains server-side business logic. This file implements
// UserService, which handles registration, salt lookup, and login with JWT
// issuance. The server only ever stores the KDF salt and the master key
// verifier; the passphrase and master key never reach it.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/server/auth"
	"github.com/dmitrijs2005/docsafe/internal/server/config"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/repomanager"
)

// UserService provides authentication-related operations:
// - Register: create users
// - GetSalt: return the stored KDF salt for a username
// - Login: verify the verifier and mint an access token
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a new user with the given username, salt, and verifier.
func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	user := &models.User{UserName: username, Salt: salt, Verifier: verifier}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}
	return u, nil
}

// GetSalt returns the user's stored salt or a random salt if the user is absent,
// to avoid leaking existence through the response.
func (s *UserService) GetSalt(ctx context.Context, userName string) ([]byte, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.getRandomSalt(), nil
		}
		return nil, common.ErrInternal
	}
	return user.Salt, nil
}

// Login verifies the provided verifierCandidate against the stored verifier
// and, on success, returns a fresh access token.
func (s *UserService) Login(ctx context.Context, userName string, verifierCandidate []byte) (string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", common.ErrInternal
	}
	if !s.checkVerifier(user.Verifier, verifierCandidate) {
		return "", common.ErrUnauthorized
	}

	token, err := s.generateAccessToken(user.ID)
	if err != nil {
		return "", common.ErrInternal
	}
	return token, nil
}

func (s *UserService) getRandomSalt() []byte { return common.GenerateRandByteArray(32) }

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) checkVerifier(verifier []byte, candidate []byte) bool {
	return subtle.ConstantTimeCompare(verifier, candidate) == 1
}
