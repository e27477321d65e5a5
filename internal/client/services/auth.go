// Package services contains application services for the DocSafe client:
// account handling and the document upload/preview pipeline.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docsafe/internal/client/session"
	"github.com/dmitrijs2005/docsafe/internal/client/transport"
	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/cryptox"
)

// AuthService owns the login/register flows. The server only ever receives
// the salt and a verifier derived from the master key; the passphrase and
// the key itself stay on the client.
type AuthService interface {
	Register(ctx context.Context, username string, passphrase []byte) error
	Login(ctx context.Context, username string, passphrase []byte) error
	Logout(ctx context.Context)
	Close(ctx context.Context) error
}

type authService struct {
	client  transport.Client
	session *session.Manager
}

func NewAuthService(client transport.Client, sess *session.Manager) AuthService {
	return &authService{client: client, session: sess}
}

// Register creates an account with a fresh salt. The passphrase is wiped
// from the derived intermediates before returning.
func (a *authService) Register(ctx context.Context, username string, passphrase []byte) error {
	salt := cryptox.GenerateSalt(32)

	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)
	verifier := cryptox.MakeVerifier(key)

	if err := a.client.Register(ctx, username, salt, verifier); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login fetches the account salt, unlocks the session (which derives and
// retains the master key), and authenticates with the derived verifier.
// The session stays locked when authentication fails.
func (a *authService) Login(ctx context.Context, username string, passphrase []byte) error {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return fmt.Errorf("get salt: %w", err)
	}

	if err := a.session.Unlock(passphrase, salt); err != nil {
		return err
	}

	key, err := a.session.Key()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	if err := a.client.Login(ctx, username, cryptox.MakeVerifier(key)); err != nil {
		a.session.Lock()
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Logout locks the session, wiping the key and the restorable snapshot.
func (a *authService) Logout(ctx context.Context) {
	a.session.Lock()
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
