package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/dbx"
	"github.com/dmitrijs2005/docsafe/internal/server/auth"
	"github.com/dmitrijs2005/docsafe/internal/server/config"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
	documentsrepo "github.com/dmitrijs2005/docsafe/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/docsafe/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

type fakeUsersRepo struct {
	createIn  *models.User
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.createIn = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}
func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	d documentsrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository         { return m.u }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documentsrepo.Repository { return m.d }

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{
		createOut: &models.User{ID: "u1", UserName: "alice"},
	}}
	s := newUserService(t, db, rm)

	u, err := s.Register(context.Background(), "alice", []byte("salt"), []byte("verifier"))
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if string(rm.u.createIn.Salt) != "salt" || string(rm.u.createIn.Verifier) != "verifier" {
		t.Fatalf("wrong user passed to repo: %+v", rm.u.createIn)
	}
}

func TestRegister_RepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}}
	s := newUserService(t, db, rm)

	if _, err := s.Register(context.Background(), "alice", nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetSalt_Found(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{
		getOut: &models.User{ID: "u1", Salt: []byte("stored-salt")},
	}}
	s := newUserService(t, db, rm)

	salt, err := s.GetSalt(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetSalt error: %v", err)
	}
	if string(salt) != "stored-salt" {
		t.Fatalf("unexpected salt: %q", salt)
	}
}

func TestGetSalt_UnknownUser_ReturnsRandomSalt(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrNotFound}}
	s := newUserService(t, db, rm)

	salt, err := s.GetSalt(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("GetSalt error: %v", err)
	}
	if len(salt) != 32 {
		t.Fatalf("expected 32-byte decoy salt, got %d bytes", len(salt))
	}
}

func TestGetSalt_RepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}}
	s := newUserService(t, db, rm)

	if _, err := s.GetSalt(context.Background(), "alice"); !errors.Is(err, common.ErrInternal) {
		t.Fatalf("want ErrInternal, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{
		getOut: &models.User{ID: "u1", Verifier: []byte("ver")},
	}}
	s := newUserService(t, db, rm)

	token, err := s.Login(context.Background(), "alice", []byte("ver"))
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	userID, err := auth.GetUserIDFromToken(token, []byte("k"))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("token carries wrong user: %q", userID)
	}
}

func TestLogin_WrongVerifier(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{
		getOut: &models.User{ID: "u1", Verifier: []byte("ver")},
	}}
	s := newUserService(t, db, rm)

	if _, err := s.Login(context.Background(), "alice", []byte("wrong")); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: common.ErrNotFound}}
	s := newUserService(t, db, rm)

	if _, err := s.Login(context.Background(), "ghost", []byte("ver")); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestLogin_RepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{getErr: errBoom{}}}
	s := newUserService(t, db, rm)

	if _, err := s.Login(context.Background(), "alice", []byte("ver")); !errors.Is(err, common.ErrInternal) {
		t.Fatalf("want ErrInternal, got %v", err)
	}
}
