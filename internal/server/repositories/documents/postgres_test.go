package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+documents\s*\(user_id,\s*name,\s*size,\s*storage_key,\s*upload_status\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id\s*$`

	rows := sqlmock.NewRows([]string{"id"}).AddRow("d-1")
	mock.ExpectQuery(q).
		WithArgs("u-1", "report.pdf", int64(1024), "users/2026/1/1/key", "pending").
		WillReturnRows(rows)

	doc := &models.Document{
		UserID:       "u-1",
		Name:         "report.pdf",
		Size:         1024,
		StorageKey:   "users/2026/1/1/key",
		UploadStatus: "pending",
	}
	got, err := repo.Create(context.Background(), doc)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "d-1" {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Document{UserID: "u-1", Name: "a"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	q := `(?s)^SELECT\s+id,\s*user_id,\s*name,\s*size,\s*storage_key,\s*upload_status,\s*created_at\s+FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2\s*$`

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "size", "storage_key", "upload_status", "created_at"}).
		AddRow("d-1", "u-1", "report.pdf", int64(1024), "k", "completed", created)
	mock.ExpectQuery(q).
		WithArgs("u-1", "d-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "u-1", "d-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.ID != "d-1" || got.StorageKey != "k" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs("u-1", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u-1", "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestSelectByUser_ReturnsCompletedRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,\s*user_id,\s*name,\s*size,\s*storage_key,\s*upload_status,\s*created_at\s+FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+upload_status\s*=\s*'completed'\s+ORDER\s+BY\s+created_at\s+DESC\s*$`

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "size", "storage_key", "upload_status", "created_at"}).
		AddRow("d-2", "u-1", "b.txt", int64(2), "k2", "completed", time.Now()).
		AddRow("d-1", "u-1", "a.txt", int64(1), "k1", "completed", time.Now().Add(-time.Hour))
	mock.ExpectQuery(q).
		WithArgs("u-1").
		WillReturnRows(rows)

	got, err := repo.SelectByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("SelectByUser error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d-2" || got[1].ID != "d-1" {
		t.Fatalf("unexpected documents: %+v", got)
	}
}

func TestSelectByUser_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "size", "storage_key", "upload_status", "created_at"})
	mock.ExpectQuery(`SELECT`).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.SelectByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("SelectByUser error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no documents, got %+v", got)
	}
}

func TestMarkUploaded_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+documents\s+SET\s+upload_status='completed'\s+WHERE\s+user_id=\$1\s+AND\s+id=\$2\s*$`

	mock.ExpectExec(q).
		WithArgs("u-1", "d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkUploaded(context.Background(), "u-1", "d-1"); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}
}

func TestMarkUploaded_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE`).
		WithArgs("u-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkUploaded(context.Background(), "u-1", "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestMarkUploaded_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE`).
		WithArgs("u-1", "d-1").
		WillReturnError(errors.New("db err"))

	err := repo.MarkUploaded(context.Background(), "u-1", "d-1")
	if err == nil || !regexp.MustCompile(`failed to mark uploaded: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
