package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docsafe/internal/dbx"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docsafe/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Documents(db dbx.DBTX) documents.Repository
}
