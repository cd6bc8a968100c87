package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gims/internal/dbx"
	"github.com/dmitrijs2005/gims/internal/server/repositories/assets"
	"github.com/dmitrijs2005/gims/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/gims/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository both on the pool and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Assets(db dbx.DBTX) assets.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
