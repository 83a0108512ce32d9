package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vaultify/internal/dbx"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/files"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/folders"
	"github.com/dmitrijs2005/vaultify/internal/server/repositories/permissions"
)

// RepositoryManager vends repositories bound to either a *sql.DB or a *sql.Tx
// so that services can compose them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Permissions(db dbx.DBTX) permissions.Repository
	Files(db dbx.DBTX) files.Repository
	Folders(db dbx.DBTX) folders.Repository
}
