package stores

import (
	"context"

	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/data/db"
)

// Transactor hands out scan and task stores bound to one transaction.
type Transactor struct {
	db *db.DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db *db.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx runs fn inside a transaction. Every write fn makes through the
// provided stores commits together, or not at all when fn returns an error.
func (t *Transactor) InTx(ctx context.Context, fn func(scans scan.Store, tasks task.Store) error) error {
	return t.db.WithTx(ctx, func(q *db.Queries) error {
		b := base{db: t.db, tx: q}
		return fn(&ScanStore{base: b}, &TaskStore{base: b})
	})
}
