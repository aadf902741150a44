package bulk

import (
	"context"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskTx is the task storage visible inside one transaction.
type TaskTx interface {
	Create(ctx context.Context, task *domain.Task) error
	// GetByIDs returns the existing tasks among ids, restricted to ownerID
	// when it is non-nil.
	GetByIDs(ctx context.Context, ids []int64, ownerID *int64) ([]*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	// Savepoint runs fn so that its writes are discarded when it fails,
	// without aborting the surrounding transaction.
	Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Transactor runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx TaskTx) error) error
}
