package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/domain"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
	"github.com/oem-ev-warranty/parts-service/pkg/metrics"
	"gorm.io/gorm"
)

// DefaultTxTimeout bounds a unit of work when no timeout is configured
const DefaultTxTimeout = 10 * time.Second

// UnitOfWork runs operations in one GORM transaction. Every repository handed
// to the callback shares the transaction, so row locks taken through one are
// visible to the others and released together at commit or rollback.
type UnitOfWork struct {
	db      *gorm.DB
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewUnitOfWork creates a UnitOfWork. metrics may be nil.
func NewUnitOfWork(db *gorm.DB, timeout time.Duration, m *metrics.Metrics, logger *logging.Logger) *UnitOfWork {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &UnitOfWork{db: db, timeout: timeout, metrics: m, logger: logger}
}

// Execute commits when fn returns nil and rolls back otherwise. Errors from fn
// are returned unchanged. When the deadline passes the driver aborts the
// statement in flight and the whole transaction rolls back.
func (u *UnitOfWork) Execute(ctx context.Context, operation string, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return u.run(ctx, operation, fn)
}

// Snapshot runs fn in a read-only transaction where every statement sees the
// same snapshot, so rows committed by concurrent writers mid-way are not
// mixed with rows read before them.
func (u *UnitOfWork) Snapshot(ctx context.Context, operation string, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return u.run(ctx, operation, fn, u.snapshotOptions()...)
}

// snapshotOptions asks Postgres for REPEATABLE READ. SQLite transactions are
// already serializable and its driver rejects isolation levels.
func (u *UnitOfWork) snapshotOptions() []*sql.TxOptions {
	if u.db.Dialector.Name() != "postgres" {
		return nil
	}
	return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
}

func (u *UnitOfWork) run(ctx context.Context, operation string, fn func(ctx context.Context, repos domain.Repositories) error, opts ...*sql.TxOptions) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := time.Now()
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	}, opts...)
	duration := time.Since(start)

	u.metrics.RecordTransaction(operation, err == nil, duration)
	u.logger.Transaction(ctx, operation, duration, err)
	return err
}

// Reader returns repositories on the pool, outside any transaction
func (u *UnitOfWork) Reader() domain.Repositories {
	return NewRepositories(u.db)
}

var _ domain.UnitOfWork = (*UnitOfWork)(nil)
