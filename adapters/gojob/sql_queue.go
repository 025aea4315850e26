package gojob

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	qpostgres "github.com/goliatone/go-job/queue/adapters/postgres"
	kpostgres "github.com/goliatone/go-job/queue/idempotency/postgres"
	"github.com/goliatone/go-payouts/core"
)

const (
	QueueTable       = "payout_jobs"
	DeadLetterTable  = "payout_jobs_dlq"
	DispatchTable    = "payout_job_status"
	DedupKeyTable    = "payout_job_keys"
	defaultLeaseTime = 2 * time.Minute
)

// SQLQueue is the durable payout job queue backed by the go-job SQL storage
// and a SQL idempotency store for refresh dedup.
type SQLQueue struct {
	enqueuer *EnqueuerAdapter
	dequeuer *DequeuerAdapter
}

// NewSQLQueue migrates the queue tables on db and returns the queue.
// dialect is "postgres" or "sqlite".
func NewSQLQueue(ctx context.Context, db *sql.DB, dialect string, policy RetryPolicy) (*SQLQueue, error) {
	if db == nil {
		return nil, fmt.Errorf("gojob: sql database is required")
	}

	var queueDialect qpostgres.Dialect
	var keyDialect kpostgres.Dialect
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "", "postgres":
		queueDialect, keyDialect = qpostgres.DialectPostgres, kpostgres.DialectPostgres
	case "sqlite", "sqlite3":
		queueDialect, keyDialect = qpostgres.DialectSQLite, kpostgres.DialectSQLite
	default:
		return nil, fmt.Errorf("gojob: unsupported queue dialect %q", dialect)
	}

	storage := qpostgres.NewStorage(db,
		qpostgres.WithTableName(QueueTable),
		qpostgres.WithDLQTableName(DeadLetterTable),
		qpostgres.WithStatusTableName(DispatchTable),
		qpostgres.WithVisibilityTimeout(defaultLeaseTime),
		qpostgres.WithDialect(queueDialect),
	)
	if err := storage.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("gojob: migrate queue: %w", err)
	}
	keys := kpostgres.NewStore(db,
		kpostgres.WithTableName(DedupKeyTable),
		kpostgres.WithDialect(keyDialect),
	)
	if err := keys.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("gojob: migrate dedup keys: %w", err)
	}

	adapter := qpostgres.NewAdapter(storage)
	dedup := WithDedupStore(keys, defaultDedupTTL)
	return &SQLQueue{
		enqueuer: NewEnqueuerAdapter(adapter, dedup),
		dequeuer: NewDequeuerAdapter(adapter, policy, dedup),
	}, nil
}

func (q *SQLQueue) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if q == nil {
		return fmt.Errorf("gojob: sql queue is not configured")
	}
	return q.enqueuer.Enqueue(ctx, msg)
}

func (q *SQLQueue) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if q == nil {
		return nil, fmt.Errorf("gojob: sql queue is not configured")
	}
	return q.dequeuer.Dequeue(ctx)
}

var (
	_ core.JobEnqueuer = (*SQLQueue)(nil)
	_ core.JobDequeuer = (*SQLQueue)(nil)
)
