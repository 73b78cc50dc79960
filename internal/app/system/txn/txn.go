// Package txn runs multi-collection writes as one MongoDB transaction.
//
// Transactions need a replica set (or sharded cluster). On a standalone
// server the Runner logs a warning once and falls back to running the
// function without a transaction, unless it was built with Strict.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// ErrNotSupported is returned by a strict Runner on a server without
// transaction support.
var ErrNotSupported = errors.New("transactions are not supported by this MongoDB deployment")

// Runner executes units of work inside transactions.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger
	strict bool
	warned atomic.Bool
}

// New creates a Runner for client.
func New(client *mongo.Client, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{client: client, log: log}
}

// Strict makes the Runner fail with ErrNotSupported instead of falling
// back to non-transactional execution.
func (r *Runner) Strict() *Runner {
	r.strict = true
	return r
}

// Run calls fn inside a transaction. fn must perform every database call
// with the context it receives. Any error returned by fn aborts the
// transaction; transient errors are retried by the driver.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return r.fallback(ctx, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	if err != nil && IsNotSupported(err) {
		return r.fallback(ctx, err, fn)
	}
	return err
}

func (r *Runner) fallback(ctx context.Context, cause error, fn func(ctx context.Context) error) error {
	if r.strict {
		return errors.Join(ErrNotSupported, cause)
	}
	if r.warned.CompareAndSwap(false, true) {
		r.log.Warn("MongoDB transactions unavailable; running multi-collection writes without atomicity",
			zap.Error(cause))
	}
	return fn(ctx)
}

// notSupportedCodes are server error codes meaning "no transactions here":
// 20 IllegalOperation, 51 (legacy), 263 OperationNotSupportedInTransaction.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

var keywords = []string{"transaction", "replica set", "session", "not supported", "illegal operation"}

// IsNotSupported reports whether err indicates the deployment cannot run
// transactions. Besides known codes it accepts messages that mention at
// least two of the relevant keywords.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if notSupportedCodes[ce.Code] {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, k := range keywords {
		if strings.Contains(msg, k) {
			hits++
		}
	}
	return hits >= 2
}
