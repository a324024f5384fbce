package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// CassandraChatRepository is the production ChatRepository. The session is a
// long-lived, thread-safe handle shared by all operations; the repository
// itself holds no other state.
type CassandraChatRepository struct {
	session *gocql.Session
}

func NewCassandraChatRepository(hosts []string, keyspace, consistency string) (*CassandraChatRepository, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 10 * time.Second

	cons, err := gocql.ParseConsistencyWrapper(consistency)
	if err != nil {
		return nil, fmt.Errorf("parse consistency: %w", err)
	}
	cluster.Consistency = cons

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &CassandraChatRepository{session: session}, nil
}

func (r *CassandraChatRepository) Close() error {
	if r.session != nil {
		r.session.Close()
	}
	return nil
}

func (r *CassandraChatRepository) Ping() error {
	var version string
	if err := r.session.Query("SELECT release_version FROM system.local").Scan(&version); err != nil {
		return wrapStoreErr("ping", err)
	}
	return nil
}

// statement is one CQL statement with its bind values, the unit a grouped
// write is built from.
type statement struct {
	cql  string
	args []any
}

// executeGrouped submits the statements as a single logged batch. The store
// applies them atomically and in order only when they all share one partition
// key; the multi-view writes here never do, so a batch can partially apply
// under node failure and callers must tolerate that per their own contract.
func (r *CassandraChatRepository) executeGrouped(op string, stmts ...statement) error {
	batch := r.session.NewBatch(gocql.LoggedBatch)
	for _, s := range stmts {
		batch.Query(s.cql, s.args...)
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		return wrapStoreErr(op, err)
	}
	return nil
}

// applyConditional runs a single IF NOT EXISTS statement and reports whether
// it was applied. Conditional statements are never combined with a grouped
// write: the outcome has to be checked before anything else proceeds.
func (r *CassandraChatRepository) applyConditional(op string, stmt statement) (bool, error) {
	prev := make(map[string]interface{})
	applied, err := r.session.Query(stmt.cql, stmt.args...).MapScanCAS(prev)
	if err != nil {
		return false, wrapStoreErr(op, err)
	}
	return applied, nil
}

// wrapStoreErr maps driver failures into the repository error taxonomy:
// row-absence becomes ErrNotFound, timeouts and unavailability become
// TransientError, everything else passes through wrapped with the operation.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if isTransientDriverErr(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransientDriverErr(err error) bool {
	if errors.Is(err, gocql.ErrTimeoutNoResponse) ||
		errors.Is(err, gocql.ErrNoConnections) ||
		errors.Is(err, gocql.ErrConnectionClosed) {
		return true
	}

	switch err.(type) {
	case *gocql.RequestErrUnavailable,
		*gocql.RequestErrReadTimeout,
		*gocql.RequestErrWriteTimeout:
		return true
	}
	return false
}
