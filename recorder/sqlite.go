// Package recorder stores the bus transactions of a simulation session.
package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/moesisim/coherence"
)

// DefaultBatchSize is the number of transactions buffered between inserts.
const DefaultBatchSize = 10000

// SQLiteRecorder writes every observed bus transaction to a SQLite database.
// Rows are buffered and inserted in batches, one database transaction per
// batch.
type SQLiteRecorder struct {
	db        *sql.DB
	statement *sql.Stmt

	path      string
	sessionID string
	batchSize int
	pending   []coherence.BusTransaction
	written   int

	closed bool
	err    error
}

// NewSQLiteRecorder creates the database at path. The file must not exist.
// Pending rows are flushed if the program exits through atexit.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r := &SQLiteRecorder{
		db:        db,
		path:      path,
		sessionID: xid.New().String(),
		batchSize: DefaultBatchSize,
	}

	if err := r.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	r.statement, err = db.Prepare(`INSERT INTO bus_transactions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

func (r *SQLiteRecorder) createTable() error {
	stmts := []string{
		`CREATE TABLE bus_transactions
		(
			session     VARCHAR(20) NOT NULL,
			seq         INTEGER     NOT NULL,
			cycle       INTEGER     NOT NULL,
			kind        VARCHAR(10) NOT NULL,
			originator  INTEGER     NOT NULL,
			idx         INTEGER     NOT NULL,
			tag         INTEGER     NOT NULL,
			supplier    INTEGER     NOT NULL,
			invalidated TEXT        NOT NULL
		);`,
		`CREATE INDEX bus_transactions_line_index ON bus_transactions (idx, tag);`,
		`CREATE INDEX bus_transactions_kind_index ON bus_transactions (kind);`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// SessionID returns the ID stored in the session column of every row.
func (r *SQLiteRecorder) SessionID() string {
	return r.sessionID
}

// Path returns the database file path.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// SetBatchSize changes how many transactions are buffered before an insert.
func (r *SQLiteRecorder) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	r.batchSize = n
}

// ObserveBus buffers a transaction, flushing when the batch is full. Write
// failures are kept and returned by Err, Flush and Close.
func (r *SQLiteRecorder) ObserveBus(tx coherence.BusTransaction) {
	if r.closed || r.err != nil {
		return
	}

	tx.Invalidated = append([]int(nil), tx.Invalidated...)
	r.pending = append(r.pending, tx)
	if len(r.pending) >= r.batchSize {
		r.err = r.Flush()
	}
}

// Written returns how many rows have been committed.
func (r *SQLiteRecorder) Written() int {
	return r.written
}

// Err returns the first write failure.
func (r *SQLiteRecorder) Err() error {
	return r.err
}

// Flush inserts all buffered transactions.
func (r *SQLiteRecorder) Flush() error {
	if r.err != nil {
		return r.err
	}
	if len(r.pending) == 0 {
		return nil
	}

	dbTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := dbTx.Stmt(r.statement)
	for _, tx := range r.pending {
		invalidated, err := json.Marshal(tx.Invalidated)
		if err != nil {
			_ = dbTx.Rollback()
			return fmt.Errorf("failed to encode invalidated list: %w", err)
		}
		if tx.Invalidated == nil {
			invalidated = []byte("[]")
		}

		_, err = stmt.Exec(
			r.sessionID,
			int64(tx.Seq),
			int64(tx.Cycle),
			tx.Kind.String(),
			tx.Originator,
			int64(tx.Index),
			int64(tx.Tag),
			tx.Supplier,
			string(invalidated),
		)
		if err != nil {
			_ = dbTx.Rollback()
			return fmt.Errorf("failed to insert transaction %d: %w", tx.Seq, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}

	r.written += len(r.pending)
	r.pending = nil

	return nil
}

// Close flushes the buffer and closes the database. Closing twice is a no-op.
func (r *SQLiteRecorder) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true

	flushErr := r.Flush()
	if flushErr != nil && r.err == nil {
		r.err = flushErr
	}

	_ = r.statement.Close()
	if err := r.db.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("failed to close database: %w", err)
	}

	return r.err
}
