/*
Package sqlite provides a SQLite-backed implementation of the ledger storage
interfaces.

PURPOSE:
  Persists the journal-entry log, the residence directory and the
  reconciliation run history in a single SQLite file. The statement builders
  read through ledger.Store exactly as they do against the in-memory store.

INTERFACES IMPLEMENTED:
  ledger.Store:              Journal-entry persistence and filtered queries
  ledger.ResidenceDirectory: Residence lookup
  ledger.RunLog:             Scheduler run history

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transaction_entries or entry_lines
  - No DELETE statements on either table
  - Corrections are new reversing entries

KEY TABLES:
  transaction_entries: One row per journal entry (header fields)
  entry_lines:         Posting lines, ordered by line_no within an entry
  residences:          Residence labels
  reconciliation_runs: One row per scheduled reconciliation check

ORDERING:
  Entries are returned by date, then by seq (the insertion counter), which
  matches the in-memory store.

AMOUNTS:
  Debits and credits are stored as decimal strings so no precision is lost
  on the way through the database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  db, err := sqlite.New("./ledger.db")
  if err != nil {
      return err
  }
  defer db.Close()

  l := ledger.NewLedger(db, 10*time.Second)

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// dateLayout is fixed-width so that text ordering equals time ordering.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements the ledger storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Journal entries (append-only)
	CREATE TABLE IF NOT EXISTS transaction_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		transaction_id TEXT,
		date TEXT NOT NULL,
		day TEXT NOT NULL,
		description TEXT,
		residence TEXT,
		source TEXT NOT NULL,
		source_id TEXT,
		transaction_type TEXT,
		metadata_json TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_day
		ON transaction_entries(day, date, seq);
	CREATE INDEX IF NOT EXISTS idx_entries_residence_day
		ON transaction_entries(residence, day);
	CREATE INDEX IF NOT EXISTS idx_entries_source
		ON transaction_entries(source, source_id);

	-- Posting lines
	CREATE TABLE IF NOT EXISTS entry_lines (
		entry_id TEXT NOT NULL REFERENCES transaction_entries(id),
		line_no INTEGER NOT NULL,
		account_code TEXT NOT NULL,
		account_name TEXT,
		account_type TEXT,
		debit TEXT NOT NULL,
		credit TEXT NOT NULL,
		description TEXT,
		PRIMARY KEY (entry_id, line_no)
	);

	-- Residences
	CREATE TABLE IF NOT EXISTS residences (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		address TEXT
	);

	-- Reconciliation runs (scheduler history)
	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		residence TEXT,
		period INTEGER NOT NULL,
		status TEXT NOT NULL,
		difference TEXT NOT NULL,
		is_reconciled INTEGER NOT NULL,
		error TEXT,
		ran_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRIES
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append adds a single entry. Returns ledger.ErrDuplicateEntry if the id exists.
func (s *Store) Append(ctx context.Context, entry ledger.TransactionEntry) error {
	return s.AppendBatch(ctx, []ledger.TransactionEntry{entry})
}

// AppendBatch adds entries atomically in one SQL transaction.
func (s *Store) AppendBatch(ctx context.Context, entries []ledger.TransactionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range entries {
		if err := appendEntry(ctx, sqlTx, e); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func appendEntry(ctx context.Context, db execer, e ledger.TransactionEntry) error {
	if e.ID == "" {
		e.ID = ledger.NewEntryID()
	}
	var metadataJSON sql.NullString
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO transaction_entries
		(id, transaction_id, date, day, description, residence, source, source_id,
		 transaction_type, metadata_json, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(e.ID),
		nullString(e.TransactionID),
		e.Date.UTC().Format(dateLayout),
		e.Day().String(),
		e.Description,
		nullString(string(e.Residence)),
		string(e.Source),
		nullString(e.SourceID),
		nullString(e.TransactionType()),
		metadataJSON,
		nullString(e.CreatedBy),
		createdAt.UTC().Format(dateLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}

	for i, l := range e.Entries {
		_, err := db.ExecContext(ctx, `
			INSERT INTO entry_lines
			(entry_id, line_no, account_code, account_name, account_type, debit, credit, description)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			string(e.ID), i, l.AccountCode, l.AccountName, string(l.AccountType),
			l.Debit.String(), l.Credit.String(), nullString(l.Description),
		)
		if err != nil {
			return fmt.Errorf("failed to append line %d of entry %s: %w", i, e.ID, err)
		}
	}
	return nil
}

// Query returns entries matching filter, ordered by date then insertion.
func (s *Store) Query(ctx context.Context, filter ledger.EntryFilter) ([]ledger.TransactionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := filterClause(filter)
	query := `
		SELECT id, transaction_id, date, description, residence, source, source_id,
		       metadata_json, created_by, created_at
		FROM transaction_entries` + where + `
		ORDER BY date ASC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.TransactionEntry
	index := make(map[ledger.EntryID]int)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		index[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := s.loadLines(ctx, where, args, entries, index); err != nil {
		return nil, err
	}
	return entries, nil
}

// loadLines fills Entries for every header selected by the same filter.
func (s *Store) loadLines(ctx context.Context, where string, args []any, entries []ledger.TransactionEntry, index map[ledger.EntryID]int) error {
	query := `
		SELECT entry_id, account_code, account_name, account_type, debit, credit, description
		FROM entry_lines
		WHERE entry_id IN (SELECT id FROM transaction_entries` + where + `)
		ORDER BY entry_id, line_no
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query entry lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID     string
			l           ledger.EntryLine
			name, typ   sql.NullString
			debit       string
			credit      string
			description sql.NullString
		)
		if err := rows.Scan(&entryID, &l.AccountCode, &name, &typ, &debit, &credit, &description); err != nil {
			return fmt.Errorf("failed to scan entry line: %w", err)
		}
		l.AccountName = name.String
		l.AccountType = ledger.AccountType(typ.String)
		l.Description = description.String
		if l.Debit, err = decimal.NewFromString(debit); err != nil {
			return fmt.Errorf("entry %s: bad debit %q: %w", entryID, debit, err)
		}
		if l.Credit, err = decimal.NewFromString(credit); err != nil {
			return fmt.Errorf("entry %s: bad credit %q: %w", entryID, credit, err)
		}
		i, ok := index[ledger.EntryID(entryID)]
		if !ok {
			continue
		}
		entries[i].Entries = append(entries[i].Entries, l)
	}
	return rows.Err()
}

func filterClause(f ledger.EntryFilter) (string, []any) {
	var conds []string
	var args []any
	if f.From != nil {
		conds = append(conds, "day >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		conds = append(conds, "day <= ?")
		args = append(args, f.To.String())
	}
	if f.Before != nil {
		conds = append(conds, "day < ?")
		args = append(args, f.Before.String())
	}
	if f.Residence != "" {
		conds = append(conds, "residence = ?")
		args = append(args, string(f.Residence))
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.SourceID != "" {
		conds = append(conds, "source_id = ?")
		args = append(args, f.SourceID)
	}
	if len(f.TransactionTypes) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.TransactionTypes)), ",")
		conds = append(conds, "transaction_type IN ("+marks+")")
		for _, t := range f.TransactionTypes {
			args = append(args, t)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (ledger.TransactionEntry, error) {
	var (
		e             ledger.TransactionEntry
		id            string
		transactionID sql.NullString
		date          string
		description   sql.NullString
		residence     sql.NullString
		source        string
		sourceID      sql.NullString
		metadataJSON  sql.NullString
		createdBy     sql.NullString
		createdAt     string
	)

	err := rows.Scan(&id, &transactionID, &date, &description, &residence, &source,
		&sourceID, &metadataJSON, &createdBy, &createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.ID = ledger.EntryID(id)
	e.TransactionID = transactionID.String
	if e.Date, err = time.Parse(dateLayout, date); err != nil {
		return e, fmt.Errorf("entry %s: bad date %q: %w", id, date, err)
	}
	e.Description = description.String
	e.Residence = ledger.ResidenceID(residence.String)
	e.Source = ledger.Source(source)
	e.SourceID = sourceID.String
	e.CreatedBy = createdBy.String
	if e.CreatedAt, err = time.Parse(dateLayout, createdAt); err != nil {
		return e, fmt.Errorf("entry %s: bad created_at %q: %w", id, createdAt, err)
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &e.Metadata); err != nil {
			return e, fmt.Errorf("entry %s: bad metadata: %w", id, err)
		}
	}
	return e, nil
}

// =============================================================================
// RESIDENCES
// =============================================================================

// FindResidence returns ledger.ErrResidenceNotFound for an unknown id.
func (s *Store) FindResidence(ctx context.Context, id ledger.ResidenceID) (*ledger.Residence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r       ledger.Residence
		rid     string
		address sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, address FROM residences WHERE id = ?", string(id),
	).Scan(&rid, &r.Name, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrResidenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find residence: %w", err)
	}
	r.ID = ledger.ResidenceID(rid)
	r.Address = address.String
	return &r, nil
}

// SaveResidence inserts or relabels a residence.
func (s *Store) SaveResidence(ctx context.Context, r ledger.Residence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO residences (id, name, address) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address
	`, string(r.ID), r.Name, nullString(r.Address))
	if err != nil {
		return fmt.Errorf("failed to save residence: %w", err)
	}
	return nil
}

// ListResidences returns residences in the order they were first saved.
func (s *Store) ListResidences(ctx context.Context) ([]ledger.Residence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, address FROM residences ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to list residences: %w", err)
	}
	defer rows.Close()

	result := []ledger.Residence{}
	for rows.Next() {
		var (
			id      string
			r       ledger.Residence
			address sql.NullString
		)
		if err := rows.Scan(&id, &r.Name, &address); err != nil {
			return nil, err
		}
		r.ID = ledger.ResidenceID(id)
		r.Address = address.String
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

// RecordRun appends one scheduler run.
func (s *Store) RecordRun(ctx context.Context, r ledger.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reconciled := 0
	if r.IsReconciled {
		reconciled = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs
		(id, residence, period, status, difference, is_reconciled, error, ran_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, nullString(string(r.Residence)), int(r.Period), string(r.Status),
		r.Difference.String(), reconciled, nullString(r.Error),
		r.RanAt.UTC().Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record reconciliation run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, at most limit (0 = all).
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ledger.ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, residence, period, status, difference, is_reconciled, error, ran_at
		FROM reconciliation_runs
		ORDER BY seq DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation runs: %w", err)
	}
	defer rows.Close()

	runs := []ledger.ReconciliationRun{}
	for rows.Next() {
		var (
			r          ledger.ReconciliationRun
			residence  sql.NullString
			period     int
			status     string
			difference string
			reconciled int
			errText    sql.NullString
			ranAt      string
		)
		if err := rows.Scan(&r.ID, &residence, &period, &status, &difference,
			&reconciled, &errText, &ranAt); err != nil {
			return nil, err
		}
		r.Residence = ledger.ResidenceID(residence.String)
		r.Period = ledger.Year(period)
		r.Status = ledger.RunStatus(status)
		var err error
		if r.Difference, err = decimal.NewFromString(difference); err != nil {
			return nil, fmt.Errorf("run %s: bad difference %q: %w", r.ID, difference, err)
		}
		r.IsReconciled = reconciled == 1
		r.Error = errText.String
		if r.RanAt, err = time.Parse(dateLayout, ranAt); err != nil {
			return nil, fmt.Errorf("run %s: bad ran_at %q: %w", r.ID, ranAt, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
