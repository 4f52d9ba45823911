// Package journal records processed transactions into a SQL database. SQLite
// (modernc.org/sqlite) and PostgreSQL (lib/pq) are supported.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CjHare/ton-amm-dex/internal/chain"
	"github.com/CjHare/ton-amm-dex/internal/codec"
	_ "github.com/lib/pq"   // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrClosed = errors.New("journal is closed")

// ErrDuplicate is returned when a run already holds a row at the same lt.
var ErrDuplicate = errors.New("transaction already journaled")

// Config selects the database backing a journal.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	Timeout      time.Duration
}

// Validate normalizes the driver name.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3":
		c.Driver = DriverSQLite
	case "postgres", "postgresql":
		c.Driver = DriverPostgres
	default:
		return fmt.Errorf("unsupported journal driver: %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("journal dsn is required")
	}
	if c.Driver == DriverSQLite {
		c.MaxOpenConns = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// Entry is one journaled transaction.
type Entry struct {
	Run      string
	LT       uint64
	Time     time.Time
	Src      string
	Dst      string
	Op       uint32
	OpName   string
	Value    uint64
	Bounced  bool
	Exit     int32
	Program  string
	Deployed bool
	OutCount int
	Body     []byte
}

// Filter narrows Entries. Zero fields match everything.
type Filter struct {
	Run    string
	Dst    string
	Op     uint32
	Failed bool
	Limit  int
}

// Journal implements chain.Journal.
type Journal struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
}

var _ chain.Journal = (*Journal)(nil)

// Open connects and creates the schema.
func Open(ctx context.Context, cfg Config) (*Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	j := &Journal{db: db, driver: cfg.Driver, timeout: cfg.Timeout}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) blobType() string {
	if j.driver == DriverPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

func (j *Journal) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			run       TEXT NOT NULL,
			lt        BIGINT NOT NULL,
			at_ns     BIGINT NOT NULL,
			src       TEXT NOT NULL,
			dst       TEXT NOT NULL,
			op        BIGINT NOT NULL,
			op_name   TEXT NOT NULL,
			value     BIGINT NOT NULL,
			bounced   INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			program   TEXT NOT NULL,
			deployed  INTEGER NOT NULL,
			out_count INTEGER NOT NULL,
			body      ` + j.blobType() + `,
			PRIMARY KEY (run, lt)
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_dst_idx ON transactions (dst)`,
		`CREATE INDEX IF NOT EXISTS transactions_op_idx ON transactions (op)`,
	}
	for _, s := range stmts {
		if _, err := j.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func (j *Journal) rebind(query string) string {
	if j.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// Record inserts tx under the default run.
func (j *Journal) Record(ctx context.Context, tx *chain.Transaction) error {
	return j.record(ctx, "", tx)
}

// Run is a view of the journal that tags every row with a run name, so
// independent ledgers can share one database.
type Run struct {
	j    *Journal
	name string
}

var _ chain.Journal = Run{}

// ForRun returns the view for run name.
func (j *Journal) ForRun(name string) Run {
	return Run{j: j, name: name}
}

func (r Run) Record(ctx context.Context, tx *chain.Transaction) error {
	return r.j.record(ctx, r.name, tx)
}

// Truncate deletes the run's rows above lt and returns how many went.
func (r Run) Truncate(ctx context.Context, lt uint64) (int64, error) {
	return r.j.truncate(ctx, r.name, lt)
}

func (j *Journal) truncate(ctx context.Context, run string, lt uint64) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	res, err := j.db.ExecContext(ctx, j.rebind("DELETE FROM transactions WHERE run = ? AND lt > ?"), run, int64(lt))
	if err != nil {
		return 0, fmt.Errorf("truncate %q after lt %d: %w", run, lt, err)
	}
	return res.RowsAffected()
}

// record inserts tx. A row already present at the same (run, lt) is left
// untouched and ErrDuplicate is returned.
func (j *Journal) record(ctx context.Context, run string, tx *chain.Transaction) error {
	if j.db == nil {
		return ErrClosed
	}
	var body []byte
	if tx.In.Body != nil {
		body = tx.In.Body.ToBOC()
	}
	op := tx.Op()
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	res, err := j.db.ExecContext(ctx, j.rebind(`INSERT INTO transactions
		(run, lt, at_ns, src, dst, op, op_name, value, bounced, exit_code, program, deployed, out_count, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run, lt) DO NOTHING`),
		run, int64(tx.LT), tx.Now.UnixNano(),
		codec.AddressKey(tx.In.Src), codec.AddressKey(tx.In.Dst),
		int64(op), codec.OpName(op), int64(tx.In.Value),
		boolInt(tx.In.Bounced), int(tx.Exit), tx.Program,
		boolInt(tx.Deployed), len(tx.Out), body)
	if err != nil {
		return fmt.Errorf("record %q lt %d: %w", run, tx.LT, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record %q lt %d: %w", run, tx.LT, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %q lt %d", ErrDuplicate, run, tx.LT)
	}
	return nil
}

// Count returns the number of journaled transactions.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	if j.db == nil {
		return 0, ErrClosed
	}
	var n int64
	err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n)
	return n, err
}

// Entries returns journaled transactions ordered by run and lt.
func (j *Journal) Entries(ctx context.Context, f Filter) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	query := `SELECT run, lt, at_ns, src, dst, op, op_name, value, bounced, exit_code, program, deployed, out_count, body
		FROM transactions WHERE 1=1`
	var args []any
	if f.Run != "" {
		query += " AND run = ?"
		args = append(args, f.Run)
	}
	if f.Dst != "" {
		query += " AND dst = ?"
		args = append(args, f.Dst)
	}
	if f.Op != 0 {
		query += " AND op = ?"
		args = append(args, int64(f.Op))
	}
	if f.Failed {
		query += " AND exit_code <> 0"
	}
	query += " ORDER BY run, lt"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, j.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                          Entry
			lt, atNs, op, value        int64
			bounced, deployed, exitInt int
		)
		if err := rows.Scan(&e.Run, &lt, &atNs, &e.Src, &e.Dst, &op, &e.OpName, &value,
			&bounced, &exitInt, &e.Program, &deployed, &e.OutCount, &e.Body); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.LT = uint64(lt)
		e.Time = time.Unix(0, atNs).UTC()
		e.Op = uint32(op)
		e.Value = uint64(value)
		e.Bounced = bounced != 0
		e.Exit = int32(exitInt)
		e.Deployed = deployed != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
