// Package journal records calculation outcomes in a SQL database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/LeJamon/goDivvyd/internal/core/paths"
	"github.com/LeJamon/goDivvyd/internal/core/taker"
)

var ErrUnknownDriver = errors.New("unknown journal driver")

// Kinds of journaled calculations.
const (
	KindPayment = "payment"
	KindCross   = "cross"
)

// Entry is one journaled calculation.
type Entry struct {
	ID          string
	CreatedAt   time.Time
	Kind        string
	Label       string
	Source      string
	Destination string
	Result      string
	AmountIn    string
	AmountOut   string
	Passes      int
	Removed     int
}

// PaymentEntry describes the outcome of a payment calculation.
func PaymentEntry(label string, req paths.Request, out *paths.Output) Entry {
	return Entry{
		ID:          out.ID,
		CreatedAt:   time.Now(),
		Kind:        KindPayment,
		Label:       label,
		Source:      req.Source.String(),
		Destination: req.Destination.String(),
		Result:      out.Result.String(),
		AmountIn:    out.ActualAmountIn.String(),
		AmountOut:   out.ActualAmountOut.String(),
		Passes:      out.Passes,
		Removed:     len(out.Removed),
	}
}

// CrossEntry describes the outcome of an offer crossing.
func CrossEntry(id, label, account string, out *taker.Outcome) Entry {
	return Entry{
		ID:        id,
		CreatedAt: time.Now(),
		Kind:      KindCross,
		Label:     label,
		Source:    account,
		Result:    out.Result.String(),
		AmountIn:  out.Remaining.In.String(),
		AmountOut: out.Remaining.Out.String(),
		Passes:    out.Direct + out.Bridged,
		Removed:   len(out.Removed),
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS calculations (
	id          TEXT PRIMARY KEY,
	created_at  BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	result      TEXT NOT NULL,
	amount_in   TEXT NOT NULL DEFAULT '',
	amount_out  TEXT NOT NULL DEFAULT '',
	passes      INTEGER NOT NULL DEFAULT 0,
	removed     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS calculations_created_at ON calculations (created_at);
`

// Journal writes entries to a database.
type Journal struct {
	db     *sql.DB
	driver string
	logger *log.Entry
}

// Open connects to the database and creates the schema. driver is
// "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, logger *log.Entry) (*Journal, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if driver == "sqlite" {
		// A single connection serializes writers on the database file.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal schema: %w", err)
		}
	}
	logger.WithField("driver", driver).Debug("journal opened")
	return &Journal{db: db, driver: driver, logger: logger}, nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (j *Journal) rebind(query string) string {
	if j.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores e.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("journal entry without id")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx, j.rebind(`
		INSERT INTO calculations
			(id, created_at, kind, label, source, destination, result, amount_in, amount_out, passes, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.CreatedAt.UnixNano(), e.Kind, e.Label, e.Source, e.Destination,
		e.Result, e.AmountIn, e.AmountOut, e.Passes, e.Removed)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.ID, err)
	}
	j.logger.WithFields(log.Fields{"id": e.ID, "result": e.Result}).Trace("journaled")
	return nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(`
		SELECT id, created_at, kind, label, source, destination, result, amount_in, amount_out, passes, removed
		FROM calculations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var nanos int64
		if err := rows.Scan(&e.ID, &nanos, &e.Kind, &e.Label, &e.Source, &e.Destination,
			&e.Result, &e.AmountIn, &e.AmountOut, &e.Passes, &e.Removed); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.CreatedAt = time.Unix(0, nanos)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
