// Package diagnose produces a read-only structural health report of the
// catalog database: connectivity, per-table presence and row counts, foreign
// key layout and orphaned rows.
package diagnose

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/store"
)

// TableStatus classifies a table by its row count.
type TableStatus string

const (
	StatusPopulated TableStatus = "populated"
	StatusEmpty     TableStatus = "empty"
	StatusMissing   TableStatus = "missing"
	// StatusUnknown marks a table whose count failed for a reason other
	// than the table being absent.
	StatusUnknown TableStatus = "unknown"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Issue types.
const (
	IssueConnection   = "connection"
	IssueMissingTable = "missing_table"
	IssueEmptyTable   = "empty_table"
	IssueOrphanedRows = "orphaned_rows"
	IssueTableError   = "table_error"
)

// ForeignKey is one outgoing reference of a table.
type ForeignKey struct {
	Column           string `json:"column" yaml:"column"`
	References       string `json:"references" yaml:"references"`
	ReferencedColumn string `json:"referencedColumn" yaml:"referencedColumn"`
}

// Table is the health of one expected table.
type Table struct {
	Name        string       `json:"name" yaml:"name"`
	Exists      bool         `json:"exists" yaml:"exists"`
	RowCount    int64        `json:"rowCount" yaml:"rowCount"`
	Status      TableStatus  `json:"status" yaml:"status"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
}

// Issue is a problem found during diagnosis.
type Issue struct {
	Type     string   `json:"type" yaml:"type"`
	Severity Severity `json:"severity" yaml:"severity"`
	Table    string   `json:"table,omitempty" yaml:"table,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// Report is the outcome of a diagnosis.
type Report struct {
	ConnectionOK    bool      `json:"connectionOk" yaml:"connectionOk"`
	CheckedAt       time.Time `json:"checkedAt" yaml:"checkedAt"`
	Tables          []Table   `json:"tables" yaml:"tables"`
	Issues          []Issue   `json:"issues" yaml:"issues"`
	Recommendations []string  `json:"recommendations" yaml:"recommendations"`
}

// Healthy reports whether the database is reachable and no issues were found.
func (r *Report) Healthy() bool {
	return r.ConnectionOK && len(r.Issues) == 0
}

// Recommendation texts, emitted in this order.
const (
	RecommendConnection = "Check database.path and file permissions; the database could not be reached"
	RecommendSync       = "Run `grandline migrate` to sync the database schema and create missing tables"
	RecommendSeed       = "Run the seed scripts (POST /api/db/execute-sql or `grandline sql run`) to populate empty tables"
	RecommendRepair     = "Repair orphaned rows: delete or re-point rows whose foreign keys reference missing parents"
	RecommendLogs       = "Inspect the server logs for table errors"
	RecommendHealthy    = "Database healthy"
)

// Store is the subset of the SQLite store diagnosis needs.
type Store interface {
	Ping(ctx context.Context) error
	DB() *sql.DB
}

// Diagnoser inspects a fixed list of expected tables.
type Diagnoser struct {
	store  Store
	tables []string
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Diagnoser for the catalog schema tables.
func New(s Store, logger *zap.Logger) *Diagnoser {
	return NewForTables(s, store.Tables, logger)
}

// NewForTables creates a Diagnoser checking the given tables, in order.
func NewForTables(s Store, tables []string, logger *zap.Logger) *Diagnoser {
	return &Diagnoser{
		store:  s,
		tables: tables,
		logger: logger.Named("diagnose"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Diagnose builds a report. It never writes to the database and never
// fails: problems are expressed as issues.
func (d *Diagnoser) Diagnose(ctx context.Context) *Report {
	r := &Report{
		CheckedAt:       d.now(),
		Tables:          []Table{},
		Issues:          []Issue{},
		Recommendations: []string{},
	}

	if err := d.store.Ping(ctx); err != nil {
		d.logger.Error("database unreachable", zap.Error(err))
		r.Issues = append(r.Issues, Issue{
			Type:     IssueConnection,
			Severity: SeverityCritical,
			Message:  "database connection failed: " + err.Error(),
		})
		r.Recommendations = append(r.Recommendations, RecommendConnection)
		return r
	}
	r.ConnectionOK = true

	db := d.store.DB()
	var missing, empty, failed []string
	for _, name := range d.tables {
		t := Table{Name: name}
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "`+name+`"`).Scan(&t.RowCount)
		switch {
		case err == nil:
			t.Exists = true
			t.Status = StatusPopulated
			if t.RowCount == 0 {
				t.Status = StatusEmpty
				empty = append(empty, name)
			}
		case store.IsMissingTable(err):
			t.Status = StatusMissing
			missing = append(missing, name)
		default:
			t.Exists = true
			t.Status = StatusUnknown
			failed = append(failed, name)
			d.logger.Error("table check failed", zap.String("table", name), zap.Error(err))
			r.Issues = append(r.Issues, Issue{
				Type:     IssueTableError,
				Severity: SeverityHigh,
				Table:    name,
				Message:  fmt.Sprintf("could not count rows in %s: %v", name, err),
			})
		}
		if t.Exists {
			fks, err := foreignKeys(ctx, db, name)
			if err != nil {
				d.logger.Warn("foreign key listing failed", zap.String("table", name), zap.Error(err))
			}
			t.ForeignKeys = fks
		}
		r.Tables = append(r.Tables, t)
	}

	for _, name := range missing {
		r.Issues = append(r.Issues, Issue{
			Type:     IssueMissingTable,
			Severity: SeverityCritical,
			Table:    name,
			Message:  fmt.Sprintf("table %s does not exist", name),
		})
	}
	for _, name := range empty {
		r.Issues = append(r.Issues, Issue{
			Type:     IssueEmptyTable,
			Severity: SeverityHigh,
			Table:    name,
			Message:  fmt.Sprintf("table %s has no rows", name),
		})
	}

	orphans, err := orphanedRows(ctx, db)
	if err != nil {
		d.logger.Warn("foreign key check failed", zap.Error(err))
	}
	var orphanTables []string
	for _, name := range d.tables {
		if n := orphans[name]; n > 0 {
			orphanTables = append(orphanTables, name)
			r.Issues = append(r.Issues, Issue{
				Type:     IssueOrphanedRows,
				Severity: SeverityMedium,
				Table:    name,
				Message:  fmt.Sprintf("%d row(s) in %s reference missing parents", n, name),
			})
		}
	}

	if len(missing) > 0 {
		r.Recommendations = append(r.Recommendations,
			RecommendSync+" ("+strings.Join(missing, ", ")+")")
	}
	if len(empty) > 0 {
		r.Recommendations = append(r.Recommendations, RecommendSeed)
	}
	if len(orphanTables) > 0 {
		r.Recommendations = append(r.Recommendations, RecommendRepair)
	}
	if len(failed) > 0 {
		r.Recommendations = append(r.Recommendations, RecommendLogs)
	}
	if len(r.Recommendations) == 0 {
		r.Recommendations = append(r.Recommendations, RecommendHealthy)
	}

	d.logger.Info("diagnosis complete",
		zap.Int("tables", len(r.Tables)),
		zap.Int("issues", len(r.Issues)),
	)
	return r
}

func foreignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var to sql.NullString
		if err := rows.Scan(&fk.Column, &fk.References, &to); err != nil {
			return nil, err
		}
		fk.ReferencedColumn = to.String
		if !to.Valid {
			fk.ReferencedColumn = "id"
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// orphanedRows counts foreign key violations per child table.
func orphanedRows(ctx context.Context, db *sql.DB) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return counts, err
		}
		counts[table]++
	}
	return counts, rows.Err()
}
