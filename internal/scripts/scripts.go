// Package scripts executes SQL seed files from a fixed directory. Each file
// runs in its own transaction; a failing statement rolls back its file and
// the batch moves on to the next one.
package scripts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
)

// Dir is the directory script names are resolved against, relative to the
// working directory.
const Dir = "scripts/sql"

// Store is the subset of the SQLite store the runner needs.
type Store interface {
	Ping(ctx context.Context) error
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Script is a parsed SQL file.
type Script struct {
	FileName   string
	Statements []string
}

// Result is the outcome of one file.
type Result struct {
	FileName           string `json:"fileName" yaml:"fileName"`
	Success            bool   `json:"success" yaml:"success"`
	StatementsExecuted int    `json:"statementsExecuted" yaml:"statementsExecuted"`
	FailedStatement    int    `json:"failedStatement,omitempty" yaml:"failedStatement,omitempty"`
	Error              string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs         int64  `json:"durationMs" yaml:"durationMs"`
}

// Report aggregates the results of a batch, in request order.
type Report struct {
	TotalFiles      int      `json:"totalFiles" yaml:"totalFiles"`
	SuccessfulFiles int      `json:"successfulFiles" yaml:"successfulFiles"`
	FailedFiles     int      `json:"failedFiles" yaml:"failedFiles"`
	Results         []Result `json:"results" yaml:"results"`
}

// Parse splits SQL text into statements. "--" comments, whole-line or
// trailing, and blank lines are dropped, the rest is split on ";" and empty
// fragments are discarded. Semicolons inside string literals are not
// understood.
func Parse(fileName, content string) Script {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		line = stripComment(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, frag := range strings.Split(strings.Join(kept, "\n"), ";") {
		if s := strings.TrimSpace(frag); s != "" {
			stmts = append(stmts, s)
		}
	}
	return Script{FileName: fileName, Statements: stmts}
}

// stripComment cuts line at the first "--" that is not inside a
// single-quoted literal.
func stripComment(line string) string {
	quoted := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\'':
			quoted = !quoted
		case !quoted && line[i] == '-' && i+1 < len(line) && line[i+1] == '-':
			return line[:i]
		}
	}
	return line
}

// Runner executes scripts against a store.
type Runner struct {
	store    Store
	logger   *zap.Logger
	executed *prometheus.CounterVec
}

// NewRunner creates a Runner. executed may be nil; when set it is
// incremented once per file with a "success" or "failure" result label.
func NewRunner(store Store, logger *zap.Logger, executed *prometheus.CounterVec) *Runner {
	return &Runner{store: store, logger: logger.Named("scripts"), executed: executed}
}

// Execute runs fileNames sequentially and reports per-file outcomes. It fails
// as a whole only when no files were requested or the store is unreachable.
func (r *Runner) Execute(ctx context.Context, fileNames []string) (*Report, error) {
	if len(fileNames) == 0 {
		return nil, apperr.Validation(apperr.CodeMissingFileNames, "fileNames must be a non-empty list")
	}
	if err := r.store.Ping(ctx); err != nil {
		r.logger.Error("database unreachable, no scripts executed", zap.Error(err))
		return nil, apperr.Unavailable("database connection failed", err)
	}

	report := &Report{TotalFiles: len(fileNames), Results: make([]Result, 0, len(fileNames))}
	for _, name := range fileNames {
		res := r.runFile(ctx, name)
		report.Results = append(report.Results, res)
		if res.Success {
			report.SuccessfulFiles++
		} else {
			report.FailedFiles++
		}
		r.count(res.Success)
	}

	r.logger.Info("script batch finished",
		zap.Int("total", report.TotalFiles),
		zap.Int("succeeded", report.SuccessfulFiles),
		zap.Int("failed", report.FailedFiles),
	)
	return report, nil
}

// Available lists the .sql files in Dir, sorted by name. A missing
// directory yields an empty list.
func (r *Runner) Available() ([]string, error) {
	entries, err := os.ReadDir(Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", Dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && validName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (r *Runner) runFile(ctx context.Context, name string) Result {
	start := time.Now()
	res := Result{FileName: name}

	if !validName(name) {
		res.Error = "invalid file name"
		r.logger.Warn("rejected script name", zap.String("file", name))
		return finish(res, start)
	}

	content, err := os.ReadFile(filepath.Join(Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Error = "file not found"
		} else {
			res.Error = err.Error()
		}
		r.logger.Warn("script unreadable", zap.String("file", name), zap.Error(err))
		return finish(res, start)
	}

	script := Parse(name, string(content))
	executed := 0
	err = r.store.Tx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range script.Statements {
			if isSelect(stmt) {
				continue
			}
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				res.FailedStatement = i + 1
				return err
			}
			executed++
		}
		return nil
	})
	if err != nil {
		res.Error = err.Error()
		r.logger.Error("script rolled back",
			zap.String("file", name),
			zap.Int("statement", res.FailedStatement),
			zap.Error(err),
		)
		return finish(res, start)
	}

	res.Success = true
	res.StatementsExecuted = executed
	r.logger.Info("script executed", zap.String("file", name), zap.Int("statements", executed))
	return finish(res, start)
}

func (r *Runner) count(success bool) {
	if r.executed == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.executed.WithLabelValues(result).Inc()
}

func finish(res Result, start time.Time) Result {
	res.DurationMs = time.Since(start).Milliseconds()
	return res
}

// validName accepts bare .sql file names only.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(strings.ToLower(name), ".sql")
}

// isSelect reports whether stmt is a banner query that should be skipped.
func isSelect(stmt string) bool {
	return len(stmt) >= 6 && strings.EqualFold(stmt[:6], "SELECT")
}
