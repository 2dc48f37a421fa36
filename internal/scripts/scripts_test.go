package scripts

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/testutil"
)

// withScripts creates Dir under a temp working directory and writes files
// into it.
func withScripts(t *testing.T, files map[string]string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, Dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	t.Chdir(root)
}

func TestParse(t *testing.T) {
	src := `-- Seed races
SELECT 'Seeding races...' AS message;

INSERT INTO races (name) VALUES ('Human');
  -- indented comment
INSERT INTO races (name)
VALUES ('Fishman');
;;
`
	s := Parse("races.sql", src)
	assert.Equal(t, "races.sql", s.FileName)
	assert.Equal(t, []string{
		"SELECT 'Seeding races...' AS message",
		"INSERT INTO races (name) VALUES ('Human')",
		"INSERT INTO races (name)\nVALUES ('Fishman')",
	}, s.Statements)
}

func TestParse_TrailingComments(t *testing.T) {
	src := "INSERT INTO races (name) VALUES ('Human'); -- seed human\n" +
		"INSERT INTO races (name, description) VALUES ('Mink', 'a--b'); -- keeps the literal\n" +
		"INSERT INTO races (name) -- split statement\nVALUES ('Giant');\n"
	assert.Equal(t, []string{
		"INSERT INTO races (name) VALUES ('Human')",
		"INSERT INTO races (name, description) VALUES ('Mink', 'a--b')",
		"INSERT INTO races (name) \nVALUES ('Giant')",
	}, Parse("races.sql", src).Statements)
}

func TestParse_OnlyComments(t *testing.T) {
	assert.Empty(t, Parse("x.sql", "-- nothing\n\n   \n-- here").Statements)
}

func TestValidName(t *testing.T) {
	tests := map[string]bool{
		"01_races.sql":     true,
		"SEED.SQL":         true,
		"":                 false,
		"races.txt":        false,
		"../secrets.sql":   false,
		"nested/races.sql": false,
		`nested\races.sql`: false,
		"..sql":            false,
		"/etc/passwd":      false,
		"races.sql.bak":    false,
	}
	for name, want := range tests {
		assert.Equal(t, want, validName(name), "validName(%q)", name)
	}
}

func TestExecute_RollbackContinuesBatch(t *testing.T) {
	withScripts(t, map[string]string{
		"a.sql": "SELECT 'a';\nINSERT INTO races (name) VALUES ('Human');\nINSERT INTO races (name) VALUES ('Giant');",
		"b.sql": "INSERT INTO ships (name) VALUES ('Going Merry');\nINSERT INTO nope (x) VALUES (1);",
		"c.sql": "INSERT INTO ships (name) VALUES ('Thousand Sunny');",
	})
	st := testutil.NewStore(t)
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t"}, []string{"result"})
	r := NewRunner(st, zap.NewNop(), counter)

	report, err := r.Execute(context.Background(), []string{"a.sql", "b.sql", "c.sql"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalFiles)
	assert.Equal(t, 2, report.SuccessfulFiles)
	assert.Equal(t, 1, report.FailedFiles)
	require.Len(t, report.Results, 3)

	a, b, c := report.Results[0], report.Results[1], report.Results[2]
	assert.Equal(t, "a.sql", a.FileName)
	assert.True(t, a.Success)
	assert.Equal(t, 2, a.StatementsExecuted, "banner SELECT must not count")

	assert.Equal(t, "b.sql", b.FileName)
	assert.False(t, b.Success)
	assert.Equal(t, 0, b.StatementsExecuted)
	assert.Equal(t, 2, b.FailedStatement)
	assert.Contains(t, b.Error, "no such table")

	assert.True(t, c.Success)
	assert.Equal(t, 1, c.StatementsExecuted)

	var ships []string
	rows, err := st.DB().Query("SELECT name FROM ships ORDER BY name")
	require.NoError(t, err)
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		ships = append(ships, n)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"Thousand Sunny"}, ships, "b.sql must leave no partial writes")

	assert.Equal(t, float64(2), promtest.ToFloat64(counter.WithLabelValues("success")))
	assert.Equal(t, float64(1), promtest.ToFloat64(counter.WithLabelValues("failure")))
}

func TestExecute_TrailingCommentNotCounted(t *testing.T) {
	withScripts(t, map[string]string{"races.sql": "INSERT INTO races (name) VALUES ('Human'); -- seed human\n"})
	st := testutil.NewStore(t)

	report, err := NewRunner(st, zap.NewNop(), nil).Execute(context.Background(), []string{"races.sql"})
	require.NoError(t, err)
	require.True(t, report.Results[0].Success, report.Results[0].Error)
	assert.Equal(t, 1, report.Results[0].StatementsExecuted)

	var n int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM races").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestExecute_PerFileErrors(t *testing.T) {
	withScripts(t, map[string]string{"ok.sql": "INSERT INTO races (name) VALUES ('Mink');"})
	r := NewRunner(testutil.NewStore(t), zap.NewNop(), nil)

	report, err := r.Execute(context.Background(), []string{"../ok.sql", "missing.sql", "ok.sql"})
	require.NoError(t, err)

	assert.Equal(t, "invalid file name", report.Results[0].Error)
	assert.Equal(t, "file not found", report.Results[1].Error)
	assert.True(t, report.Results[2].Success)
	assert.Equal(t, 2, report.FailedFiles)
}

func TestExecute_EmptyList(t *testing.T) {
	r := NewRunner(testutil.NewStore(t), zap.NewNop(), nil)
	_, err := r.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeMissingFileNames))
}

type downStore struct{ txCalls int }

func (d *downStore) Ping(context.Context) error { return errors.New("connection refused") }

func (d *downStore) Tx(context.Context, func(*sql.Tx) error) error {
	d.txCalls++
	return nil
}

func TestExecute_ConnectionFailure(t *testing.T) {
	withScripts(t, map[string]string{"a.sql": "INSERT INTO races (name) VALUES ('Human');"})
	st := &downStore{}
	r := NewRunner(st, zap.NewNop(), nil)

	report, err := r.Execute(context.Background(), []string{"a.sql"})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, apperr.KindUnavailable, apperr.As(err).Kind)
	assert.Zero(t, st.txCalls, "no file may be attempted")
}

func TestAvailable(t *testing.T) {
	withScripts(t, map[string]string{
		"02_ships.sql": "",
		"01_races.sql": "",
		"notes.md":     "",
	})
	require.NoError(t, os.Mkdir(filepath.Join(Dir, "archive.sql"), 0o755))

	names, err := NewRunner(&downStore{}, zap.NewNop(), nil).Available()
	require.NoError(t, err)
	assert.Equal(t, []string{"01_races.sql", "02_ships.sql"}, names)
}

func TestAvailable_NoDirectory(t *testing.T) {
	t.Chdir(t.TempDir())
	names, err := NewRunner(&downStore{}, zap.NewNop(), nil).Available()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestShippedSeedScripts(t *testing.T) {
	t.Chdir(filepath.Join("..", ".."))
	st := testutil.NewStore(t)
	r := NewRunner(st, zap.NewNop(), nil)
	ctx := context.Background()

	names, err := r.Available()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for run := 1; run <= 2; run++ {
		report, err := r.Execute(ctx, names)
		require.NoError(t, err)
		for _, res := range report.Results {
			assert.True(t, res.Success, "run %d %s: %s", run, res.FileName, res.Error)
		}
	}

	counts := map[string]int{
		"races":                   5,
		"devil_fruits":            3,
		"organizations":           3,
		"characters":              6,
		"character_organizations": 5,
		"character_haki":          6,
	}
	for table, want := range counts {
		var got int
		require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&got))
		assert.Equal(t, want, got, table)
	}

	var fruit string
	err = st.DB().QueryRow(`
		SELECT f.name FROM character_devil_fruits cdf
		JOIN characters c ON c.id = cdf.character_id
		JOIN devil_fruits f ON f.id = cdf.devil_fruit_id
		WHERE c.name = 'Portgas D. Ace'`).Scan(&fruit)
	require.NoError(t, err)
	assert.Equal(t, "Flame-Flame Fruit", fruit)
}
