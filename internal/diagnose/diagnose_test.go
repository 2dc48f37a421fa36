package diagnose

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/store"
	"github.com/HerbHall/grandline/internal/testutil"
)

func tableByName(t *testing.T, r *Report, name string) Table {
	t.Helper()
	for _, tb := range r.Tables {
		if tb.Name == name {
			return tb
		}
	}
	t.Fatalf("table %s not in report", name)
	return Table{}
}

func issueTypes(r *Report) map[string][]string {
	out := make(map[string][]string)
	for _, is := range r.Issues {
		out[is.Type] = append(out[is.Type], is.Table)
	}
	return out
}

func seedAll(t *testing.T, db *sql.DB) {
	t.Helper()
	race := testutil.InsertNamed(t, db, "races", "Human")
	char := testutil.InsertCharacter(t, db, testutil.NewCharacter(testutil.WithRace(race)))
	ship := testutil.InsertNamed(t, db, "ships", "Thousand Sunny")
	_, err := db.Exec(`INSERT INTO organizations (name, ship_id) VALUES ('Straw Hat Pirates', ?)`, ship)
	require.NoError(t, err)
	fruitType := testutil.InsertNamed(t, db, "devil_fruit_types", "Zoan")
	_, err = db.Exec(`INSERT INTO devil_fruits (name, type_id) VALUES ('Hito Hito no Mi', ?)`, fruitType)
	require.NoError(t, err)
	testutil.InsertNamed(t, db, "haki_types", "Kenbunshoku")
	testutil.InsertNamed(t, db, "character_types", "Pirate")
	testutil.Link(t, db, "character_organizations", "character_id", "organization_id", char, 1)
	testutil.Link(t, db, "character_devil_fruits", "character_id", "devil_fruit_id", char, 1)
	testutil.Link(t, db, "character_haki", "character_id", "haki_type_id", char, 1)
	testutil.Link(t, db, "character_character_types", "character_id", "character_type_id", char, 1)
	_, err = db.Exec(`INSERT INTO users (id, username, password_hash) VALUES ('u1', 'admin', 'x')`)
	require.NoError(t, err)
}

func TestDiagnose_Healthy(t *testing.T) {
	st := testutil.NewStore(t)
	seedAll(t, st.DB())

	r := New(st, zap.NewNop()).Diagnose(context.Background())

	assert.True(t, r.ConnectionOK)
	assert.True(t, r.Healthy(), "issues: %+v", r.Issues)
	assert.Len(t, r.Tables, len(store.Tables))
	for i, tb := range r.Tables {
		assert.Equal(t, store.Tables[i], tb.Name, "tables must follow schema order")
		assert.Equal(t, StatusPopulated, tb.Status, tb.Name)
		assert.True(t, tb.Exists)
	}
	assert.Equal(t, []string{RecommendHealthy}, r.Recommendations)

	chars := tableByName(t, r, "characters")
	assert.Equal(t, []ForeignKey{{Column: "race_id", References: "races", ReferencedColumn: "id"}}, chars.ForeignKeys)
}

func TestDiagnose_EmptyDatabase(t *testing.T) {
	st := testutil.NewStore(t)
	r := New(st, zap.NewNop()).Diagnose(context.Background())

	assert.True(t, r.ConnectionOK)
	assert.Len(t, issueTypes(r)[IssueEmptyTable], len(store.Tables))
	for _, is := range r.Issues {
		assert.Equal(t, SeverityHigh, is.Severity)
	}
	assert.Equal(t, []string{RecommendSeed}, r.Recommendations)
}

func TestDiagnose_MissingShips(t *testing.T) {
	st := testutil.NewStore(t)
	seedAll(t, st.DB())
	db := st.DB()
	_, err := db.Exec(`PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = db.Exec(`DROP TABLE ships`)
	require.NoError(t, err)

	r := New(st, zap.NewNop()).Diagnose(context.Background())

	ships := tableByName(t, r, "ships")
	assert.False(t, ships.Exists)
	assert.Equal(t, StatusMissing, ships.Status)
	assert.Zero(t, ships.RowCount)

	var missing []Issue
	for _, is := range r.Issues {
		if is.Type == IssueMissingTable {
			missing = append(missing, is)
		}
	}
	require.Len(t, missing, 1)
	assert.Equal(t, "ships", missing[0].Table)
	assert.Equal(t, SeverityCritical, missing[0].Severity)

	require.NotEmpty(t, r.Recommendations)
	assert.Contains(t, r.Recommendations[0], "sync")
	assert.Contains(t, r.Recommendations[0], "ships")
	assert.Equal(t, StatusPopulated, tableByName(t, r, "characters").Status)
}

func TestDiagnose_OrphanedRows(t *testing.T) {
	st := testutil.NewStore(t)
	seedAll(t, st.DB())
	db := st.DB()
	_, err := db.Exec(`PRAGMA foreign_keys = OFF`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO characters (name, race_id) VALUES ('Ghost', 404)`)
	require.NoError(t, err)

	r := New(st, zap.NewNop()).Diagnose(context.Background())

	assert.Equal(t, []string{"characters"}, issueTypes(r)[IssueOrphanedRows])
	assert.Equal(t, []string{RecommendRepair}, r.Recommendations)
}

func TestDiagnose_RecommendationOrder(t *testing.T) {
	st := testutil.NewEmptyStore(t)
	_, err := st.DB().Exec(`CREATE TABLE races (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	r := NewForTables(st, []string{"races", "ships"}, zap.NewNop()).Diagnose(context.Background())

	require.Len(t, r.Recommendations, 2)
	assert.Contains(t, r.Recommendations[0], "sync")
	assert.Equal(t, RecommendSeed, r.Recommendations[1])
	assert.Equal(t, StatusEmpty, r.Tables[0].Status)
	assert.Equal(t, StatusMissing, r.Tables[1].Status)
}

type unreachable struct{}

func (unreachable) Ping(context.Context) error { return errors.New("disk I/O error") }
func (unreachable) DB() *sql.DB                { panic("DB must not be used after a failed ping") }

func TestDiagnose_ConnectionFailure(t *testing.T) {
	r := New(unreachable{}, zap.NewNop()).Diagnose(context.Background())

	assert.False(t, r.ConnectionOK)
	assert.Empty(t, r.Tables)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, IssueConnection, r.Issues[0].Type)
	assert.Equal(t, SeverityCritical, r.Issues[0].Severity)
	assert.Equal(t, []string{RecommendConnection}, r.Recommendations)
}

func TestDiagnose_ReadOnly(t *testing.T) {
	st := testutil.NewStore(t)
	seedAll(t, st.DB())
	var before, after int
	require.NoError(t, st.DB().QueryRow(`SELECT total_changes()`).Scan(&before))
	New(st, zap.NewNop()).Diagnose(context.Background())
	require.NoError(t, st.DB().QueryRow(`SELECT total_changes()`).Scan(&after))
	assert.Equal(t, before, after, "diagnosis must not write")
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	st := testutil.NewStore(t)
	r := New(st, zap.NewNop()).Diagnose(context.Background())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "Connection: ok")
	assert.Contains(t, out, "characters")
	assert.Contains(t, out, "race_id→races")
	assert.Contains(t, out, "[high] empty_table")
	assert.Contains(t, out, RecommendSeed)
}
