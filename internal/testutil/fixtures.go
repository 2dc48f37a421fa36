package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/HerbHall/grandline/pkg/models"
)

// NewCharacter returns a Character with sensible defaults, suitable for test
// fixtures. Override individual fields with options.
func NewCharacter(opts ...func(*models.Character)) models.Character {
	c := models.Character{
		Name:   "Monkey D. Luffy",
		Bounty: 0,
		Status: models.CharacterAlive,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithName sets the character name.
func WithName(name string) func(*models.Character) {
	return func(c *models.Character) { c.Name = name }
}

// WithAlias sets the character alias.
func WithAlias(alias string) func(*models.Character) {
	return func(c *models.Character) { c.Alias = &alias }
}

// WithBounty sets the character bounty.
func WithBounty(b int64) func(*models.Character) {
	return func(c *models.Character) { c.Bounty = b }
}

// WithAge sets the character age.
func WithAge(age int64) func(*models.Character) {
	return func(c *models.Character) { c.Age = &age }
}

// WithStatus sets the character status.
func WithStatus(s models.CharacterStatus) func(*models.Character) {
	return func(c *models.Character) { c.Status = s }
}

// WithRace sets the character's race.
func WithRace(id int64) func(*models.Character) {
	return func(c *models.Character) { c.RaceID = &id }
}

// InsertCharacter writes c to the characters table and returns its ID.
func InsertCharacter(t *testing.T, db *sql.DB, c models.Character) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO characters (name, alias, age, bounty, status, race_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Alias, c.Age, c.Bounty, string(c.Status), c.RaceID, now, now)
	if err != nil {
		t.Fatalf("testutil.InsertCharacter(%q): %v", c.Name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// InsertNamed writes a row with only a name into table and returns its ID.
// It suits every catalog table whose other columns are nullable or defaulted.
func InsertNamed(t *testing.T, db *sql.DB, table, name string) int64 {
	t.Helper()
	now := time.Now().UTC()
	//nolint:gosec // test helper, table is a literal at every call site
	res, err := db.Exec(`INSERT INTO `+table+` (name, created_at, updated_at) VALUES (?, ?, ?)`, name, now, now)
	if err != nil {
		t.Fatalf("testutil.InsertNamed(%s, %q): %v", table, name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Link inserts a junction row between ownerID and targetID.
func Link(t *testing.T, db *sql.DB, table, ownerCol, targetCol string, ownerID, targetID int64) {
	t.Helper()
	//nolint:gosec // test helper, identifiers are literals at every call site
	_, err := db.Exec(`INSERT INTO `+table+` (`+ownerCol+`, `+targetCol+`) VALUES (?, ?)`, ownerID, targetID)
	if err != nil {
		t.Fatalf("testutil.Link(%s): %v", table, err)
	}
}
