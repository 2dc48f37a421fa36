package testutil

import (
	"context"
	"testing"

	"github.com/HerbHall/grandline/internal/store"
	"github.com/HerbHall/grandline/pkg/models"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if db == nil {
		t.Fatal("expected non-nil store")
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	v, err := db.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(store.Migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(store.Migrations))
	}
}

func TestNewEmptyStore_HasNoSchema(t *testing.T) {
	db := NewEmptyStore(t)
	var n int
	if err := db.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'characters'`).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 0 {
		t.Errorf("characters table present in empty store")
	}
}

func TestNewCharacter_Defaults(t *testing.T) {
	c := NewCharacter()
	if c.Name != "Monkey D. Luffy" {
		t.Errorf("Name = %q, want Monkey D. Luffy", c.Name)
	}
	if c.Status != models.CharacterAlive {
		t.Errorf("Status = %q, want alive", c.Status)
	}
	if c.RaceID != nil {
		t.Errorf("RaceID = %v, want nil", *c.RaceID)
	}
}

func TestNewCharacter_WithOptions(t *testing.T) {
	c := NewCharacter(
		WithName("Roronoa Zoro"),
		WithBounty(1_111_000_000),
		WithAge(21),
		WithStatus(models.CharacterUnknown),
	)
	if c.Name != "Roronoa Zoro" {
		t.Errorf("Name = %q, want Roronoa Zoro", c.Name)
	}
	if c.Bounty != 1_111_000_000 {
		t.Errorf("Bounty = %d, want 1111000000", c.Bounty)
	}
	if c.Age == nil || *c.Age != 21 {
		t.Errorf("Age = %v, want 21", c.Age)
	}
	if c.Status != models.CharacterUnknown {
		t.Errorf("Status = %q, want unknown", c.Status)
	}
}

func TestInsertHelpers(t *testing.T) {
	db := NewStore(t).DB()
	race := InsertNamed(t, db, "races", "Human")
	id := InsertCharacter(t, db, NewCharacter(WithRace(race)))
	typ := InsertNamed(t, db, "character_types", "Pirate")
	Link(t, db, "character_character_types", "character_id", "character_type_id", id, typ)

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM character_character_types WHERE character_id = ?`, id).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("links = %d, want 1", n)
	}
}
