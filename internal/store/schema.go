package store

import "database/sql"

// Tables lists every table the catalog schema defines, in creation order.
var Tables = []string{
	"races",
	"character_types",
	"haki_types",
	"devil_fruit_types",
	"devil_fruits",
	"ships",
	"organizations",
	"characters",
	"character_organizations",
	"character_devil_fruits",
	"character_haki",
	"character_character_types",
	"users",
}

// Migrations defines the catalog schema.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "create reference tables",
		Up: execAll(
			`CREATE TABLE races (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE character_types (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE haki_types (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT,
				color       TEXT,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE devil_fruit_types (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		),
	},
	{
		Version:     2,
		Description: "create entity tables",
		Up: execAll(
			`CREATE TABLE devil_fruits (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				name          TEXT NOT NULL UNIQUE,
				japanese_name TEXT,
				description   TEXT,
				type_id       INTEGER REFERENCES devil_fruit_types(id),
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_devil_fruits_type ON devil_fruits(type_id)`,
			`CREATE TABLE ships (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				description TEXT,
				status      TEXT NOT NULL DEFAULT 'active',
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE organizations (
				id                INTEGER PRIMARY KEY AUTOINCREMENT,
				name              TEXT NOT NULL UNIQUE,
				organization_type TEXT,
				description       TEXT,
				base              TEXT,
				status            TEXT NOT NULL DEFAULT 'active',
				total_bounty      INTEGER NOT NULL DEFAULT 0,
				ship_id           INTEGER REFERENCES ships(id),
				created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_organizations_ship ON organizations(ship_id)`,
			`CREATE TABLE characters (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL UNIQUE,
				alias       TEXT,
				description TEXT,
				origin      TEXT,
				age         INTEGER,
				bounty      INTEGER NOT NULL DEFAULT 0,
				status      TEXT NOT NULL DEFAULT 'alive',
				race_id     INTEGER REFERENCES races(id),
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_characters_race ON characters(race_id)`,
			`CREATE INDEX idx_characters_bounty ON characters(bounty)`,
		),
	},
	{
		Version:     3,
		Description: "create junction tables",
		Up: execAll(
			`CREATE TABLE character_organizations (
				character_id    INTEGER NOT NULL REFERENCES characters(id),
				organization_id INTEGER NOT NULL REFERENCES organizations(id),
				role            TEXT,
				is_current      INTEGER NOT NULL DEFAULT 1,
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (character_id, organization_id)
			)`,
			`CREATE INDEX idx_character_organizations_org ON character_organizations(organization_id)`,
			`CREATE TABLE character_devil_fruits (
				character_id    INTEGER NOT NULL REFERENCES characters(id),
				devil_fruit_id  INTEGER NOT NULL REFERENCES devil_fruits(id),
				acquired_method TEXT,
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (character_id, devil_fruit_id)
			)`,
			`CREATE INDEX idx_character_devil_fruits_fruit ON character_devil_fruits(devil_fruit_id)`,
			`CREATE TABLE character_haki (
				character_id  INTEGER NOT NULL REFERENCES characters(id),
				haki_type_id  INTEGER NOT NULL REFERENCES haki_types(id),
				mastery_level TEXT,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (character_id, haki_type_id)
			)`,
			`CREATE INDEX idx_character_haki_type ON character_haki(haki_type_id)`,
			`CREATE TABLE character_character_types (
				character_id      INTEGER NOT NULL REFERENCES characters(id),
				character_type_id INTEGER NOT NULL REFERENCES character_types(id),
				created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (character_id, character_type_id)
			)`,
			`CREATE INDEX idx_character_character_types_type ON character_character_types(character_type_id)`,
		),
	},
	{
		Version:     4,
		Description: "create users table",
		Up: execAll(
			`CREATE TABLE users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				role          TEXT NOT NULL DEFAULT 'admin',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				last_login    DATETIME,
				disabled      INTEGER NOT NULL DEFAULT 0
			)`,
		),
	},
}

func execAll(stmts ...string) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
