// Package models defines the catalog entities exposed by the Grandline API.
package models

import "time"

// ShipStatus is the lifecycle state of a ship.
type ShipStatus string

const (
	ShipActive    ShipStatus = "active"
	ShipDestroyed ShipStatus = "destroyed"
	ShipRetired   ShipStatus = "retired"
	ShipUnknown   ShipStatus = "unknown"
)

// OrganizationType categorizes an organization.
type OrganizationType string

const (
	OrgPirateCrew      OrganizationType = "pirate_crew"
	OrgMarine          OrganizationType = "marine"
	OrgWorldGovernment OrganizationType = "world_government"
	OrgRevolutionary   OrganizationType = "revolutionary_army"
	OrgOther           OrganizationType = "other"
)

// OrganizationStatus is whether an organization is still operating.
type OrganizationStatus string

const (
	OrgActive    OrganizationStatus = "active"
	OrgDisbanded OrganizationStatus = "disbanded"
	OrgUnknown   OrganizationStatus = "unknown"
)

// CharacterStatus is whether a character is alive.
type CharacterStatus string

const (
	CharacterAlive    CharacterStatus = "alive"
	CharacterDeceased CharacterStatus = "deceased"
	CharacterUnknown  CharacterStatus = "unknown"
)

// Race is a species or people (Human, Fishman, Mink, ...).
type Race struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CharacterType is a role classification (Pirate, Marine, Revolutionary, ...).
type CharacterType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HakiType is one of the forms of haki.
type HakiType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DevilFruitType is a devil fruit class (Paramecia, Zoan, Logia).
type DevilFruitType struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DevilFruit is a single devil fruit.
type DevilFruit struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	JapaneseName *string   `json:"japanese_name"`
	Description  *string   `json:"description"`
	TypeID       *int64    `json:"type_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ship is a vessel, usually owned by an organization.
type Ship struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Status      ShipStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Organization is a crew, navy, government or other group.
type Organization struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	OrganizationType *OrganizationType  `json:"organization_type"`
	Description      *string            `json:"description"`
	Base             *string            `json:"base"`
	Status           OrganizationStatus `json:"status"`
	TotalBounty      int64              `json:"total_bounty"`
	ShipID           *int64             `json:"ship_id"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Character is a person in the catalog.
type Character struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Alias       *string         `json:"alias"`
	Description *string         `json:"description"`
	Origin      *string         `json:"origin"`
	Age         *int64          `json:"age"`
	Bounty      int64           `json:"bounty"`
	Status      CharacterStatus `json:"status"`
	RaceID      *int64          `json:"race_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Link is one row of a many-to-many association, seen from the owner side.
type Link struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
