package services

import (
	"database/sql"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/query"
	"github.com/HerbHall/grandline/pkg/models"
)

var (
	shipStatuses      = []string{"active", "destroyed", "retired", "unknown"}
	orgTypes          = []string{"pirate_crew", "marine", "world_government", "revolutionary_army", "other"}
	orgStatuses       = []string{"active", "disbanded", "unknown"}
	characterStatuses = []string{"alive", "deceased", "unknown"}
	masteryLevels     = []string{"beginner", "intermediate", "advanced", "master"}
)

func describedSpec() query.Spec {
	return query.Spec{
		Search:      []string{"name", "description"},
		Sort:        []string{"id", "name", "created_at"},
		DefaultSort: "name",
	}
}

// Races is the resource definition for the races table.
var Races = Resource[models.Race]{
	Name:    "race",
	Table:   "races",
	Columns: []Column{{Name: "description", Kind: ColText}},
	List:    describedSpec(),
	Dependents: []Dependent{
		{Table: "characters", Column: "race_id", Code: apperr.CodeInUse},
	},
	Scan: func(s RowScanner) (models.Race, error) {
		var v models.Race
		err := s.Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// CharacterTypes is the resource definition for the character_types table.
var CharacterTypes = Resource[models.CharacterType]{
	Name:    "character type",
	Table:   "character_types",
	Columns: []Column{{Name: "description", Kind: ColText}},
	List:    describedSpec(),
	Dependents: []Dependent{
		{Table: "character_character_types", Column: "character_type_id", Code: apperr.CodeHasAssociations},
	},
	Scan: func(s RowScanner) (models.CharacterType, error) {
		var v models.CharacterType
		err := s.Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// HakiTypes is the resource definition for the haki_types table.
var HakiTypes = Resource[models.HakiType]{
	Name:  "haki type",
	Table: "haki_types",
	Columns: []Column{
		{Name: "description", Kind: ColText},
		{Name: "color", Kind: ColText},
	},
	List: describedSpec(),
	Dependents: []Dependent{
		{Table: "character_haki", Column: "haki_type_id", Code: apperr.CodeHasAssociations},
	},
	Scan: func(s RowScanner) (models.HakiType, error) {
		var v models.HakiType
		err := s.Scan(&v.ID, &v.Name, &v.Description, &v.Color, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// DevilFruitTypes is the resource definition for the devil_fruit_types table.
var DevilFruitTypes = Resource[models.DevilFruitType]{
	Name:    "devil fruit type",
	Table:   "devil_fruit_types",
	Columns: []Column{{Name: "description", Kind: ColText}},
	List:    describedSpec(),
	Dependents: []Dependent{
		{Table: "devil_fruits", Column: "type_id", Code: apperr.CodeInUse},
	},
	Scan: func(s RowScanner) (models.DevilFruitType, error) {
		var v models.DevilFruitType
		err := s.Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// DevilFruits is the resource definition for the devil_fruits table.
var DevilFruits = Resource[models.DevilFruit]{
	Name:  "devil fruit",
	Table: "devil_fruits",
	Columns: []Column{
		{Name: "japanese_name", Kind: ColText},
		{Name: "description", Kind: ColText},
		{Name: "type_id", Kind: ColRef, Ref: "devil_fruit_types"},
	},
	List: query.Spec{
		Search:      []string{"name", "japanese_name", "description"},
		Sort:        []string{"id", "name", "type_id", "created_at"},
		DefaultSort: "name",
		Filters: []query.Filter{
			{Param: "type_id", Column: "type_id", Kind: query.FilterID},
		},
	},
	Dependents: []Dependent{
		{Table: "character_devil_fruits", Column: "devil_fruit_id", Code: apperr.CodeHasAssociations},
	},
	Scan: func(s RowScanner) (models.DevilFruit, error) {
		var v models.DevilFruit
		err := s.Scan(&v.ID, &v.Name, &v.JapaneseName, &v.Description, &v.TypeID, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// Ships is the resource definition for the ships table.
var Ships = Resource[models.Ship]{
	Name:  "ship",
	Table: "ships",
	Columns: []Column{
		{Name: "description", Kind: ColText},
		{Name: "status", Kind: ColEnum, Enum: shipStatuses, NotNull: true},
	},
	List: query.Spec{
		Search:      []string{"name", "description"},
		Sort:        []string{"id", "name", "status", "created_at"},
		DefaultSort: "name",
		Filters: []query.Filter{
			{Param: "status", Column: "status", Kind: query.FilterEnum, Enum: shipStatuses},
		},
	},
	Dependents: []Dependent{
		{Table: "organizations", Column: "ship_id", Code: apperr.CodeInUse},
	},
	Scan: func(s RowScanner) (models.Ship, error) {
		var v models.Ship
		err := s.Scan(&v.ID, &v.Name, &v.Description, &v.Status, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// Organizations is the resource definition for the organizations table.
var Organizations = Resource[models.Organization]{
	Name:  "organization",
	Table: "organizations",
	Columns: []Column{
		{Name: "organization_type", Kind: ColEnum, Enum: orgTypes},
		{Name: "description", Kind: ColText},
		{Name: "base", Kind: ColText},
		{Name: "status", Kind: ColEnum, Enum: orgStatuses, NotNull: true},
		{Name: "total_bounty", Kind: ColInt, NonNegative: true, NotNull: true},
		{Name: "ship_id", Kind: ColRef, Ref: "ships"},
	},
	List: query.Spec{
		Search:      []string{"name", "description", "base"},
		Sort:        []string{"id", "name", "total_bounty", "status", "created_at"},
		DefaultSort: "name",
		Filters: []query.Filter{
			{Param: "organization_type", Column: "organization_type", Kind: query.FilterEnum, Enum: orgTypes},
			{Param: "status", Column: "status", Kind: query.FilterEnum, Enum: orgStatuses},
			{Param: "ship_id", Column: "ship_id", Kind: query.FilterID},
			{Param: "min_bounty", Column: "total_bounty", Kind: query.FilterMin},
			{Param: "max_bounty", Column: "total_bounty", Kind: query.FilterMax},
		},
	},
	Dependents: []Dependent{
		{Table: "character_organizations", Column: "organization_id", Code: apperr.CodeHasAssociations},
	},
	Scan: func(s RowScanner) (models.Organization, error) {
		var v models.Organization
		err := s.Scan(&v.ID, &v.Name, &v.OrganizationType, &v.Description, &v.Base,
			&v.Status, &v.TotalBounty, &v.ShipID, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// Characters is the resource definition for the characters table.
var Characters = Resource[models.Character]{
	Name:  "character",
	Table: "characters",
	Columns: []Column{
		{Name: "alias", Kind: ColText},
		{Name: "description", Kind: ColText},
		{Name: "origin", Kind: ColText},
		{Name: "age", Kind: ColInt, NonNegative: true},
		{Name: "bounty", Kind: ColInt, NonNegative: true, NotNull: true},
		{Name: "status", Kind: ColEnum, Enum: characterStatuses, NotNull: true},
		{Name: "race_id", Kind: ColRef, Ref: "races"},
	},
	List: query.Spec{
		Search:      []string{"name", "alias", "description"},
		Sort:        []string{"id", "name", "bounty", "age", "created_at"},
		DefaultSort: "name",
		Filters: []query.Filter{
			{Param: "race_id", Column: "race_id", Kind: query.FilterID},
			{Param: "status", Column: "status", Kind: query.FilterEnum, Enum: characterStatuses},
			{Param: "is_alive", Column: "status", Kind: query.FilterBool, Value: "alive"},
			{Param: "min_bounty", Column: "bounty", Kind: query.FilterMin},
			{Param: "max_bounty", Column: "bounty", Kind: query.FilterMax},
			{Param: "min_age", Column: "age", Kind: query.FilterMin},
			{Param: "max_age", Column: "age", Kind: query.FilterMax},
		},
	},
	Dependents: []Dependent{
		{Table: "character_organizations", Column: "character_id", Code: apperr.CodeHasAssociations},
		{Table: "character_devil_fruits", Column: "character_id", Code: apperr.CodeHasAssociations},
		{Table: "character_haki", Column: "character_id", Code: apperr.CodeHasAssociations},
		{Table: "character_character_types", Column: "character_id", Code: apperr.CodeHasAssociations},
	},
	Scan: func(s RowScanner) (models.Character, error) {
		var v models.Character
		err := s.Scan(&v.ID, &v.Name, &v.Alias, &v.Description, &v.Origin, &v.Age,
			&v.Bounty, &v.Status, &v.RaceID, &v.CreatedAt, &v.UpdatedAt)
		return v, err
	},
}

// Character associations, keyed by the URL segment under /api/characters/{id}/.
var (
	CharacterOrganizations = Association{
		Name:         "organizations",
		Table:        "character_organizations",
		OwnerTable:   "characters",
		OwnerColumn:  "character_id",
		TargetTable:  "organizations",
		TargetColumn: "organization_id",
		Extra: []Column{
			{Name: "role", Kind: ColText},
			{Name: "is_current", Kind: ColBool, NotNull: true},
		},
	}
	CharacterDevilFruits = Association{
		Name:         "devil-fruits",
		Table:        "character_devil_fruits",
		OwnerTable:   "characters",
		OwnerColumn:  "character_id",
		TargetTable:  "devil_fruits",
		TargetColumn: "devil_fruit_id",
		Extra:        []Column{{Name: "acquired_method", Kind: ColText}},
	}
	CharacterHaki = Association{
		Name:         "haki",
		Table:        "character_haki",
		OwnerTable:   "characters",
		OwnerColumn:  "character_id",
		TargetTable:  "haki_types",
		TargetColumn: "haki_type_id",
		Extra:        []Column{{Name: "mastery_level", Kind: ColEnum, Enum: masteryLevels}},
	}
	CharacterTypesLink = Association{
		Name:         "types",
		Table:        "character_character_types",
		OwnerTable:   "characters",
		OwnerColumn:  "character_id",
		TargetTable:  "character_types",
		TargetColumn: "character_type_id",
	}
)

// Catalog bundles the repositories for every catalog resource and
// association.
type Catalog struct {
	Races           *Repository[models.Race]
	CharacterTypes  *Repository[models.CharacterType]
	HakiTypes       *Repository[models.HakiType]
	DevilFruitTypes *Repository[models.DevilFruitType]
	DevilFruits     *Repository[models.DevilFruit]
	Ships           *Repository[models.Ship]
	Organizations   *Repository[models.Organization]
	Characters      *Repository[models.Character]

	Associations []*AssociationRepository
}

// NewCatalog creates repositories for every catalog table on db.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		Races:           NewRepository(db, Races),
		CharacterTypes:  NewRepository(db, CharacterTypes),
		HakiTypes:       NewRepository(db, HakiTypes),
		DevilFruitTypes: NewRepository(db, DevilFruitTypes),
		DevilFruits:     NewRepository(db, DevilFruits),
		Ships:           NewRepository(db, Ships),
		Organizations:   NewRepository(db, Organizations),
		Characters:      NewRepository(db, Characters),
		Associations: []*AssociationRepository{
			NewAssociationRepository(db, CharacterOrganizations),
			NewAssociationRepository(db, CharacterDevilFruits),
			NewAssociationRepository(db, CharacterHaki),
			NewAssociationRepository(db, CharacterTypesLink),
		},
	}
}

// Compile-time interface guards.
var (
	_ ResourceService[models.Race]      = (*Repository[models.Race])(nil)
	_ ResourceService[models.Character] = (*Repository[models.Character])(nil)
)
