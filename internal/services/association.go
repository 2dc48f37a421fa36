package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/store"
	"github.com/HerbHall/grandline/pkg/models"
)

// Association describes a junction table linking an owner row to a target
// row, with optional extra columns on the link itself.
type Association struct {
	Name         string
	Table        string
	OwnerTable   string
	OwnerColumn  string
	TargetTable  string
	TargetColumn string
	Extra        []Column
}

// AssociationService is the contract the association handlers depend on.
type AssociationService interface {
	// List returns the targets linked to ownerID, ordered by target name.
	List(ctx context.Context, ownerID int64) ([]models.Link, error)

	// Add links a target to ownerID. The target ID is read from the payload
	// key named after the target column.
	Add(ctx context.Context, ownerID int64, p Payload) (*models.Link, error)

	// Remove deletes the link between ownerID and targetID.
	Remove(ctx context.Context, ownerID, targetID int64) error
}

// Compile-time interface guard.
var _ AssociationService = (*AssociationRepository)(nil)

// AssociationRepository implements AssociationService over SQLite.
type AssociationRepository struct {
	db *sql.DB
	a  Association
}

// NewAssociationRepository creates an AssociationRepository for a.
func NewAssociationRepository(db *sql.DB, a Association) *AssociationRepository {
	return &AssociationRepository{db: db, a: a}
}

// Association returns the definition backing the repository.
func (r *AssociationRepository) Association() Association { return r.a }

func (r *AssociationRepository) List(ctx context.Context, ownerID int64) ([]models.Link, error) {
	if err := r.checkOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	//nolint:gosec // identifiers come from the association definition
	rows, err := r.db.QueryContext(ctx, r.selectSQL()+` WHERE j.`+r.a.OwnerColumn+` = ?
		ORDER BY t.name ASC, t.id ASC`, ownerID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list %s: %w", r.a.Table, err))
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		l, err := r.scanLink(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan %s: %w", r.a.Table, err))
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Errorf("list %s: %w", r.a.Table, err))
	}
	return links, nil
}

func (r *AssociationRepository) Add(ctx context.Context, ownerID int64, p Payload) (*models.Link, error) {
	if err := r.checkOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	raw, ok := p[r.a.TargetColumn]
	if !ok {
		return nil, apperr.FieldError(r.a.TargetColumn, r.a.TargetColumn+" is required")
	}
	v, err := decodeColumn(Column{Name: r.a.TargetColumn, Kind: ColRef, NotNull: true}, raw)
	if err != nil {
		return nil, err
	}
	targetID := v.(int64)

	cols := []string{r.a.OwnerColumn, r.a.TargetColumn}
	args := []any{ownerID, targetID}
	for _, c := range r.a.Extra {
		raw, ok := p[c.Name]
		if !ok {
			continue
		}
		v, err := decodeColumn(c, raw)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.Name)
		args = append(args, v)
	}

	found, err := rowExists(ctx, r.db, r.a.TargetTable, targetID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("lookup %s %d: %w", r.a.TargetTable, targetID, err))
	}
	if !found {
		return nil, apperr.FieldError(r.a.TargetColumn,
			fmt.Sprintf("%s %d does not exist", r.a.TargetColumn, targetID))
	}

	linked, err := r.linked(ctx, ownerID, targetID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, apperr.Conflict(apperr.CodeAlreadyAssociated,
			fmt.Sprintf("%s %d is already linked", r.a.TargetColumn, targetID))
	}

	cols = append(cols, "created_at")
	args = append(args, timeNow())
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	//nolint:gosec // column names come from the association definition
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO `+r.a.Table+` (`+strings.Join(cols, ", ")+`) VALUES (`+placeholders+`)`, args...)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Conflict(apperr.CodeAlreadyAssociated,
				fmt.Sprintf("%s %d is already linked", r.a.TargetColumn, targetID))
		}
		return nil, apperr.Internal(fmt.Errorf("insert %s: %w", r.a.Table, err))
	}

	//nolint:gosec // identifiers come from the association definition
	row := r.db.QueryRowContext(ctx, r.selectSQL()+` WHERE j.`+r.a.OwnerColumn+` = ? AND j.`+r.a.TargetColumn+` = ?`,
		ownerID, targetID)
	l, err := r.scanLink(row)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("read back %s: %w", r.a.Table, err))
	}
	return &l, nil
}

func (r *AssociationRepository) Remove(ctx context.Context, ownerID, targetID int64) error {
	if ownerID <= 0 || targetID <= 0 {
		return apperr.Validation(apperr.CodeInvalidID, "id must be a positive integer")
	}
	//nolint:gosec // identifiers come from the association definition
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM `+r.a.Table+` WHERE `+r.a.OwnerColumn+` = ? AND `+r.a.TargetColumn+` = ?`,
		ownerID, targetID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("delete %s: %w", r.a.Table, err))
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.New(apperr.KindNotFound, apperr.CodeNotAssociated,
			fmt.Sprintf("%s %d is not linked", r.a.TargetColumn, targetID))
	}
	return nil
}

func (r *AssociationRepository) checkOwner(ctx context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return apperr.Validation(apperr.CodeInvalidID, "id must be a positive integer")
	}
	ok, err := rowExists(ctx, r.db, r.a.OwnerTable, ownerID)
	if err != nil {
		return apperr.Internal(fmt.Errorf("lookup %s %d: %w", r.a.OwnerTable, ownerID, err))
	}
	if !ok {
		return apperr.NotFound(fmt.Sprintf("%s %d not found", strings.TrimSuffix(r.a.OwnerTable, "s"), ownerID))
	}
	return nil
}

func (r *AssociationRepository) linked(ctx context.Context, ownerID, targetID int64) (bool, error) {
	var one int
	//nolint:gosec // identifiers come from the association definition
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+r.a.Table+` WHERE `+r.a.OwnerColumn+` = ? AND `+r.a.TargetColumn+` = ?`,
		ownerID, targetID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, apperr.Internal(fmt.Errorf("lookup %s: %w", r.a.Table, err))
	}
	return true, nil
}

func (r *AssociationRepository) selectSQL() string {
	cols := []string{"t.id", "t.name", "j.created_at"}
	for _, c := range r.a.Extra {
		cols = append(cols, "j."+c.Name)
	}
	return `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + r.a.Table + ` j
		JOIN ` + r.a.TargetTable + ` t ON t.id = j.` + r.a.TargetColumn
}

func (r *AssociationRepository) scanLink(s RowScanner) (models.Link, error) {
	var l models.Link
	extra := make([]any, len(r.a.Extra))
	dest := []any{&l.ID, &l.Name, &l.CreatedAt}
	for i := range extra {
		dest = append(dest, &extra[i])
	}
	if err := s.Scan(dest...); err != nil {
		return l, err
	}
	if len(r.a.Extra) == 0 {
		return l, nil
	}
	l.Attributes = make(map[string]any, len(r.a.Extra))
	for i, c := range r.a.Extra {
		l.Attributes[c.Name] = linkValue(c, extra[i])
	}
	return l, nil
}

// linkValue normalizes a scanned junction column for JSON output.
func linkValue(c Column, v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int64:
		if c.Kind == ColBool {
			return x != 0
		}
	}
	return v
}
