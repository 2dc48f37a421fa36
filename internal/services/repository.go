// Package services provides the repositories that sit between the HTTP
// handlers and the SQLite store. Catalog resources share one generic
// Repository driven by a Resource definition; junction tables share
// AssociationRepository.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/query"
	"github.com/HerbHall/grandline/internal/store"
)

// ErrNotFound is returned by repositories that are not exposed over the
// catalog API (users).
var ErrNotFound = errors.New("not found")

// ResourceService is the contract the catalog handlers depend on.
type ResourceService[T any] interface {
	// Get returns a single row by ID.
	Get(ctx context.Context, id int64) (*T, error)

	// List returns a filtered, paginated page of rows.
	List(ctx context.Context, opts query.Options) (*query.Result[T], error)

	// Create validates the payload and inserts a new row.
	Create(ctx context.Context, p Payload) (*T, error)

	// Update writes the supplied columns of an existing row.
	Update(ctx context.Context, id int64, p Payload) (*T, error)

	// Delete removes a row that nothing references.
	Delete(ctx context.Context, id int64) error
}

// Repository implements ResourceService for any Resource over SQLite.
type Repository[T any] struct {
	db  *sql.DB
	res Resource[T]
	now func() time.Time
}

// NewRepository creates a Repository for res. The resource's table must
// already exist (see store.MigrateSchema).
func NewRepository[T any](db *sql.DB, res Resource[T]) *Repository[T] {
	return &Repository[T]{
		db:  db,
		res: res,
		now: timeNow,
	}
}

func timeNow() time.Time { return time.Now().UTC() }

// Resource returns the definition backing the repository.
func (r *Repository[T]) Resource() Resource[T] { return r.res }

func (r *Repository[T]) Get(ctx context.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidID, "id must be a positive integer")
	}
	//nolint:gosec // identifiers come from the resource definition
	row := r.db.QueryRowContext(ctx,
		`SELECT `+r.res.SelectColumns()+` FROM `+r.res.Table+` WHERE id = ?`, id)
	v, err := r.res.Scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.notFound(id)
		}
		return nil, apperr.Internal(fmt.Errorf("get %s %d: %w", r.res.Name, id, err))
	}
	return &v, nil
}

func (r *Repository[T]) List(ctx context.Context, opts query.Options) (*query.Result[T], error) {
	d, err := query.Build(opts, r.res.List)
	if err != nil {
		return nil, err
	}

	var total int
	q, args := d.CountSQL(r.res.Table)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return nil, apperr.Internal(fmt.Errorf("count %s: %w", r.res.Table, err))
	}

	q, args = d.SelectSQL(r.res.Table, r.res.SelectColumns())
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list %s: %w", r.res.Table, err))
	}
	defer rows.Close()

	items := make([]T, 0, d.Limit)
	for rows.Next() {
		v, err := r.res.Scan(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("scan %s: %w", r.res.Name, err))
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Errorf("list %s: %w", r.res.Table, err))
	}

	return &query.Result[T]{
		Items:      items,
		Pagination: query.NewPagination(d.Page, d.Limit, total),
	}, nil
}

func (r *Repository[T]) Create(ctx context.Context, p Payload) (*T, error) {
	raw, ok := p["name"]
	if !ok {
		return nil, apperr.Validation(apperr.CodeMissingName, "name is required")
	}
	name, err := decodeName(raw)
	if err != nil {
		return nil, err
	}

	cols, vals, err := r.decode(p)
	if err != nil {
		return nil, err
	}
	if err := r.checkRefs(ctx, cols, vals); err != nil {
		return nil, err
	}
	if err := r.checkDuplicate(ctx, name, 0); err != nil {
		return nil, err
	}

	now := r.now()
	cols = append([]string{"name"}, cols...)
	cols = append(cols, "created_at", "updated_at")
	args := append([]any{name}, vals...)
	args = append(args, now, now)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	//nolint:gosec // column names come from the resource definition
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+r.res.Table+` (`+strings.Join(cols, ", ")+`) VALUES (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, r.mapStoreError("create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("create %s: last insert id: %w", r.res.Name, err))
	}
	return r.Get(ctx, id)
}

func (r *Repository[T]) Update(ctx context.Context, id int64, p Payload) (*T, error) {
	if id <= 0 {
		return nil, apperr.Validation(apperr.CodeInvalidID, "id must be a positive integer")
	}
	if !r.hasKnownField(p) {
		return nil, apperr.Validation(apperr.CodeNoFieldsProvided, "no updatable fields provided")
	}

	var name string
	raw, hasName := p["name"]
	if hasName {
		var err error
		if name, err = decodeName(raw); err != nil {
			return nil, err
		}
	}
	cols, vals, err := r.decode(p)
	if err != nil {
		return nil, err
	}

	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	if err := r.checkRefs(ctx, cols, vals); err != nil {
		return nil, err
	}
	if hasName {
		if err := r.checkDuplicate(ctx, name, id); err != nil {
			return nil, err
		}
		cols = append([]string{"name"}, cols...)
		vals = append([]any{name}, vals...)
	}

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args := append(vals, r.now(), id)

	//nolint:gosec // column names come from the resource definition
	_, err = r.db.ExecContext(ctx,
		`UPDATE `+r.res.Table+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, r.mapStoreError("update", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Validation(apperr.CodeInvalidID, "id must be a positive integer")
	}
	if err := r.exists(ctx, id); err != nil {
		return err
	}

	for _, dep := range r.res.Dependents {
		var n int
		//nolint:gosec // identifiers come from the resource definition
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM `+dep.Table+` WHERE `+dep.Column+` = ?`, id).Scan(&n)
		if err != nil {
			return apperr.Internal(fmt.Errorf("count %s dependents in %s: %w", r.res.Name, dep.Table, err))
		}
		if n > 0 {
			return apperr.Conflict(dep.Code,
				fmt.Sprintf("%s %d is referenced by %d row(s) in %s", r.res.Name, id, n, dep.Table))
		}
	}

	//nolint:gosec // table comes from the resource definition
	if _, err := r.db.ExecContext(ctx, `DELETE FROM `+r.res.Table+` WHERE id = ?`, id); err != nil {
		return r.mapStoreError("delete", err)
	}
	return nil
}

// decode validates every supplied writable column, in definition order.
// Unknown keys are ignored.
func (r *Repository[T]) decode(p Payload) ([]string, []any, error) {
	var cols []string
	var vals []any
	for _, c := range r.res.Columns {
		raw, ok := p[c.Name]
		if !ok {
			continue
		}
		v, err := decodeColumn(c, raw)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, c.Name)
		vals = append(vals, v)
	}
	return cols, vals, nil
}

func (r *Repository[T]) hasKnownField(p Payload) bool {
	if _, ok := p["name"]; ok {
		return true
	}
	for _, c := range r.res.Columns {
		if _, ok := p[c.Name]; ok {
			return true
		}
	}
	return false
}

func (r *Repository[T]) exists(ctx context.Context, id int64) error {
	ok, err := rowExists(ctx, r.db, r.res.Table, id)
	if err != nil {
		return apperr.Internal(fmt.Errorf("lookup %s %d: %w", r.res.Name, id, err))
	}
	if !ok {
		return r.notFound(id)
	}
	return nil
}

// checkRefs verifies that every non-null foreign key points at a live row.
func (r *Repository[T]) checkRefs(ctx context.Context, cols []string, vals []any) error {
	for i, name := range cols {
		col := r.column(name)
		if col.Kind != ColRef || vals[i] == nil {
			continue
		}
		id := vals[i].(int64)
		ok, err := rowExists(ctx, r.db, col.Ref, id)
		if err != nil {
			return apperr.Internal(fmt.Errorf("lookup %s %d: %w", col.Ref, id, err))
		}
		if !ok {
			return apperr.FieldError(col.Name, fmt.Sprintf("%s %d does not exist", col.Name, id))
		}
	}
	return nil
}

func (r *Repository[T]) checkDuplicate(ctx context.Context, name string, excludeID int64) error {
	var id int64
	//nolint:gosec // table comes from the resource definition
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM `+r.res.Table+` WHERE name = ? AND id <> ? LIMIT 1`, name, excludeID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return apperr.Internal(fmt.Errorf("check duplicate %s: %w", r.res.Name, err))
	}
	return apperr.Conflict(apperr.CodeDuplicateName,
		fmt.Sprintf("a %s named %q already exists", r.res.Name, name))
}

func (r *Repository[T]) column(name string) Column {
	for _, c := range r.res.Columns {
		if c.Name == name {
			return c
		}
	}
	return Column{Name: name}
}

func (r *Repository[T]) notFound(id int64) error {
	return apperr.NotFound(fmt.Sprintf("%s %d not found", r.res.Name, id))
}

// mapStoreError translates constraint failures that slipped past the
// pre-checks into typed errors.
func (r *Repository[T]) mapStoreError(op string, err error) error {
	switch {
	case store.IsUniqueViolation(err):
		return apperr.Conflict(apperr.CodeDuplicateName, fmt.Sprintf("a %s with that name already exists", r.res.Name))
	case store.IsForeignKeyViolation(err):
		return apperr.Conflict(apperr.CodeInUse, fmt.Sprintf("%s is referenced by other rows", r.res.Name))
	}
	return apperr.Internal(fmt.Errorf("%s %s: %w", op, r.res.Name, err))
}

func rowExists(ctx context.Context, db *sql.DB, table string, id int64) (bool, error) {
	var one int
	//nolint:gosec // table comes from a resource or association definition
	err := db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
