package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HerbHall/grandline/internal/apperr"
)

// FilterKind selects how a filter parameter is parsed and applied.
type FilterKind int

const (
	// FilterID matches a positive integer exactly (foreign key columns).
	FilterID FilterKind = iota
	// FilterMin applies a non-negative lower bound (column >= value).
	FilterMin
	// FilterMax applies a non-negative upper bound (column <= value).
	FilterMax
	// FilterEnum matches one value of a closed set, case-insensitively.
	FilterEnum
	// FilterBool parses true/false/1/0. With Value set, true means
	// column = Value and false means column <> Value; otherwise the column
	// is compared to 1 or 0.
	FilterBool
)

// Filter declares one filterable query parameter of a resource.
type Filter struct {
	Param  string
	Column string
	Kind   FilterKind
	Enum   []string
	Value  string
}

// Spec is the per-resource list configuration.
type Spec struct {
	Search      []string
	Sort        []string
	DefaultSort string
	Filters     []Filter
}

// Descriptor is a validated, bounded list query.
type Descriptor struct {
	Page    int
	Limit   int
	Offset  int
	Where   string
	Args    []any
	OrderBy string
	Order   string
}

// Build validates opts against spec and produces a Descriptor. Filter
// errors are returned as *apperr.Error before any store access.
func Build(opts Options, spec Spec) (Descriptor, error) {
	opts = opts.Normalize()

	where := []string{"1=1"}
	var args []any

	if opts.Search != "" && len(spec.Search) > 0 {
		preds := make([]string, len(spec.Search))
		for i, col := range spec.Search {
			preds[i] = fmt.Sprintf("instr(%s, ?) > 0", col)
			args = append(args, opts.Search)
		}
		where = append(where, "("+strings.Join(preds, " OR ")+")")
	}

	type bound struct {
		param string
		n     int64
	}
	mins := make(map[string]bound)
	maxs := make(map[string]bound)

	for _, f := range spec.Filters {
		raw, ok := opts.Filters[f.Param]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		switch f.Kind {
		case FilterID:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 {
				return Descriptor{}, apperr.FieldError(f.Param, f.Param+" must be a positive integer")
			}
			where = append(where, f.Column+" = ?")
			args = append(args, n)

		case FilterMin, FilterMax:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 0 {
				return Descriptor{}, apperr.FieldError(f.Param, f.Param+" must be a non-negative integer")
			}
			if f.Kind == FilterMin {
				where = append(where, f.Column+" >= ?")
				mins[f.Column] = bound{f.Param, n}
			} else {
				where = append(where, f.Column+" <= ?")
				maxs[f.Column] = bound{f.Param, n}
			}
			args = append(args, n)

		case FilterEnum:
			v, ok := matchEnum(raw, f.Enum)
			if !ok {
				return Descriptor{}, apperr.FieldError(f.Param,
					fmt.Sprintf("%s must be one of: %s", f.Param, strings.Join(f.Enum, ", ")))
			}
			where = append(where, f.Column+" = ?")
			args = append(args, v)

		case FilterBool:
			b, err := parseBool(raw)
			if err != nil {
				return Descriptor{}, apperr.FieldError(f.Param, f.Param+" must be true or false")
			}
			switch {
			case f.Value != "" && b:
				where = append(where, f.Column+" = ?")
				args = append(args, f.Value)
			case f.Value != "":
				where = append(where, f.Column+" <> ?")
				args = append(args, f.Value)
			case b:
				where = append(where, f.Column+" = 1")
			default:
				where = append(where, f.Column+" = 0")
			}
		}
	}

	for col, lo := range mins {
		if hi, ok := maxs[col]; ok && lo.n > hi.n {
			name := strings.TrimPrefix(lo.param, "min_")
			return Descriptor{}, apperr.FieldError(name+"_range",
				fmt.Sprintf("%s (%d) cannot be greater than %s (%d)", lo.param, lo.n, hi.param, hi.n))
		}
	}

	return Descriptor{
		Page:    opts.Page,
		Limit:   opts.Limit,
		Offset:  opts.Offset(),
		Where:   strings.Join(where, " AND "),
		Args:    args,
		OrderBy: sortColumn(opts.SortBy, spec),
		Order:   opts.SortOrder,
	}, nil
}

// CountSQL returns the COUNT query and its arguments.
func (d Descriptor) CountSQL(table string) (string, []any) {
	//nolint:gosec // table comes from resource definitions, where uses placeholders
	return "SELECT COUNT(*) FROM " + table + " WHERE " + d.Where, d.Args
}

// SelectSQL returns the paginated SELECT query and its arguments.
func (d Descriptor) SelectSQL(table, columns string) (string, []any) {
	args := make([]any, 0, len(d.Args)+2)
	args = append(args, d.Args...)
	args = append(args, d.Limit, d.Offset)

	//nolint:gosec // identifiers are whitelisted, values use placeholders
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s %s, id ASC LIMIT ? OFFSET ?",
		columns, table, d.Where, d.OrderBy, strings.ToUpper(d.Order))
	return q, args
}

func sortColumn(sortBy string, spec Spec) string {
	for _, col := range spec.Sort {
		if col == sortBy {
			return col
		}
	}
	if spec.DefaultSort != "" {
		return spec.DefaultSort
	}
	return "id"
}

func matchEnum(raw string, values []string) (string, bool) {
	for _, v := range values {
		if strings.EqualFold(raw, v) {
			return v, true
		}
	}
	return "", false
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}
