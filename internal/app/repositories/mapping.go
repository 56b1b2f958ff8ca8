package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/studentinfo/internal/app/models"
	"github.com/yigit/studentinfo/internal/db"
)

// field binds a column to the struct field it is scanned into
type field[T any] struct {
	column string
	ptr    func(*T) any
}

// rowMapping is the single declaration of how a table's columns map onto a model.
// Selects, scans and the startup schema check all derive from it.
type rowMapping[T any] struct {
	table  string
	fields []field[T]
}

// Columns returns the mapped column names in scan order
func (m rowMapping[T]) Columns() []string {
	cols := make([]string, len(m.fields))
	for i, f := range m.fields {
		cols[i] = f.column
	}
	return cols
}

func (m rowMapping[T]) targets(v *T) []any {
	dest := make([]any, len(m.fields))
	for i, f := range m.fields {
		dest[i] = f.ptr(v)
	}
	return dest
}

// scan reads a single row
func (m rowMapping[T]) scan(row pgx.Row) (*T, error) {
	v := new(T)
	if err := row.Scan(m.targets(v)...); err != nil {
		return nil, err
	}
	return v, nil
}

// scanAll reads every row. The result is never nil.
func (m rowMapping[T]) scanAll(rows pgx.Rows) ([]*T, error) {
	defer rows.Close()

	items := []*T{}
	for rows.Next() {
		v := new(T)
		if err := rows.Scan(m.targets(v)...); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var studentMapping = rowMapping[models.Student]{
	table: "students",
	fields: []field[models.Student]{
		{"id", func(s *models.Student) any { return &s.ID }},
		{"name", func(s *models.Student) any { return &s.Name }},
		{"father_name", func(s *models.Student) any { return &s.FatherName }},
		{"aadhar_number", func(s *models.Student) any { return &s.AadharNumber }},
		{"profile_photo_ref", func(s *models.Student) any { return &s.ProfilePhotoRef }},
		{"identity_doc_ref", func(s *models.Student) any { return &s.IdentityDocRef }},
		{"created_at", func(s *models.Student) any { return &s.CreatedAt }},
		{"updated_at", func(s *models.Student) any { return &s.UpdatedAt }},
	},
}

var contactMapping = rowMapping[models.Contact]{
	table: "contacts",
	fields: []field[models.Contact]{
		{"id", func(c *models.Contact) any { return &c.ID }},
		{"student_id", func(c *models.Contact) any { return &c.StudentID }},
		{"mobile_number", func(c *models.Contact) any { return &c.MobileNumber }},
		{"city", func(c *models.Contact) any { return &c.City }},
		{"address", func(c *models.Contact) any { return &c.Address }},
		{"created_at", func(c *models.Contact) any { return &c.CreatedAt }},
	},
}

// mappedTables lists every table the repositories read, with the columns they expect
func mappedTables() map[string][]string {
	return map[string][]string{
		studentMapping.table: studentMapping.Columns(),
		contactMapping.table: contactMapping.Columns(),
	}
}

// VerifySchema checks that every mapped column exists in the current schema.
// It runs once at startup so a drifted schema fails fast instead of on the first request.
func VerifySchema(ctx context.Context, q db.Querier) error {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	var missing []string
	for table, columns := range mappedTables() {
		sql, args, err := sb.Select("column_name").
			From("information_schema.columns").
			Where(squirrel.Expr("table_schema = current_schema()")).
			Where(squirrel.Eq{"table_name": table}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build schema check query: %w", err)
		}

		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("error reading columns of %s: %w", table, err)
		}
		present, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("error reading columns of %s: %w", table, err)
		}

		have := make(map[string]struct{}, len(present))
		for _, c := range present {
			have[c] = struct{}{}
		}
		for _, c := range columns {
			if _, ok := have[c]; !ok {
				missing = append(missing, table+"."+c)
			}
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("database schema is missing mapped columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
