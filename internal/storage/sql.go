package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kensaku/internal/models"
)

// dialect holds the differences between the supported SQL databases.
type dialect struct {
	name        string
	placeholder func(n int) string
	columnTypes map[ColumnKind]string
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	columnTypes: map[ColumnKind]string{
		KindText: "TEXT",
		KindInt:  "INTEGER",
		KindBool: "BOOLEAN",
		KindTime: "TIMESTAMP",
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	columnTypes: map[ColumnKind]string{
		KindText: "TEXT",
		KindInt:  "BIGINT",
		KindBool: "BOOLEAN",
		KindTime: "TIMESTAMPTZ",
	},
}

// SQLStore implements Store on database/sql. The SQLite and PostgreSQL
// constructors differ only in driver and dialect.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	for _, c := range models.AllCollections {
		schema, err := SchemaFor(c)
		if err != nil {
			return err
		}
		defs := make([]string, len(schema.Columns))
		for i, col := range schema.Columns {
			defs[i] = col.Name + " " + s.dialect.columnTypes[col.Kind]
			if i == 0 {
				defs[i] += " PRIMARY KEY"
			}
		}
		stmts := []string{
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", c, strings.Join(defs, ",\n\t")),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_published ON %s(published)", c, c),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(source)", c, c),
		}
		for _, stmt := range stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// args collects bind parameters and renders their placeholders.
type args struct {
	d    dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	return a.d.placeholder(len(a.vals))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where renders the WHERE clause of q against schema.
func (s *SQLStore) where(schema *Schema, q Query, a *args) (string, error) {
	conds := []string{"published = " + a.add(true)}

	if term := strings.TrimSpace(q.TextTerm); term != "" && len(q.TextColumns) > 0 {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		var ors []string
		for _, col := range q.TextColumns {
			if !schema.Has(col) {
				return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, schema.Collection, col)
			}
			ors = append(ors, fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, a.add(pattern)))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	for _, col := range sortedKeys(q.Equals) {
		values := q.Equals[col]
		if len(values) == 0 {
			continue
		}
		if !schema.Has(col) {
			return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, schema.Collection, col)
		}
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = a.add(v)
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", ")))
	}

	for _, col := range sortedKeys(q.Ranges) {
		ranges := q.Ranges[col]
		if len(ranges) == 0 || hasUnbounded(ranges) {
			continue
		}
		if !schema.Has(col) {
			return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, schema.Collection, col)
		}
		var ors []string
		for _, r := range ranges {
			var parts []string
			if r.Min != nil {
				parts = append(parts, col+" >= "+a.add(*r.Min))
			}
			if r.Max != nil {
				parts = append(parts, col+" <= "+a.add(*r.Max))
			}
			ors = append(ors, "("+strings.Join(parts, " AND ")+")")
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(conds, " AND "), nil
}

// QueryPublished implements Store.
func (s *SQLStore) QueryPublished(ctx context.Context, collection models.Collection, q Query) (*Result, error) {
	schema, err := SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if q.SortColumn != "" && !schema.Has(q.SortColumn) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, collection, q.SortColumn)
	}

	a := &args{d: s.dialect}
	where, err := s.where(schema, q, a)
	if err != nil {
		return nil, err
	}

	var total int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", collection, where)
	if err := s.db.QueryRowContext(ctx, countSQL, a.vals...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", collection, err)
	}

	columns := schema.Names()
	selectSQL := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), collection, where)
	// No ORDER BY leaves relevance order to the database.
	if q.SortColumn != "" {
		dir := "ASC"
		if q.SortDescending {
			dir = "DESC"
		}
		selectSQL += fmt.Sprintf(" ORDER BY %s %s, id ASC", q.SortColumn, dir)
	}
	if q.Limit > 0 {
		selectSQL += fmt.Sprintf(" LIMIT %s OFFSET %s", a.add(q.Limit), a.add(max(q.Offset, 0)))
	}

	rows, err := s.db.QueryContext(ctx, selectSQL, a.vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	result := &Result{Rows: []Row{}, Total: total}
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

// AggregateFacet implements Store. NULL and empty values are not counted.
func (s *SQLStore) AggregateFacet(ctx context.Context, collection models.Collection, column string) ([]FacetCount, error) {
	schema, err := SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if !schema.Has(column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, collection, column)
	}

	a := &args{d: s.dialect}
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM %s WHERE published = %s AND %s IS NOT NULL GROUP BY %s",
		column, collection, a.add(true), column, column)
	rows, err := s.db.QueryContext(ctx, query, a.vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s.%s: %w", collection, column, err)
	}
	defer rows.Close()

	counts := []FacetCount{}
	for rows.Next() {
		var value any
		var n int
		if err := rows.Scan(&value, &n); err != nil {
			return nil, err
		}
		v := stringify(value)
		if v == "" {
			continue
		}
		counts = append(counts, FacetCount{Value: v, Count: n})
	}
	return counts, rows.Err()
}

// Upsert implements Store.
func (s *SQLStore) Upsert(ctx context.Context, catalog *models.Catalog) error {
	byCollection := CatalogRows(catalog, s.now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range models.AllCollections {
		rows := byCollection[c]
		if len(rows) == 0 {
			continue
		}
		schema, err := SchemaFor(c)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, s.upsertSQL(schema))
		if err != nil {
			return err
		}
		for _, row := range rows {
			vals := make([]any, len(schema.Columns))
			for i, col := range schema.Columns {
				vals[i] = row[col.Name]
			}
			if _, err := stmt.ExecContext(ctx, vals...); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("failed to upsert %s %v: %w", c, row["id"], err)
			}
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) upsertSQL(schema *Schema) string {
	names := schema.Names()
	a := &args{d: s.dialect}
	ph := make([]string, len(names))
	for i := range names {
		ph[i] = a.add(nil)
	}
	var updates []string
	for _, n := range names {
		if n == "id" || n == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", n, n))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		schema.Collection, strings.Join(names, ", "), strings.Join(ph, ", "), strings.Join(updates, ", "))
}

// DeleteBySource implements Store.
func (s *SQLStore) DeleteBySource(ctx context.Context, source string) (int64, error) {
	if source == "" {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var removed int64
	for _, c := range models.AllCollections {
		a := &args{d: s.dialect}
		res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE source = %s", c, a.add(source)), a.vals...)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += n
	}
	return removed, tx.Commit()
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context, collection models.Collection) (int64, error) {
	if _, err := SchemaFor(collection); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", collection)).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func hasUnbounded(ranges []Range) bool {
	for _, r := range ranges {
		if r.Min == nil && r.Max == nil {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
