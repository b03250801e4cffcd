package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TableQuery names what to load. Exactly one of Table or SQL is set.
type TableQuery struct {
	Table        string // optionally schema-qualified, e.g. "public.sales"
	SQL          string
	Args         []any
	IndexColumns int
	Limit        int
}

// ErrNoQuery is returned when a TableQuery names neither a table nor SQL.
var ErrNoQuery = errors.New("table query needs a table or sql")

func (q TableQuery) statement() (string, []any, error) {
	switch {
	case q.SQL != "":
		return q.SQL, q.Args, nil
	case q.Table != "":
		ident := pgx.Identifier(strings.Split(q.Table, ".")).Sanitize()
		stmt := "SELECT * FROM " + ident
		if q.Limit > 0 {
			stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
		}
		return stmt, nil, nil
	}
	return "", nil, ErrNoQuery
}

// LoadPostgres reads a table or query into a payload. Leading IndexColumns
// result columns form the row labels.
func LoadPostgres(ctx context.Context, db Querier, q TableQuery) (dataset.Raw, error) {
	stmt, args, err := q.statement()
	if err != nil {
		return dataset.Raw{}, err
	}
	rows, err := db.Query(ctx, stmt, args...)
	if err != nil {
		return dataset.Raw{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	nIndex := min(max(q.IndexColumns, 0), len(fields))
	raw := dataset.Raw{}
	for j, f := range fields {
		if j < nIndex {
			raw.IndexNames = append(raw.IndexNames, f.Name)
			continue
		}
		raw.Columns = append(raw.Columns, f.Name)
		raw.DTypes = append(raw.DTypes, string(pgDType(f)))
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("row %d: %w", len(raw.Values), err)
		}
		cells := make([]any, len(values))
		for j, v := range values {
			cells[j] = pgValue(v)
		}
		raw.Index = append(raw.Index, parquetIndex(cells[:nIndex], len(raw.Index)))
		raw.Values = append(raw.Values, cells[nIndex:])
		if q.SQL != "" && q.Limit > 0 && len(raw.Values) >= q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return dataset.Raw{}, fmt.Errorf("read rows: %w", err)
	}
	return raw, nil
}

func pgDType(f pgconn.FieldDescription) dataset.DType {
	switch f.DataTypeOID {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return dataset.DTypeInt
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return dataset.DTypeFloat
	case pgtype.DateOID:
		return dataset.DTypeDate
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return dataset.DTypeDatetime
	}
	return dataset.DTypeOther
}

// pgValue converts driver values into plain Go values.
func pgValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	}
	return v
}
