package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

const salesCSV = "\xEF\xBB\xBFregion,store,units,price,opened,note\n" +
	"east,a,10,\"$1,200.50\",2021-01-05,\n" +
	"east,b,,(3.25),2022-02-06,ok\n" +
	",,,,,\n" +
	"west,c,7,4,2023-03-07,x\n"

func TestReadCSV(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader(salesCSV), CSVOptions{IndexColumns: 2})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if got, want := raw.IndexNames, []string{"region", "store"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IndexNames = %v, want %v", got, want)
	}
	if got, want := raw.DTypes, []string{"int", "float", "date", ""}; !reflect.DeepEqual(got, want) {
		t.Errorf("DTypes = %v, want %v", got, want)
	}
	if len(raw.Values) != 3 {
		t.Fatalf("got %d rows, want 3 (blank row skipped)", len(raw.Values))
	}
	if got := raw.Index[0]; !reflect.DeepEqual(got, []any{"east", "a"}) {
		t.Errorf("Index[0] = %v", got)
	}

	row0 := raw.Values[0]
	if row0[0] != int64(10) || row0[1] != 1200.5 || row0[3] != nil {
		t.Errorf("row 0 = %v", row0)
	}
	if raw.Values[1][0] != nil {
		t.Errorf("empty units cell = %v, want nil", raw.Values[1][0])
	}
	if raw.Values[1][1] != -3.25 {
		t.Errorf("accounting negative = %v", raw.Values[1][1])
	}
	if d, ok := raw.Values[2][2].(time.Time); !ok || d.Year() != 2023 {
		t.Errorf("opened = %v", raw.Values[2][2])
	}

	if _, err := dataset.FromRaw(raw); err != nil {
		t.Errorf("payload does not load: %v", err)
	}
}

func TestReadCSV_LevelSeparator(t *testing.T) {
	input := "id,2023|q1,2023|q2,2024|q1\nr1,1,2,3\n"
	raw, err := ReadCSV(strings.NewReader(input), CSVOptions{IndexColumns: 1, LevelSeparator: "|"})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	ds, err := dataset.FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw: %v", err)
	}
	if ds.Columns().NLevels() != 2 {
		t.Errorf("NLevels = %d, want 2", ds.Columns().NLevels())
	}
	if n := len(ds.Columns().Spans(0)); n != 2 {
		t.Errorf("top-level groups = %d, want 2", n)
	}
	if raw.Index[0] != "r1" {
		t.Errorf("Index[0] = %v", raw.Index[0])
	}
}

func TestReadCSV_Errors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader(""), CSVOptions{}); !errors.Is(err, ErrEmptyCSV) {
		t.Errorf("empty input: got %v", err)
	}

	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), CSVOptions{})
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("ragged row: got %v", err)
	}
}

func TestReadCSV_NoIndexColumns(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader("a\nx\ny\n"), CSVOptions{MaxRows: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(raw.Index, []any{0}) {
		t.Errorf("Index = %v, want row numbers", raw.Index)
	}
}

func TestDecodePayloads(t *testing.T) {
	jsonDoc := `{"index":["r0","r1"],"columns":[["A","x"],["A","y"]],"values":[[1,null],[2.5,"s"]],"dtypes":["float",""]}`
	yamlDoc := `
index: [r0, r1]
columns:
  - [A, x]
  - [A, y]
values:
  - [1, null]
  - [2.5, s]
dtypes: [float, ""]
`
	tests := []struct {
		name   string
		decode func() (dataset.Raw, error)
	}{
		{"json", func() (dataset.Raw, error) { return DecodeJSON(strings.NewReader(jsonDoc)) }},
		{"yaml", func() (dataset.Raw, error) { return DecodeYAML(strings.NewReader(yamlDoc)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.decode()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			ds, err := dataset.FromRaw(raw)
			if err != nil {
				t.Fatalf("FromRaw: %v", err)
			}
			if ds.Columns().NLevels() != 2 || ds.NumRows() != 2 {
				t.Errorf("shape = %d rows, %d levels", ds.NumRows(), ds.Columns().NLevels())
			}
			if ds.Value(0, 1) != nil {
				t.Errorf("null cell = %v", ds.Value(0, 1))
			}
			if ds.DType(0) != dataset.DTypeFloat {
				t.Errorf("dtype = %q", ds.DType(0))
			}
		})
	}
}

type parquetSale struct {
	Region string   `parquet:"region"`
	Units  int64    `parquet:"units"`
	Price  *float64 `parquet:"price,optional"`
}

func writeParquet(t *testing.T) []byte {
	t.Helper()
	price := 9.5
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[parquetSale](&buf)
	if _, err := w.Write([]parquetSale{
		{Region: "east", Units: 3, Price: &price},
		{Region: "west", Units: 4},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadParquet(t *testing.T) {
	data := writeParquet(t)
	raw, err := ReadParquet(bytes.NewReader(data), int64(len(data)), ParquetOptions{IndexColumns: 1})
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if !reflect.DeepEqual(raw.Index, []any{"east", "west"}) {
		t.Errorf("Index = %v", raw.Index)
	}
	if !reflect.DeepEqual(raw.Columns, []any{"units", "price"}) {
		t.Errorf("Columns = %v", raw.Columns)
	}
	if !reflect.DeepEqual(raw.DTypes, []string{"int", "float"}) {
		t.Errorf("DTypes = %v", raw.DTypes)
	}
	if raw.Values[0][0] != int64(3) || raw.Values[0][1] != 9.5 {
		t.Errorf("row 0 = %v", raw.Values[0])
	}
	if raw.Values[1][1] != nil {
		t.Errorf("null price = %v", raw.Values[1][1])
	}
}

func TestDecode_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	compressed := enc.EncodeAll([]byte("a,b\n1,2\n"), nil)
	enc.Close()

	raw, err := Decode(context.Background(), bytes.NewReader(compressed), "numbers.csv.zst", Options{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(raw.Values) != 1 || raw.Values[0][1] != int64(2) {
		t.Errorf("Values = %v", raw.Values)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.parquet")
	if err := os.WriteFile(path, writeParquet(t), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(raw.Columns) != 3 || len(raw.Values) != 2 {
		t.Errorf("got %d columns, %d rows", len(raw.Columns), len(raw.Values))
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		name       string
		want       Format
		compressed bool
		wantErr    bool
	}{
		{"a.json", FormatJSON, false, false},
		{"a.YML", FormatYAML, false, false},
		{"a.csv.zst", FormatCSV, true, false},
		{"a.parquet", FormatParquet, false, false},
		{"a.xlsx", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, compressed, err := FormatOf(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("err = %v, want ErrUnsupportedFormat", err)
			}
			if got != tt.want || compressed != tt.compressed {
				t.Errorf("got %q, %v", got, compressed)
			}
		})
	}
}

// fakeRows serves fixed values through the pgx.Rows interface.
type fakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Next() bool                                   { r.pos++; return r.pos <= len(r.data) }
func (r *fakeRows) Scan(...any) error                            { return errors.New("not supported") }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

type fakeQuerier struct {
	rows *fakeRows
	sql  string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.sql = sql
	return q.rows, nil
}

func TestLoadPostgres(t *testing.T) {
	var amount pgtype.Numeric
	if err := amount.Scan("12.5"); err != nil {
		t.Fatal(err)
	}
	q := &fakeQuerier{rows: &fakeRows{
		fields: []pgconn.FieldDescription{
			{Name: "id", DataTypeOID: pgtype.Int4OID},
			{Name: "amount", DataTypeOID: pgtype.NumericOID},
			{Name: "booked", DataTypeOID: pgtype.DateOID},
		},
		data: [][]any{
			{int32(1), amount, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
			{int32(2), nil, nil},
		},
	}}

	raw, err := LoadPostgres(context.Background(), q, TableQuery{Table: "public.ledger", IndexColumns: 1, Limit: 10})
	if err != nil {
		t.Fatalf("LoadPostgres: %v", err)
	}
	if q.sql != `SELECT * FROM "public"."ledger" LIMIT 10` {
		t.Errorf("sql = %s", q.sql)
	}
	if !reflect.DeepEqual(raw.DTypes, []string{"float", "date"}) {
		t.Errorf("DTypes = %v", raw.DTypes)
	}
	if !reflect.DeepEqual(raw.Index, []any{int64(1), int64(2)}) {
		t.Errorf("Index = %v", raw.Index)
	}
	if raw.Values[0][0] != 12.5 || raw.Values[1][0] != nil {
		t.Errorf("amounts = %v, %v", raw.Values[0][0], raw.Values[1][0])
	}

	if _, err := LoadPostgres(context.Background(), q, TableQuery{}); !errors.Is(err, ErrNoQuery) {
		t.Errorf("empty query: got %v", err)
	}
}
