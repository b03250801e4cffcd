package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/source"
)

func TestCatalog_AddAndList(t *testing.T) {
	c := NewCatalog()

	if err := c.Add("sales", KindTable, "public.sales", produceRaw()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Add("produce", KindFile, "produce.csv", produceRaw()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Add("orders", KindFile, "orders.csv", produceRaw()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := c.Add("sales", KindFile, "x.csv", produceRaw()); !errors.Is(err, ErrDatasetExists) {
		t.Errorf("duplicate Add() error = %v, want ErrDatasetExists", err)
	}

	var names []string
	for _, e := range c.All() {
		names = append(names, e.Name)
	}
	if want := []string{"orders", "produce", "sales"}; !reflect.DeepEqual(names, want) {
		t.Errorf("All() names = %v, want %v", names, want)
	}
	if want := []SourceKind{KindFile, KindTable}; !reflect.DeepEqual(c.Kinds(), want) {
		t.Errorf("Kinds() = %v, want %v", c.Kinds(), want)
	}

	e, ok := c.Get("produce")
	if !ok {
		t.Fatal("Get() did not find produce")
	}
	if e.Rows != 6 || e.Columns != 3 {
		t.Errorf("entry = %d rows %d columns, want 6 and 3", e.Rows, e.Columns)
	}

	if !c.Remove("orders") || c.Remove("orders") {
		t.Error("Remove() should succeed once")
	}
	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestCatalog_AddRejectsInvalid(t *testing.T) {
	c := NewCatalog()
	err := c.Add("bad", KindFile, "bad.json", dataset.Raw{
		Index:   []any{"a", "b"},
		Columns: []any{"x"},
		Values:  [][]any{{1}},
	})
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Add() error = %v, want *dataset.SchemaError", err)
	}
	if c.Len() != 0 {
		t.Error("invalid dataset was registered")
	}
}

func TestFileSource_Name(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/sales.csv", "sales"},
		{"ledger.parquet", "ledger"},
		{"dir/orders.json.zst", "orders"},
	}
	for _, tt := range tests {
		if got := FileSource(tt.path, source.Options{}).Name; got != tt.want {
			t.Errorf("FileSource(%q).Name = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestCatalog_PreloadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	opts := source.Options{IndexColumns: 1}
	sources := []Source{
		FileSource(write("sales.csv", "id,units\na,1\nb,2\n"), opts),
		FileSource(write("regions.yaml", "index: [n, s]\ncolumns: [name]\nvalues: [[North], [South]]\n"), opts),
	}

	c := NewCatalog()
	if err := c.Preload(context.Background(), sources, NewLoadLimiter(1, time.Second)); err != nil {
		t.Fatalf("Preload() error = %v", err)
	}
	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	e, _ := c.Get("regions")
	if e.Rows != 2 || e.Kind != KindFile {
		t.Errorf("regions entry = %+v", e)
	}
}

func TestCatalog_PreloadStopsOnError(t *testing.T) {
	ok := func(name string) Source {
		return Source{Name: name, Kind: KindFile, Load: func(context.Context) (dataset.Raw, error) {
			return produceRaw(), nil
		}}
	}
	sources := []Source{
		ok("a"),
		{Name: "ledger", Kind: KindTable, Load: func(context.Context) (dataset.Raw, error) {
			return dataset.Raw{}, errors.New("dial tcp: connection refused")
		}},
		ok("b"),
	}

	err := NewCatalog().Preload(context.Background(), sources, nil)
	if err == nil {
		t.Fatal("Preload() expected error")
	}
	if got := MapError(err).Code; got != "DB001" {
		t.Errorf("MapError code = %q, want DB001 (err %v)", got, err)
	}
}

func TestTableSource_QueryError(t *testing.T) {
	src := TableSource(failingQuerier{err: errors.New(`relation "ledger" does not exist`)}, "public.ledger", 1, 100)
	if src.Kind != KindTable || src.Name != "public.ledger" {
		t.Errorf("TableSource() = %+v", src)
	}
	_, err := src.Load(context.Background())
	if err == nil {
		t.Fatal("Load() expected error")
	}
	if got := MapError(err).Code; got != "DB002" {
		t.Errorf("MapError code = %q, want DB002", got)
	}
}

type failingQuerier struct{ err error }

func (q failingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, q.err
}
