package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/logging"
	"github.com/JonMunkholm/dataviewer/internal/source"
)

// ErrDatasetExists is returned when a name is registered twice.
var ErrDatasetExists = errors.New("dataset already registered")

// SourceKind says where a catalog dataset came from.
type SourceKind string

const (
	KindFile  SourceKind = "file"
	KindTable SourceKind = "table"
)

// Source is a dataset the catalog can load.
type Source struct {
	Name   string
	Kind   SourceKind
	Origin string // file path or table name
	Load   func(ctx context.Context) (dataset.Raw, error)
}

// FileSource loads a file through source.Open. The name is the file name
// without directory and extensions.
func FileSource(path string, opts source.Options) Source {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return Source{
		Name:   name,
		Kind:   KindFile,
		Origin: path,
		Load: func(ctx context.Context) (dataset.Raw, error) {
			return source.Open(ctx, path, opts)
		},
	}
}

// TableSource loads a Postgres table through source.LoadPostgres.
func TableSource(db source.Querier, table string, indexColumns, limit int) Source {
	return Source{
		Name:   table,
		Kind:   KindTable,
		Origin: table,
		Load: func(ctx context.Context) (dataset.Raw, error) {
			return source.LoadPostgres(ctx, db, source.TableQuery{
				Table:        table,
				IndexColumns: indexColumns,
				Limit:        limit,
			})
		},
	}
}

// Entry is a loaded catalog dataset.
type Entry struct {
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	Origin   string     `json:"origin"`
	Rows     int        `json:"rows"`
	Columns  int        `json:"columns"`
	LoadedAt time.Time  `json:"loadedAt"`

	raw dataset.Raw
}

// Raw returns the payload sessions are opened from. It must not be modified.
func (e Entry) Raw() dataset.Raw { return e.raw }

// Catalog is the set of named datasets sessions can open.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Add validates raw and registers it under name.
func (c *Catalog) Add(name string, kind SourceKind, origin string, raw dataset.Raw) error {
	ds, err := dataset.FromRaw(raw)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDatasetExists, name)
	}
	c.entries[name] = Entry{
		Name:     name,
		Kind:     kind,
		Origin:   origin,
		Rows:     ds.NumRows(),
		Columns:  ds.NumColumns(),
		LoadedAt: time.Now(),
		raw:      raw,
	}
	return nil
}

// Get returns a dataset by name.
func (c *Catalog) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	return e, ok
}

// All returns every entry, sorted by kind then by name.
func (c *Catalog) All() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Kinds returns the distinct source kinds, sorted.
func (c *Catalog) Kinds() []SourceKind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[SourceKind]bool)
	for _, e := range c.entries {
		seen[e.Kind] = true
	}
	kinds := make([]SourceKind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Len returns the number of registered datasets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Remove drops a dataset. Open sessions keep their own copy.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[name]
	delete(c.entries, name)
	return ok
}

// Preload loads sources in parallel, at most limiter.MaxConcurrent at a
// time, and registers them. The first failure cancels the remaining loads
// and is returned.
func (c *Catalog) Preload(ctx context.Context, sources []Source, limiter *LoadLimiter) error {
	if limiter == nil {
		limiter = NewLoadLimiter(DefaultMaxConcurrentLoads, DefaultMaxWaitTime)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limiter.MaxConcurrent())

	for _, src := range sources {
		g.Go(func() error {
			if err := limiter.Acquire(gctx); err != nil {
				return fmt.Errorf("load %s: %w", src.Name, err)
			}
			defer limiter.Release()

			logger := logging.WithFields(gctx, "dataset", src.Name, "kind", string(src.Kind))
			start := time.Now()
			raw, err := src.Load(gctx)
			if err != nil {
				return fmt.Errorf("load %s: %w", src.Name, err)
			}
			if err := c.Add(src.Name, src.Kind, src.Origin, raw); err != nil {
				return err
			}
			logger.Info("dataset loaded",
				"rows", len(raw.Values),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		})
	}
	return g.Wait()
}
