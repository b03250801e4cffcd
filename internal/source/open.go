package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// Format is an input file format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

var (
	// ErrUnsupportedFormat is returned for file names with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported source format")

	// ErrMalformed wraps every parse failure of a source body.
	ErrMalformed = errors.New("malformed source")
)

const zstdExt = ".zst"

// Options applies to every file format.
type Options struct {
	IndexColumns   int
	LevelSeparator string
	MaxRows        int
}

// FormatOf derives the format from a file name. compressed reports a ".zst"
// suffix.
func FormatOf(name string) (f Format, compressed bool, err error) {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, zstdExt) {
		compressed = true
		name = strings.TrimSuffix(name, zstdExt)
	}
	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".csv", ".tsv", ".txt":
		return FormatCSV, compressed, nil
	case ".parquet":
		return FormatParquet, compressed, nil
	}
	return "", compressed, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Base(name))
}

// Decode reads a payload from r, choosing the decoder by file name.
func Decode(ctx context.Context, r io.Reader, name string, opts Options) (dataset.Raw, error) {
	f, compressed, err := FormatOf(name)
	if err != nil {
		return dataset.Raw{}, err
	}
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	if err := ctx.Err(); err != nil {
		return dataset.Raw{}, err
	}

	switch f {
	case FormatJSON:
		return DecodeJSON(r)
	case FormatYAML:
		return DecodeYAML(r)
	case FormatCSV:
		csvOpts := CSVOptions{
			IndexColumns:   opts.IndexColumns,
			LevelSeparator: opts.LevelSeparator,
			MaxRows:        opts.MaxRows,
		}
		if strings.HasSuffix(strings.TrimSuffix(strings.ToLower(name), zstdExt), ".tsv") {
			csvOpts.Comma = '\t'
		}
		return ReadCSV(r, csvOpts)
	case FormatParquet:
		data, err := io.ReadAll(r)
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("read parquet: %w", err)
		}
		return ReadParquet(bytes.NewReader(data), int64(len(data)), ParquetOptions{
			IndexColumns: opts.IndexColumns,
			MaxRows:      opts.MaxRows,
		})
	}
	return dataset.Raw{}, ErrUnsupportedFormat
}

// Open loads a file from disk. Uncompressed parquet files are read in place.
func Open(ctx context.Context, path string, opts Options) (dataset.Raw, error) {
	f, compressed, err := FormatOf(path)
	if err != nil {
		return dataset.Raw{}, err
	}
	file, err := os.Open(path)
	if err != nil {
		return dataset.Raw{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if f == FormatParquet && !compressed {
		info, err := file.Stat()
		if err != nil {
			return dataset.Raw{}, fmt.Errorf("stat %s: %w", path, err)
		}
		return ReadParquet(file, info.Size(), ParquetOptions{
			IndexColumns: opts.IndexColumns,
			MaxRows:      opts.MaxRows,
		})
	}
	return Decode(ctx, file, path, opts)
}
