// Package source decodes tabular payloads into [dataset.Raw].
//
// Supported inputs:
//
//   - JSON and YAML documents in the load payload shape
//   - CSV files, with per-column type inference
//   - flat Parquet files
//   - Postgres tables or queries through pgx
//
// Any file input may be zstd compressed; [Open] and [Decode] recognize the
// ".zst" suffix.
//
// # CSV inference
//
// A CSV column is tagged int when every non-empty cell parses as an integer,
// float when every non-empty cell parses as a number, and date or datetime
// when every non-empty cell parses as a date. Numbers may carry currency
// symbols, thousands separators and accounting-style parentheses. Empty
// cells become nil.
package source
