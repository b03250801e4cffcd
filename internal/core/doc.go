// Package core coordinates viewer sessions: it owns the datasets, applies
// user intents to views and maps failures to messages users can act on.
//
// # Sessions
//
// A [Session] owns a private copy of a dataset and the view over it. The
// browser never mutates the view directly; it sends intents that the host
// forwards to [Service.Apply]:
//
//	res, err := svc.Apply(ctx, id, core.ColumnSort{ColumnIndex: 2, SortState: view.DirDesc})
//	// res.Header: redraw the header (sort marks changed)
//	// res.Body:   replace the body with res.Rows
//
// Intents are applied one at a time per session. Column positions in intents
// are view-local, because that is what the browser sees; the session
// translates them to dataset positions at intake, so filters stay attached to
// their column when the column selection changes.
//
// # Catalog
//
// Named datasets are loaded once at startup by [Catalog.Preload] and copied
// into each session that opens them. Uploads are decoded per request under the
// [LoadLimiter].
//
// # Housekeeping
//
// [Service.StartSessionSweeper] closes sessions that were not used for the
// configured idle timeout.
package core
