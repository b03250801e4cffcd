package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
	"github.com/JonMunkholm/dataviewer/internal/grid"
	"github.com/JonMunkholm/dataviewer/internal/logging"
	"github.com/JonMunkholm/dataviewer/internal/metrics"
	"github.com/JonMunkholm/dataviewer/internal/source"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when MaxSessions sessions are open.
	ErrTooManySessions = errors.New("too many open sessions")

	// ErrDatasetNotFound is returned for names missing from the catalog.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrUnknownIntent is returned for intent types the session cannot apply.
	ErrUnknownIntent = errors.New("unknown intent")
)

// DefaultLoadTimeout bounds a single source load.
const DefaultLoadTimeout = 2 * time.Minute

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxSessions   int
	BufferSize    int
	FilterRow     bool
	LoadTimeout   time.Duration
	SourceOptions source.Options
	Formatter     grid.CellFormatter
	Limiter       *LoadLimiter
	Metrics       *metrics.Metrics
}

// Service owns the open sessions and the dataset catalog.
type Service struct {
	catalog *Catalog
	opts    Options
	limiter *LoadLimiter
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewService creates a new Service reading named datasets from catalog.
func NewService(catalog *Catalog, opts Options) *Service {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLoadLimiter(DefaultMaxConcurrentLoads, DefaultMaxWaitTime)
	}
	return &Service{
		catalog:  catalog,
		opts:     opts,
		limiter:  limiter,
		metrics:  opts.Metrics,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Catalog returns the dataset catalog.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Limiter returns the load limiter.
func (s *Service) Limiter() *LoadLimiter { return s.limiter }

// BufferSize returns the default body window size.
func (s *Service) BufferSize() int { return s.opts.BufferSize }

// OpenDataset opens a session over a copy of a catalog dataset.
func (s *Service) OpenDataset(ctx context.Context, name string) (*Session, error) {
	entry, ok := s.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, name)
	}
	return s.OpenRaw(ctx, entry.Name, entry.Raw())
}

// OpenRaw opens a session over a decoded payload.
func (s *Service) OpenRaw(ctx context.Context, name string, raw dataset.Raw) (*Session, error) {
	ds, err := dataset.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return s.add(ctx, name, ds)
}

// OpenUpload decodes an uploaded file and opens a session over it. The file
// name selects the decoder. Loads share the limiter with catalog preloads.
func (s *Service) OpenUpload(ctx context.Context, filename string, r io.Reader) (*Session, error) {
	format, _, err := source.FormatOf(filename)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.opts.LoadTimeout)
	defer cancel()

	logger := logging.WithFields(ctx, "file", filename, "format", string(format))
	start := time.Now()
	raw, err := source.Decode(ctx, r, filename, s.opts.SourceOptions)
	s.metrics.ObserveLoad(string(format), time.Since(start), err)
	if err != nil {
		logger.Warn("upload decode failed", "error", err)
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	logger.Info("upload decoded",
		"rows", len(raw.Values),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.OpenRaw(ctx, filename, raw)
}

func (s *Service) add(ctx context.Context, name string, ds *dataset.Dataset) (*Session, error) {
	sess := NewSession(name, ds, SessionOptions{
		BufferSize: s.opts.BufferSize,
		FilterRow:  s.opts.FilterRow,
		Formatter:  s.opts.Formatter,
	})
	sess.touch(s.now())

	s.mu.Lock()
	if s.opts.MaxSessions > 0 && len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetSessions(count)
	logging.FromContext(ctx).Info("session opened",
		"session_id", sess.ID.String(),
		"dataset", name,
		"rows", ds.NumRows(),
		"columns", ds.NumColumns(),
		"client_ip", ClientIPFromContext(ctx),
		"user_agent", UserAgentFromContext(ctx),
	)
	return sess, nil
}

// Session returns an open session and marks it used.
func (s *Service) Session(id string) (*Session, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	sess.touch(s.now())
	return sess, nil
}

// Close removes a session.
func (s *Service) Close(ctx context.Context, id string) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	s.mu.Lock()
	_, ok := s.sessions[key]
	delete(s.sessions, key)
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.metrics.SetSessions(count)
	logging.FromContext(ctx).Info("session closed", "session_id", id)
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Apply runs an intent on a session.
func (s *Service) Apply(ctx context.Context, id string, in Intent) (Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Result{}, err
	}
	res, err := sess.Apply(ctx, in)
	s.metrics.ObserveIntent(in.Name(), err)
	if err == nil {
		s.metrics.AddRows(len(res.Rows))
	}
	return res, err
}

// SetData replaces the dataset of a session.
func (s *Service) SetData(ctx context.Context, id string, raw dataset.Raw) (Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Result{}, err
	}
	res, err := sess.SetData(ctx, raw)
	s.metrics.ObserveIntent("set-data", err)
	return res, err
}

// PatchValues updates the cell values of a session.
func (s *Service) PatchValues(ctx context.Context, id string, raw dataset.Raw) (Result, error) {
	sess, err := s.Session(id)
	if err != nil {
		return Result{}, err
	}
	res, err := sess.PatchValues(ctx, raw)
	s.metrics.ObserveIntent("patch-values", err)
	return res, err
}

// SweepIdleSessions closes sessions unused for longer than idle and returns
// how many were closed.
func (s *Service) SweepIdleSessions(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var evicted []uuid.UUID
	for id, sess := range s.sessions {
		if sess.LastUsed().Before(cutoff) {
			evicted = append(evicted, id)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetSessions(count)
	s.metrics.AddEvicted(len(evicted))
	for _, id := range evicted {
		slog.Debug("session evicted", "session_id", id.String())
	}
	return len(evicted)
}
