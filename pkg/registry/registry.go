// Package registry loads and caches the canonical table of meter point
// configurations. The source of truth is a shared spreadsheet; the loader
// keeps an immutable snapshot and swaps it atomically on refresh.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rukztnp-boop/water-meter-app-sub000/pkg/meter"
)

// DefaultTTL bounds how stale a snapshot may get before the next lookup
// refreshes it, even without a revision event.
const DefaultTTL = 5 * time.Minute

// Source loads the full point table from the backing store.
type Source interface {
	LoadPoints(ctx context.Context) ([]meter.PointConfig, error)
}

type snapshot struct {
	keys     map[string]string            // normalized key -> canonical id
	points   map[string]meter.PointConfig // canonical id -> config
	loadedAt time.Time
}

// Loader is the cached registry handed to pipelines. Reads take the shared
// snapshot; refreshes build a new one under an exclusive lock and swap it.
type Loader struct {
	src Source
	ttl time.Duration
	log *slog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// NewLoader wraps a source with caching. ttl <= 0 uses DefaultTTL.
func NewLoader(src Source, ttl time.Duration, logger *slog.Logger) *Loader {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{src: src, ttl: ttl, log: logger}
}

// Keys implements meter.Registry.
func (l *Loader) Keys(ctx context.Context) (map[string]string, error) {
	s, err := l.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.keys, nil
}

// Lookup implements meter.Registry. Unknown ids are an explicit error,
// never a default config.
func (l *Loader) Lookup(ctx context.Context, pointID string) (meter.PointConfig, error) {
	s, err := l.current(ctx)
	if err != nil {
		return meter.PointConfig{}, err
	}
	cfg, ok := s.points[meter.NormalizeKey(pointID)]
	if !ok {
		return meter.PointConfig{}, meter.ErrUnknownPoint
	}
	return cfg, nil
}

// Points returns every configured point in the current snapshot, sorted
// by id.
func (l *Loader) Points(ctx context.Context) ([]meter.PointConfig, error) {
	s, err := l.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]meter.PointConfig, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointID < out[j].PointID })
	return out, nil
}

// Invalidate drops the snapshot so the next read reloads.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.snap = nil
	l.mu.Unlock()
}

// Refresh rebuilds the snapshot now.
func (l *Loader) Refresh(ctx context.Context) error {
	_, err := l.reload(ctx)
	return err
}

func (l *Loader) current(ctx context.Context) (*snapshot, error) {
	l.mu.RLock()
	s := l.snap
	l.mu.RUnlock()
	if s != nil && time.Since(s.loadedAt) < l.ttl {
		return s, nil
	}
	return l.reload(ctx)
}

func (l *Loader) reload(ctx context.Context) (*snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Another request may have reloaded while we waited for the lock.
	if l.snap != nil && time.Since(l.snap.loadedAt) < l.ttl {
		return l.snap, nil
	}
	points, err := l.src.LoadPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", meter.ErrRegistryUnavailable, err)
	}
	s, err := buildSnapshot(points)
	if err != nil {
		return nil, err
	}
	l.snap = s
	l.log.Info("registry snapshot loaded", "points", len(s.points))
	return s, nil
}

func buildSnapshot(points []meter.PointConfig) (*snapshot, error) {
	s := &snapshot{
		keys:     make(map[string]string, len(points)),
		points:   make(map[string]meter.PointConfig, len(points)),
		loadedAt: time.Now(),
	}
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		key := meter.NormalizeKey(p.PointID)
		if _, dup := s.keys[key]; dup {
			return nil, fmt.Errorf("registry: duplicate point id %s after normalization", key)
		}
		s.keys[key] = p.PointID
		s.points[key] = p
	}
	return s, nil
}

// Watch invalidates the cache whenever the registry file changes, until
// ctx is done. Revision events beat the TTL so edits show up immediately.
func (l *Loader) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return fmt.Errorf("registry watcher add %s: %w", path, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					l.log.Info("registry revision detected", "path", ev.Name)
					l.Invalidate()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.log.Warn("registry watcher error", "err", err)
			}
		}
	}()
	return nil
}
