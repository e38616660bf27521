package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/yllada/vpn-provider-cli/common"
)

// Overrides resolves per-provider override values.
type Overrides interface {
	// Resolve returns the value for (id, group, item), or item itself when
	// there is no entry.
	Resolve(id int, group, item string) string
	// ResolveOr is Resolve with an explicit default.
	ResolveOr(id int, group, item, def string) string
}

// Table is a parsed override document: one entry per provider, indexed by
// id-1, mapping group -> item -> value.
type Table []map[string]map[string]string

// Resolve implements Overrides.
func (t Table) Resolve(id int, group, item string) string {
	return t.ResolveOr(id, group, item, item)
}

// ResolveOr implements Overrides.
func (t Table) ResolveOr(id int, group, item, def string) string {
	idx := id - 1
	if idx < 0 || idx >= len(t) {
		return def
	}
	if value, ok := t[idx][group][item]; ok {
		return value
	}
	return def
}

type overrideDocument struct {
	Providers []map[string]map[string]json.RawMessage `json:"providers"`
}

// ParseTable parses the provider override document. String values are
// used as-is; numbers, booleans and objects keep their JSON text; nulls
// count as missing.
func ParseTable(data []byte) (Table, error) {
	var doc overrideDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigUnavailable, err)
	}

	table := make(Table, len(doc.Providers))
	for i, groups := range doc.Providers {
		table[i] = make(map[string]map[string]string, len(groups))
		for group, items := range groups {
			values := make(map[string]string, len(items))
			for item, raw := range items {
				raw = bytes.TrimSpace(raw)
				if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
					continue
				}
				if raw[0] == '"' {
					var s string
					if err := json.Unmarshal(raw, &s); err != nil {
						return nil, fmt.Errorf("%w: providers[%d].%s.%s: %v", common.ErrConfigUnavailable, i, group, item, err)
					}
					values[item] = s
					continue
				}
				var compact bytes.Buffer
				if err := json.Compact(&compact, raw); err != nil {
					values[item] = string(raw)
					continue
				}
				values[item] = compact.String()
			}
			table[i][group] = values
		}
	}
	return table, nil
}

// OverrideStore reads the provider override document from disk. Without
// Watch the document is re-read on every resolution; with Watch the parsed
// table is cached until the file changes. An unreadable or malformed
// document never fails a resolution: every item falls back to its default.
type OverrideStore struct {
	path string
	log  common.Logger

	mu      sync.RWMutex
	table   Table
	cached  bool
	gen     uint64
	loads   singleflight.Group
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
}

// NewOverrideStore creates a store for the document at path.
func NewOverrideStore(path string, logger common.Logger) *OverrideStore {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &OverrideStore{
		path: filepath.Clean(path),
		log:  logger,
	}
}

// Path returns the document location.
func (s *OverrideStore) Path() string {
	return s.path
}

// Resolve implements Overrides.
func (s *OverrideStore) Resolve(id int, group, item string) string {
	return s.Table().Resolve(id, group, item)
}

// ResolveOr implements Overrides.
func (s *OverrideStore) ResolveOr(id int, group, item, def string) string {
	return s.Table().ResolveOr(id, group, item, def)
}

// Table returns the current override table, loading it if needed. It
// returns an empty table when the document is unavailable.
func (s *OverrideStore) Table() Table {
	s.mu.RLock()
	if s.cached {
		t := s.table
		s.mu.RUnlock()
		return t
	}
	watching := s.watcher != nil
	gen := s.gen
	s.mu.RUnlock()

	v, _, _ := s.loads.Do("load", func() (interface{}, error) {
		t, err := s.load()
		if err != nil {
			s.log.Warn("Provider overrides unavailable, using defaults: %v", err)
		}
		if watching {
			s.mu.Lock()
			// an invalidation during the read leaves the cache empty
			if s.gen == gen {
				s.table = t
				s.cached = true
			}
			s.mu.Unlock()
		}
		return t, nil
	})
	return v.(Table)
}

// Load reads and parses the document, reporting why it is unavailable.
func (s *OverrideStore) Load() (Table, error) {
	return s.load()
}

func (s *OverrideStore) load() (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", common.ErrConfigUnavailable, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

// Invalidate drops the cached table; the next resolution re-reads the file.
func (s *OverrideStore) Invalidate() {
	s.mu.Lock()
	s.cached = false
	s.table = nil
	s.gen++
	s.mu.Unlock()
	s.log.Debug("Provider overrides invalidated")
}

// Watch enables caching and invalidates the cache whenever the document is
// written, created, renamed or removed. The containing directory is watched
// so editors that replace the file are noticed.
func (s *OverrideStore) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		fsw.Close()
		return err
	}

	s.watcher = fsw
	s.done = make(chan struct{})
	s.cached = false
	go s.run(fsw, s.done)
	return nil
}

func (s *OverrideStore) run(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.scheduleInvalidate()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			s.log.Warn("Provider overrides watcher: %v", err)

		case <-done:
			return
		}
	}
}

// scheduleInvalidate debounces bursts of file events.
func (s *OverrideStore) scheduleInvalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(common.OverrideReloadDebounce, s.Invalidate)
}

// Close stops watching. The store keeps working, re-reading on every call.
func (s *OverrideStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	s.cached = false
	s.table = nil
	if s.timer != nil {
		s.timer.Stop()
	}
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}
