// Package cache materializes rolling runs on disk, keyed by the full
// parameter tuple. A cached file is returned verbatim; a missing one is
// computed, published atomically and returned.
package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/cj-pipeline/darkfigure/sim"
)

// DefaultLRUSize is the number of tables kept in memory when none is configured.
const DefaultLRUSize = 16

// Origin tells where a Result came from.
type Origin string

const (
	OriginComputed Origin = "computed"
	OriginDisk     Origin = "disk"
	OriginMemory   Origin = "memory"
)

// ComputeFunc produces the rolling output for a parameter tuple.
type ComputeFunc func(ctx context.Context, params sim.Params) ([]sim.Person, error)

// Result is one materialized run. People is owned by the caller.
type Result struct {
	Params sim.Params
	Path   string
	Origin Origin
	People []sim.Person
}

// Stats counts how Get calls were served.
type Stats struct {
	MemoryHits uint64
	DiskHits   uint64
	Computed   uint64
}

// Gate is safe for concurrent use. Concurrent Gets for the same key compute once.
type Gate struct {
	dir     string
	compute ComputeFunc
	memo    *lru.Cache[string, []sim.Person]
	group   singleflight.Group

	memoryHits atomic.Uint64
	diskHits   atomic.Uint64
	computed   atomic.Uint64
}

// NewGate returns a gate rooted at dir. lruSize <= 0 disables the in-memory layer.
func NewGate(dir string, lruSize int, compute ComputeFunc) (*Gate, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if compute == nil {
		return nil, errors.New("compute func is required")
	}
	g := &Gate{dir: dir, compute: compute}
	if lruSize > 0 {
		memo, err := lru.New[string, []sim.Person](lruSize)
		if err != nil {
			return nil, fmt.Errorf("creating LRU: %w", err)
		}
		g.memo = memo
	}
	return g, nil
}

// Path returns the cache file of params.
func (g *Gate) Path(params sim.Params) string {
	return filepath.Join(g.dir, params.CacheKey())
}

// Stats returns a snapshot of the hit counters.
func (g *Gate) Stats() Stats {
	return Stats{
		MemoryHits: g.memoryHits.Load(),
		DiskHits:   g.diskHits.Load(),
		Computed:   g.computed.Load(),
	}
}

// Get returns the rolling output of params, computing and persisting it on a miss.
// Nothing is written unless the computation succeeds.
func (g *Gate) Get(ctx context.Context, params sim.Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	key := params.CacheKey()
	path := g.Path(params)

	if people, ok := g.lookup(key); ok {
		g.memoryHits.Add(1)
		logrus.Debugf("cache memory hit %s", key)
		return &Result{Params: params, Path: path, Origin: OriginMemory, People: sim.ClonePeople(people)}, nil
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		if people, ok := g.lookup(key); ok {
			return &Result{Origin: OriginMemory, People: people}, nil
		}
		people, err := Load(path)
		if err == nil {
			logrus.Infof("Cache hit %s", path)
			g.remember(key, people)
			return &Result{Origin: OriginDisk, People: people}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		logrus.Infof("Cache miss %s, computing", path)
		people, err = g.compute(ctx, params)
		if err != nil {
			return nil, err
		}
		if err := Store(path, people); err != nil {
			return nil, err
		}
		logrus.Infof("Wrote %d rows to %s", len(people), path)
		g.remember(key, people)
		return &Result{Origin: OriginComputed, People: people}, nil
	})
	if err != nil {
		return nil, err
	}
	shared, ok := v.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected type from cache group: got %T", v)
	}
	switch shared.Origin {
	case OriginMemory:
		g.memoryHits.Add(1)
	case OriginDisk:
		g.diskHits.Add(1)
	case OriginComputed:
		g.computed.Add(1)
	}
	return &Result{Params: params, Path: path, Origin: shared.Origin, People: sim.ClonePeople(shared.People)}, nil
}

func (g *Gate) lookup(key string) ([]sim.Person, bool) {
	if g.memo == nil {
		return nil, false
	}
	return g.memo.Get(key)
}

func (g *Gate) remember(key string, people []sim.Person) {
	if g.memo != nil {
		g.memo.Add(key, people)
	}
}

// Load reads a cached table. A missing file yields an error wrapping fs.ErrNotExist.
func Load(path string) ([]sim.Person, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	people, err := ReadTable(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return people, nil
}

// Store publishes a table at path atomically: it is written to a temporary
// file in the same directory, synced and renamed into place.
func Store(path string, people []sim.Person) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := WriteTable(w, people); err != nil {
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	return nil
}
