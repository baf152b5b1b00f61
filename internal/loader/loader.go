// Package loader turns a table source into the typed student Dataset and
// memoizes the result per source content.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/domain/query"
	"gradelens/internal"
	"gradelens/internal/analysis"
	"gradelens/internal/metrics"
	"gradelens/ports"
)

// Load reads src, types it under the student schema and derives the bin
// columns and Pass_Status. Specs whose source column is absent from the
// file are skipped.
func Load(ctx context.Context, src ports.TableSource, specs []query.BinSpec) (*dataset.Dataset, error) {
	table, err := src.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := dataset.Build(table.Header, table.Rows, dataset.StudentColumns())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table.Name, err)
	}

	applicable := make([]query.BinSpec, 0, len(specs))
	for _, spec := range specs {
		if !ds.Schema().Has(spec.Source) {
			internal.DefaultLogger.Component("loader").Warn("skipping bins %s: %s not in %s", spec.Target, spec.Source, table.Name)
			continue
		}
		applicable = append(applicable, spec)
	}
	if ds, err = analysis.Bin(ds, applicable...); err != nil {
		return nil, err
	}
	return ds.WithDerivedColumn(dataset.PassStatusColumn(), dataset.PassStatus)
}

// Cache memoizes Load by source identity for the life of the process.
// Failed loads are not cached.
type Cache struct {
	specs  []query.BinSpec
	logger *internal.Logger

	mu      sync.RWMutex
	entries map[core.Hash]*dataset.Dataset
	flight  singleflight.Group
}

// NewCache creates a cache that derives columns with specs
func NewCache(specs []query.BinSpec, logger *internal.Logger) *Cache {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Cache{
		specs:   specs,
		logger:  logger.Component("loader"),
		entries: make(map[core.Hash]*dataset.Dataset),
	}
}

// Load returns the Dataset for src and the identity it is cached under.
// Concurrent loads of the same identity share one parse. The shared parse
// is detached from ctx, so a caller that gives up returns ctx's error
// without failing the others.
func (c *Cache) Load(ctx context.Context, src ports.TableSource) (*dataset.Dataset, core.Hash, error) {
	id, err := src.Identity(ctx)
	if err != nil {
		return nil, "", err
	}

	c.mu.RLock()
	ds, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		metrics.RecordCacheLookup(metrics.CacheHit)
		c.logger.Trace("cache hit %s", id.Short())
		return ds, id, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(id.String(), func() (interface{}, error) {
		start := time.Now()
		ds, err := Load(detached, src, c.specs)
		metrics.RecordLoad(err)
		if err != nil {
			c.logger.Warn("load %s failed: %v", id.Short(), err)
			return nil, err
		}

		c.mu.Lock()
		c.entries[id] = ds
		c.mu.Unlock()

		c.logger.Info("loaded %s: %d rows, %d columns in %s", id.Short(), ds.Len(), ds.Schema().Len(), time.Since(start).Round(time.Millisecond))
		return ds, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		metrics.RecordCacheLookup(metrics.CacheShared)
	} else {
		metrics.RecordCacheLookup(metrics.CacheMiss)
	}
	if res.Err != nil {
		return nil, "", res.Err
	}
	return res.Val.(*dataset.Dataset), id, nil
}

// Len returns the number of cached datasets
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
