package io

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/wisdom/pkg/loader"
)

// IOModelSource reads model documents from the local filesystem with caching.
type IOModelSource struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewIOModelSource creates a new filesystem-based model source.
func NewIOModelSource() *IOModelSource {
	return &IOModelSource{
		cache: make(map[string][]byte),
	}
}

// GetModelBytes reads the document from disk. Results are cached per
// CacheKey, so a changed file needs a new ID to be re-read.
func (l *IOModelSource) GetModelBytes(ctx context.Context, file loader.ModelFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = content
		l.cacheMu.Unlock()

		return content, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
