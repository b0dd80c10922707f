package assetstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps assets in process memory only. It backs deployments
// without a writable disk and keeps tests off the filesystem; entries live
// for the lifetime of the process.
type MemoryStore struct {
	cache *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Asset, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return Asset{}, false
	}
	asset, ok := v.(Asset)
	return asset, ok
}

func (s *MemoryStore) Put(_ context.Context, asset Asset) {
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}
	s.cache.Set(asset.ID, asset, gocache.NoExpiration)
}
