package assetstore

import (
	"context"
	"time"
)

// Asset is one cached slide illustration. Entries are written once per id
// and never expire; regeneration requires a new id.
type Asset struct {
	ID        string
	MIME      string
	Data      []byte
	CreatedAt time.Time
}

// Store is the image asset cache shared across lesson sessions.
//
// Get never fails its caller: storage errors degrade to a miss so a broken
// cache only forces regeneration, it never blocks playback. Put is
// best-effort: a failed write is logged and swallowed, since the caller
// already holds the generated payload for this session.
type Store interface {
	Get(ctx context.Context, id string) (Asset, bool)
	Put(ctx context.Context, asset Asset)
}
