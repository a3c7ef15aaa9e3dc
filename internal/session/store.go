// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"time"
)

// Store records which session IDs are authorized. Implementations are safe
// for concurrent use.
type Store interface {
	// Put marks id as authorized for ttl.
	Put(ctx context.Context, id string, ttl time.Duration) error
	// Exists reports whether id is authorized and not expired.
	Exists(ctx context.Context, id string) (bool, error)
	// Delete revokes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	// Len returns the number of live sessions.
	Len(ctx context.Context) (int, error)
	// Close releases background resources.
	Close() error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}
