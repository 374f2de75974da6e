package storage

import "context"

// SnapshotPublisher pushes rendered bracket snapshots to object storage
// so microsites can serve them as static JSON without touching the
// engine's database.
type SnapshotPublisher interface {
	Publish(ctx context.Context, key, contentType string, body []byte) (string, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
