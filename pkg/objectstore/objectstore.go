// Package objectstore issues scoped write URLs for vendor uploads and verifies
// that uploaded objects landed where they were expected.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Oldane-PM/VendorPlatformv1.0-sub000/pkg/config"
)

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// PresignedRequest describes a single-object write the client may perform.
type PresignedRequest struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is implemented by every storage driver the gateway supports.
type Store interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (*PresignedRequest, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
}

// New builds the driver selected by cfg.Driver. sinkURL is the public base of the
// local upload sink route and is ignored by remote drivers.
func New(cfg config.ObjectStoreConfig, sinkURL string) (Store, error) {
	switch cfg.Driver {
	case config.ObjectStoreS3:
		return NewS3Store(cfg)
	case config.ObjectStoreLocal, "":
		return NewLocalStore(cfg.LocalDir, cfg.Bucket, cfg.LocalSigningSecret, sinkURL)
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.Driver)
	}
}
