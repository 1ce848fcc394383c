package biz

import (
	"context"
	"io"
	"time"
)

// Image represents one processed upload: the original object, its
// optimized counterpart, and the recorded sizes.
type Image struct {
	ID               string
	OriginalFilename string
	OriginalPath     string
	OptimizedPath    string
	ContentType      string
	OriginalSize     int64
	OptimizedSize    int64
	OptimizedAt      time.Time
	UserID           *string
	CreditsUsed      *int64
	ExpiresAt        *time.Time
	CreatedAt        time.Time
}

// ImageRepo defines the interface for image metadata persistence
type ImageRepo interface {
	// Create inserts one metadata row
	Create(ctx context.Context, img *Image) error
	// CreateWithCreditDebit inserts the row and debits one credit from
	// the user in a single transaction. Returns an insufficient-credits
	// error and persists nothing when the balance is below 1.
	CreateWithCreditDebit(ctx context.Context, img *Image, userID string) error
	GetByID(ctx context.Context, id string) (*Image, error)
	List(ctx context.Context, userID string, offset, limit int) ([]*Image, int64, error)
	// ListExpired returns rows whose expires_at is before the cutoff
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]*Image, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStorage defines the interface for blob persistence. Keys are
// written once and never updated in place.
type ObjectStorage interface {
	// Upload stores data under key with no-overwrite semantics
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Download returns a reader for the object; caller closes it
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	// PublicURL returns the durable, publicly reachable URL for a key
	PublicURL(key string) string
}
