package filestorage

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidPath is returned for empty keys or keys escaping the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// SignedURL is a time-limited link to a stored object
type SignedURL struct {
	URL       string    `json:"signedUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// URLSigner issues links to objects in the document bucket
type URLSigner interface {
	// SignURL returns a link to the object stored under path
	SignURL(ctx context.Context, path string) (*SignedURL, error)
}
