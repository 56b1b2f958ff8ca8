package filestorage

import (
	"context"
	"io"
	"time"
)

// ArtifactInfo represents information about a stored artifact
type ArtifactInfo struct {
	Ref     string    // Generated artifact name (token + extension)
	Size    int64     // Size in bytes
	ModTime time.Time // Last modification time, used for the orphan grace period
}

// ArtifactStore defines the storage operations for uploaded binaries.
// Artifacts are addressed by a generated ref that is independent of the uploaded filename.
type ArtifactStore interface {
	// Store persists content under a fresh ref, keeping originalName's extension
	Store(ctx context.Context, content io.Reader, originalName string) (string, error)

	// Remove deletes an artifact. Removing an absent artifact is not an error
	Remove(ctx context.Context, ref string) error

	// Exists reports whether an artifact is present
	Exists(ctx context.Context, ref string) (bool, error)

	// List returns every stored artifact
	List(ctx context.Context) ([]ArtifactInfo, error)
}
