package port

import (
	"context"
	"io"
)

// FileStorage defines file storage operations
type FileStorage interface {
	// SaveUpload stores an uploaded file and returns its stored path
	SaveUpload(ctx context.Context, originalName string, r io.Reader) (string, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
	Delete(ctx context.Context, path string) error
}
