package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrObjectNotFound = errors.New("object not found in storage")

// allowedVideoTypes maps accepted upload content types to file extensions.
var allowedVideoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// FileStorage stores exercise demonstration videos.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// ObjectExists returns ErrObjectNotFound when nothing was uploaded under objectKey.
	ObjectExists(ctx context.Context, objectKey string) error

	DeleteObject(ctx context.Context, objectKey string) error
}

// VideoObjectKey builds a fresh key for a variant's demo video, e.g.
// "exercise-videos/<variantID>/<uuid>.mp4".
func VideoObjectKey(variantID primitive.ObjectID, contentType string) (string, error) {
	ext, ok := allowedVideoTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("unsupported video content type %q", contentType)
	}
	return path.Join("exercise-videos", variantID.Hex(), uuid.NewString()+ext), nil
}

// IsVideoKeyFor reports whether key was issued by VideoObjectKey for variantID.
func IsVideoKeyFor(variantID primitive.ObjectID, key string) bool {
	return strings.HasPrefix(key, path.Join("exercise-videos", variantID.Hex())+"/")
}
