// Package blob abstracts the external object store used for message
// attachments. Upload paths are namespaced by uploader identity plus a
// random component, so every upload lands on a unique path and no locking
// is needed.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Store is the blob store contract.
type Store interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PublicURL(path string) string
}

// ObjectPath builds the collision-free storage path for an upload.
func ObjectPath(uploaderID, fileName string) string {
	name := strings.ReplaceAll(fileName, "/", "_")
	return fmt.Sprintf("%s/%s-%s", uploaderID, uuid.NewString(), name)
}
