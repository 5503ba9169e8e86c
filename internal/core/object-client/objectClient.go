package objectclient

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error

	// PresignPut issues a time-limited URL a browser can PUT the blob to
	// directly. The content type is baked into the signature, so the caller
	// must send the same one.
	PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
}

// BuildKey namespaces staged objects as
// {prefix}/{userId}/{timestamp}-{random}-{sanitizedFilename}.
func BuildKey(prefix, userID, filename string) string {
	clean := sanitizeFilename(filename)
	rand := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s/%s/%d-%s-%s", prefix, userID, time.Now().Unix(), rand, clean)
}

// sanitizeFilename strips path components and characters that break keys.
func sanitizeFilename(name string) string {
	clean := filepath.Base(name)
	clean = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, clean)
	if clean == "" || clean == "." {
		clean = "upload.bin"
	}
	return clean
}
