package services

import (
	"context"
	"fmt"

	objectclient "github.com/markdave123-py/Conversa/internal/core/object-client"
	"github.com/markdave123-py/Conversa/internal/core/platform"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
)

// FileImportService reads a staged blob back from object storage and
// registers it with the assistant platform's file store.
type FileImportService struct {
	objects  objectclient.ObjectClient
	platform platform.Adapter
	bucket   string
	log      logger.ILogger
}

func NewFileImportService(objects objectclient.ObjectClient, p platform.Adapter, bucket string, log logger.ILogger) *FileImportService {
	return &FileImportService{objects: objects, platform: p, bucket: bucket, log: log}
}

// Import fetches the object at key and returns the platform file handle.
func (s *FileImportService) Import(ctx context.Context, key, filename, contentType string, category models.FileCategory) (models.FileHandle, error) {
	data, err := s.objects.GetFile(ctx, s.bucket, key)
	if err != nil {
		return models.FileHandle{}, fmt.Errorf("read staged object %s: %w", key, err)
	}

	handle, err := s.platform.ImportFile(ctx, platform.ImportRequest{
		Filename:    filename,
		ContentType: contentType,
		Category:    category,
		Data:        data,
	})
	if err != nil {
		return models.FileHandle{}, fmt.Errorf("register file %s with platform: %w", filename, err)
	}

	s.log.Info("importer", "file imported", map[string]interface{}{
		"key":     key,
		"file_id": handle.ID,
		"bytes":   len(data),
	})
	return handle, nil
}
