package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/fatmadali94/rierco-laboratories-sub001/internal/model"
)

// Config carries the object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// ObjectStore persists message attachments and returns a descriptor
// carrying the public URL the message body will embed.
type ObjectStore interface {
	Upload(ctx context.Context, reader io.Reader, fileName string, size int64, contentType string) (*model.FileInfo, error)
}

type minioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    *zap.Logger
}

func NewMinioStore(cfg Config, logger *zap.Logger) (ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &minioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		logger:    logger,
	}, nil
}

func (s *minioStore) Upload(ctx context.Context, reader io.Reader, fileName string, size int64, contentType string) (*model.FileInfo, error) {
	// Random prefix keeps colliding filenames apart without touching
	// the original name the UI displays.
	objectName := uuid.New().String() + path.Ext(fileName)

	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("attachment upload failed",
			zap.String("file_name", fileName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	s.logger.Info("attachment uploaded",
		zap.String("object", objectName),
		zap.Int64("size", info.Size),
	)

	return &model.FileInfo{
		URL:      fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName),
		FileName: fileName,
		FileSize: info.Size,
		MimeType: contentType,
	}, nil
}
