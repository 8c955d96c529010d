package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/model"
	"elearning_backend/internal/util"
	"elearning_backend/pkg/logger"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 课件存储后端
type StorageProvider interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
	GetURL(objectName string) string
}

type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, objectName string) error {
	err := os.Remove(filepath.Join(p.Root, filepath.FromSlash(objectName)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *LocalStorageProvider) GetURL(objectName string) string {
	return "/uploads/" + objectName
}

type MinioStorageProvider struct {
	Client *minio.Client
	Bucket string
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Client: client, Bucket: cfg.MinioBucket}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(objectName), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, objectName string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, objectName, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(objectName string) string {
	return "/" + p.Bucket + "/" + objectName
}

type StorageService struct {
	Provider StorageProvider
	Now      func() time.Time
}

// NewStorageService minio 初始化失败时回退到本地存储
func NewStorageService(cfg *config.StorageConfig) *StorageService {
	var provider StorageProvider
	if cfg.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(cfg)
		if err != nil {
			logger.L().Error("Failed to initialize minio storage, falling back to local", zap.Error(err))
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.LocalPath}
	}
	return &StorageService{Provider: provider, Now: time.Now}
}

// SaveLessonAsset 校验扩展名、大小并嗅探 MIME 类型后上传，返回附件描述
func (s *StorageService) SaveLessonAsset(ctx context.Context, lessonID, filename string, reader io.Reader, size int64) (*model.LessonAsset, error) {
	if err := util.ValidateExtension(filename, util.AllowedLessonAssetExtensions); err != nil {
		return nil, err
	}
	if size > util.MaxLessonAssetSize {
		return nil, util.NewValidation("file exceeds the %d MB limit", util.MaxLessonAssetSize>>20)
	}

	contentType, body, err := util.SniffContentType(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	objectName := util.SafeObjectName("lessons", lessonID, filename)
	url, err := s.Provider.Upload(ctx, objectName, body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", objectName, err)
	}

	return &model.LessonAsset{
		Name:       filepath.Base(objectName),
		URL:        url,
		Size:       size,
		MimeType:   contentType,
		UploadedAt: s.Now(),
	}, nil
}
