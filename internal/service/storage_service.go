package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/util"
	"worksheet_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

var ErrInvalidObjectKey = errors.New("invalid object key")

// ObjectStore 归档文件的存放位置，返回可访问的 URL
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// cleanKey 只允许相对路径，拒绝 ".." 越出根目录
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(key, "\\", "/")), "/")
	if key == "" || key == "." {
		return "", ErrInvalidObjectKey
	}
	return key, nil
}

// LocalStore 写入本地目录，通过 /uploads 静态路由访问
type LocalStore struct {
	Root string
}

func (s *LocalStore) Name() string { return util.StorageLocal }

// Put 先写临时文件再 rename，避免读到半个文件
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return "/uploads/" + key, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MinioStore MinIO 存储
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 桶不存在时自动创建
func NewMinioStore(cfg *config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinioBucket, err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *MinioStore) Name() string { return util.StorageMinio }

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return "/" + s.bucket + "/" + key, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// OSSStore 阿里云 OSS 存储
type OSSStore struct {
	bucket   *oss.Bucket
	endpoint string
}

func NewOSSStore(cfg *config.StorageConfig) (*OSSStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStore{bucket: bucket, endpoint: cfg.OSSEndpoint}, nil
}

func (s *OSSStore) Name() string { return util.StorageOSS }

func (s *OSSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := s.bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket.BucketName, s.endpoint, key), nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return s.bucket.DeleteObject(key, oss.WithContext(ctx))
}

// StorageService 组卷结果归档；远端存储不可用时退回本地目录
type StorageService struct {
	store ObjectStore
}

func NewStorageService(cfg *config.Config) *StorageService {
	var store ObjectStore
	switch cfg.Storage.Type {
	case util.StorageMinio:
		s, err := NewMinioStore(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("MinIO unavailable, falling back to local storage", zap.Error(err))
			break
		}
		store = s
	case util.StorageOSS:
		s, err := NewOSSStore(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("OSS unavailable, falling back to local storage", zap.Error(err))
			break
		}
		store = s
	}

	if store == nil {
		store = &LocalStore{Root: cfg.Storage.LocalPath}
	}
	logger.Log.Info("Archive storage ready", zap.String("backend", store.Name()))
	return &StorageService{store: store}
}

// Backend 实际使用的存储类型
func (s *StorageService) Backend() string {
	return s.store.Name()
}

// ArchiveKey 按创建日期分目录
func ArchiveKey(id string, createdAt time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", util.ArchivePrefix, createdAt.Format("2006/01/02"), id)
}

// UploadJSON 上传已序列化的 JSON 文档
func (s *StorageService) UploadJSON(ctx context.Context, key string, data []byte) (string, error) {
	return s.store.Put(ctx, key, data, util.MimeJSON)
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}
