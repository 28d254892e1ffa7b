// Package s3 зеркалирует сохраненные файлы в S3-совместимое хранилище.
package s3

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"dcefetch/internal/config"
	"dcefetch/internal/infrastructure/retry"
)

// PutObjectAPI — часть клиента S3, нужная зеркалу
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror загружает файлы в бакет под заданным префиксом
type Mirror struct {
	client PutObjectAPI
	bucket string
	prefix string
	retry  retry.Config
	logger *zap.Logger
}

// New создает зеркало с клиентом AWS SDK
func New(ctx context.Context, cfg config.S3Config, retryCfg retry.Config, logger *zap.Logger) (*Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("S3 mirror initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region))

	return NewWithClient(client, cfg.Bucket, cfg.Prefix, retryCfg, logger), nil
}

// NewWithClient создает зеркало с готовым клиентом
func NewWithClient(client PutObjectAPI, bucket, prefix string, retryCfg retry.Config, logger *zap.Logger) *Mirror {
	return &Mirror{
		client: client,
		bucket: bucket,
		prefix: prefix,
		retry:  retryCfg,
		logger: logger.With(zap.String("component", "s3_mirror")),
	}
}

// Key возвращает ключ объекта для локального файла
func (m *Mirror) Key(localPath string) string {
	name := filepath.Base(localPath)
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Upload загружает файл; каждая попытка заново открывает файл
func (m *Mirror) Upload(ctx context.Context, localPath string) (string, error) {
	key := m.Key(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := retry.WithRetry(ctx, m.logger, m.retry, "s3 upload", func(ctx context.Context) error {
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", localPath, err)
		}
		defer file.Close()

		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        file,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to put object: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("File mirrored", zap.String("bucket", m.bucket), zap.String("key", key))
	return key, nil
}
