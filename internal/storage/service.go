// Package storage keeps member photos in an S3-compatible object store
// (MinIO in development, any S3 endpoint behind a CDN in production).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/dating-api/internal/config"
	"github.com/dating-api/internal/models"
)

// ErrUpstream reports that the object store failed or is being shed by the
// circuit breaker.
const ErrUpstream = Error("image store unavailable")

type Error string

func (e Error) Error() string {
	return string(e)
}

const purgeAttempts = 2

// minioAPI is the part of *minio.Client the service uses.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Service struct {
	api     minioAPI
	bucket  string
	baseURL string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

func NewService(cfg config.StorageConfig, log logrus.FieldLogger) (*Service, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return newService(client, cfg, log), nil
}

func newService(api minioAPI, cfg config.StorageConfig, log logrus.FieldLogger) *Service {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	minRequests := cfg.Breaker.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRatio := cfg.Breaker.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}

	st := gobreaker.Settings{
		Name:        "ImageStore",
		MaxRequests: 1,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &Service{
		api:     api,
		bucket:  cfg.MinIO.BucketName,
		baseURL: publicBaseURL(cfg.MinIO),
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker(st),
		log:     log,
	}
}

func publicBaseURL(cfg config.MinIOConfig) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.BucketName)
}

// EnsureBucket creates the photo bucket with anonymous read access if it
// does not exist yet.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket exists: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	if err := s.api.SetBucketPolicy(ctx, s.bucket, readOnlyPolicy(s.bucket)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}

	s.log.WithField("bucket", s.bucket).Info("Created photo bucket")
	return nil
}

func readOnlyPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// Upload stores an image under users/<userID>/ and returns where it can be
// fetched and the identifier needed to purge it.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (models.Asset, error) {
	key := objectKey(userID, filename)

	err := s.execute(ctx, func(ctx context.Context) error {
		_, err := s.api.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	})
	if err != nil {
		return models.Asset{}, fmt.Errorf("%w: upload %s: %v", ErrUpstream, key, err)
	}

	return models.Asset{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

// Purge removes an uploaded image. Removal is idempotent, so a failed
// attempt is retried once.
func (s *Service) Purge(ctx context.Context, publicID string) error {
	var err error
	for attempt := 1; attempt <= purgeAttempts; attempt++ {
		err = s.execute(ctx, func(ctx context.Context) error {
			return s.api.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{})
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
			break
		}

		s.log.WithError(err).WithFields(logrus.Fields{
			"public_id": publicID,
			"attempt":   attempt,
		}).Warn("Failed to purge image")
	}

	return fmt.Errorf("%w: purge %s: %v", ErrUpstream, publicID, err)
}

// State is the circuit breaker state, reported by the health endpoint.
func (s *Service) State() string {
	return s.breaker.State().String()
}

func (s *Service) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, fn(ctx)
	})
	return err
}

func objectKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("users/%s/%s%s", userID, uuid.New(), ext)
}
