package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"autotube/internal/logging"
	"autotube/internal/services"
	"autotube/internal/stage"
)

// PresignExpiry is how long a presigned link stays valid.
const PresignExpiry = 7 * 24 * time.Hour

// MinIOConfig holds S3-compatible storage settings.
type MinIOConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
}

// ObjectClient is the subset of *minio.Client the publisher uses.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// ObjectStore publishes by copying the video into a bucket.
type ObjectStore struct {
	cfg    MinIOConfig
	client ObjectClient
	logger *slog.Logger
}

// NewMinIO connects to the configured endpoint. Without keys the publisher
// is still returned and every upload soft-skips.
func NewMinIO(cfg MinIOConfig, logger *slog.Logger) (*ObjectStore, error) {
	store := &ObjectStore{cfg: cfg, logger: logging.NewComponentLogger(logger, "minio")}
	if !cfg.configured() {
		return store, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connection: %w", err)
	}
	store.client = client
	return store, nil
}

// NewObjectStore wraps an existing client.
func NewObjectStore(cfg MinIOConfig, client ObjectClient, logger *slog.Logger) *ObjectStore {
	return &ObjectStore{cfg: cfg, client: client, logger: logging.NewComponentLogger(logger, "minio")}
}

func (c MinIOConfig) configured() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != ""
}

// ObjectKey is where a job's video is stored in the bucket.
func ObjectKey(jobID string) string {
	return path.Join(jobID, "video.mp4")
}

// Publish implements stage.Publisher.
func (s *ObjectStore) Publish(ctx context.Context, req stage.PublishRequest) (stage.PublishResult, error) {
	if s.client == nil {
		return stage.PublishResult{}, services.Wrap(services.ErrNoCredentials, "minio", "",
			"set minio endpoint, access_key and secret_key to upload", nil)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return stage.PublishResult{}, err
	}
	key := ObjectKey(req.JobID)
	info, err := s.client.FPutObject(ctx, s.cfg.Bucket, key, req.Video.Path, minio.PutObjectOptions{
		ContentType: "video/mp4",
		UserMetadata: map[string]string{
			"title":      VideoTitle(req.Title, req.Topic),
			"visibility": string(req.Visibility),
		},
	})
	if err != nil {
		return stage.PublishResult{}, classifyObjectError("put object", err)
	}

	link, err := s.objectURL(ctx, key)
	if err != nil {
		return stage.PublishResult{}, err
	}
	logging.WithContext(ctx, s.logger).Info("video stored",
		logging.String("bucket", s.cfg.Bucket),
		logging.String("object", key),
		logging.Any("size_bytes", info.Size),
	)
	return stage.PublishResult{URL: link}, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return classifyObjectError("check bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return classifyObjectError("create bucket", err)
	}
	return nil
}

func (s *ObjectStore) objectURL(ctx context.Context, key string) (string, error) {
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + path.Join(s.cfg.Bucket, key), nil
	}
	signed, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, PresignExpiry, nil)
	if err != nil {
		return "", classifyObjectError("presign", err)
	}
	return signed.String(), nil
}

func classifyObjectError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied" || resp.Code == "InvalidAccessKeyId" || resp.Code == "SignatureDoesNotMatch":
		return services.Wrap(services.ErrRejected, "minio", operation, "access denied", err)
	case isRejection(resp.StatusCode):
		return services.Wrap(services.ErrRejected, "minio", operation, resp.Code, err)
	}
	return services.Wrap(services.ErrExternalTool, "minio", operation, "", err)
}
