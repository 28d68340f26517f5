package snapshots

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vigil-worker-go/internal/config"
)

// Uploader stores annotated alert frames in an S3-compatible bucket
type Uploader struct {
	client *minio.Client
	bucket string
	clock  func() time.Time

	mu          sync.Mutex
	bucketReady bool
}

func NewUploader(cfg *config.Config) (*Uploader, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.AWSRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Uploader{client: client, bucket: cfg.MinioBucket, clock: time.Now}, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.bucketReady {
		return nil
	}
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	u.bucketReady = true
	return nil
}

// Upload writes the JPEG under a date-partitioned key and returns its URL
func (u *Uploader) Upload(ctx context.Context, alertID string, jpeg []byte) (string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("bucket error: %w", err)
	}

	objectName := ObjectName(alertID, u.clock())
	_, err := u.client.PutObject(ctx, u.bucket, objectName,
		bytes.NewReader(jpeg), int64(len(jpeg)),
		minio.PutObjectOptions{ContentType: "image/jpeg"},
	)
	if err != nil {
		return "", fmt.Errorf("upload error: %w", err)
	}

	endpoint := u.client.EndpointURL()
	return fmt.Sprintf("%s://%s/%s/%s", endpoint.Scheme, endpoint.Host, u.bucket, objectName), nil
}

// ObjectName returns the object key for an alert snapshot
func ObjectName(alertID string, at time.Time) string {
	return path.Join("alerts", at.UTC().Format("2006/01/02"), alertID+".jpg")
}
