// Package storage archives generated assets to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/mfenderov/contentloop/pkg/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for asset archival.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{minioClient: minioClient, bucket: config.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// AssetMetadata is stored next to each archived asset body.
type AssetMetadata struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Format    string `json:"format"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// AssetPrefix returns the object prefix for a tenant's assets on a given day.
func AssetPrefix(userID string, createdAt time.Time) string {
	return path.Join("assets", userID, createdAt.UTC().Format("2006-01-02"))
}

// AssetKey returns the object name of an asset's markdown body.
func AssetKey(a models.Asset) string {
	return path.Join(AssetPrefix(a.UserID, a.CreatedAt), a.ID+".md")
}

// PutAsset writes the asset body as markdown and its metadata as JSON.
// It returns the markdown object key.
func (c *Client) PutAsset(ctx context.Context, a models.Asset) (string, error) {
	key := AssetKey(a)

	body := a.Content
	if a.Title != "" && !strings.HasPrefix(body, "# ") {
		body = "# " + a.Title + "\n\n" + body
	}
	if err := c.put(ctx, key, []byte(body), "text/markdown"); err != nil {
		return "", fmt.Errorf("failed to put asset: %w", err)
	}

	meta := AssetMetadata{
		ID:        a.ID,
		UserID:    a.UserID,
		Format:    a.Format,
		Type:      string(a.Type),
		Title:     a.Title,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metaKey := strings.TrimSuffix(key, ".md") + ".json"
	if err := c.put(ctx, metaKey, data, "application/json"); err != nil {
		return "", fmt.Errorf("failed to put metadata: %w", err)
	}
	return key, nil
}

func (c *Client) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.minioClient.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// ListAssetKeys returns the markdown object keys archived for a tenant.
func (c *Client) ListAssetKeys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    path.Join("assets", userID) + "/",
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ".md") {
			keys = append(keys, object.Key)
		}
	}
	return keys, nil
}

// GetObject reads an archived object.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := c.minioClient.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
