package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resumeRender/internal/config"
)

// DocumentPrefix 是渲染结果在 Bucket 中的目录。
const DocumentPrefix = "generated-resumes/"

const pdfContentType = "application/pdf"

// Client 封装 MinIO 客户端：internalClient 用于读写，publicClient 仅用于签发对外下载链接。
type Client struct {
	internalClient *minio.Client
	publicClient   *minio.Client
	bucketName     string
}

// ObjectMeta 描述 Bucket 中对象的关键信息。
type ObjectMeta struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// DocumentObjectKey 返回任务对应的 PDF 对象路径。
func DocumentObjectKey(jobID string) string {
	return DocumentPrefix + jobID + ".pdf"
}

// NewClient 根据配置初始化 MinIO 客户端，并确保目标 Bucket 存在。
func NewClient(ctx context.Context, cfg config.MinIOConfig) (*Client, error) {
	bucketLookup, err := parseBucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}

	internalClient, err := newMinio(cfg.Endpoint, cfg.UseSSL, cfg, bucketLookup)
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	publicEndpoint, err := url.Parse(cfg.PublicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if publicEndpoint.Host == "" {
		return nil, fmt.Errorf("invalid minio public endpoint, host missing")
	}

	publicClient, err := newMinio(publicEndpoint.Host, publicEndpoint.Scheme == "https", cfg, bucketLookup)
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}

	c := &Client{
		internalClient: internalClient,
		publicClient:   publicClient,
		bucketName:     cfg.Bucket,
	}
	if err := c.ensureBucket(ctx, cfg.Region, cfg.AutoCreateBucket); err != nil {
		return nil, err
	}
	return c, nil
}

func parseBucketLookup(value string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	default:
		return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", value)
	}
}

func newMinio(endpoint string, secure bool, cfg config.MinIOConfig, lookup minio.BucketLookupType) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
}

func (c *Client) ensureBucket(ctx context.Context, region string, autoCreate bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := c.internalClient.BucketExists(ctx, c.bucketName)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", c.bucketName, err)
	}
	if exists {
		return nil
	}
	if !autoCreate {
		return fmt.Errorf("bucket %q does not exist (auto create disabled)", c.bucketName)
	}
	if err := c.internalClient.MakeBucket(ctx, c.bucketName, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", c.bucketName, err)
	}
	return nil
}

// UploadDocument 将 PDF 上传到私有 Bucket。
func (c *Client) UploadDocument(ctx context.Context, objectKey string, data []byte) (*minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{ContentType: pdfContentType}
	info, err := c.internalClient.PutObject(ctx, c.bucketName, objectKey, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectKey, err)
	}
	return &info, nil
}

// StatObject 读取对象元数据；对象不存在时返回的错误满足 IsNoSuchKey。
func (c *Client) StatObject(ctx context.Context, objectKey string) (*ObjectMeta, error) {
	info, err := c.internalClient.StatObject(ctx, c.bucketName, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	return &ObjectMeta{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// PresignDownload 生成带下载文件名的限时链接。
func (c *Client) PresignDownload(ctx context.Context, objectKey string, ttl time.Duration, filename string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", AttachmentDisposition(filename))
	params.Set("response-content-type", pdfContentType)

	presignedURL, err := c.publicClient.PresignedGetObject(ctx, c.bucketName, objectKey, ttl, params)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", objectKey, err)
	}
	return presignedURL.String(), nil
}

// DeleteObject 删除指定对象，对象不存在视为成功。
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil
	}
	if err := c.internalClient.RemoveObject(ctx, c.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", objectKey, err)
	}
	return nil
}

// AttachmentDisposition builds a Content-Disposition value, falling back to
// resume.pdf for empty names.
func AttachmentDisposition(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = "resume.pdf"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
