// Package s3 implements the storage capability on an S3-compatible bucket
// (AWS S3 or MinIO). Folders are emulated with zero-byte marker objects.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/storage"
)

// Config describes the bucket backing a vault.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
}

// API is the subset of the S3 client the backend calls.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ storage.Provider = (*Backend)(nil)

// Backend implements storage.Provider on a bucket.
type Backend struct {
	client API
	bucket string
	prefix string
}

// New builds an S3 client from cfg and returns a backend using it.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient returns a backend over an existing client.
func NewWithClient(client API, bucket, prefix string) *Backend {
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// key maps a root-relative path to an object key, refusing paths that
// climb out of the prefix.
func (b *Backend) key(p string) (string, error) {
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("s3: absolute paths not allowed: %s", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("s3: path escapes root: %s", p)
		}
	}
	rel := strings.TrimPrefix(path.Clean("/"+p), "/")
	if b.prefix == "" {
		return rel, nil
	}
	if rel == "" {
		return b.prefix, nil
	}
	return b.prefix + "/" + rel, nil
}

func dirKey(k string) string {
	if k == "" {
		return ""
	}
	return k + "/"
}

func notFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func (b *Backend) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if notFound(err) {
		return false, nil
	}
	return false, err
}

// Mkdir writes a folder marker. Without recursive, an existing marker is
// reported as fs.ErrExist.
func (b *Backend) Mkdir(ctx context.Context, p string, recursive bool) error {
	k, err := b.key(p)
	if err != nil {
		return err
	}
	marker := dirKey(k)
	if marker == "" {
		return nil
	}
	if !recursive {
		ok, err := b.exists(ctx, marker)
		if err != nil {
			return fmt.Errorf("s3: mkdir %s: %w", p, err)
		}
		if ok {
			return fmt.Errorf("s3: mkdir %s: %w", p, fs.ErrExist)
		}
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(marker),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("s3: mkdir %s: %w", p, err)
	}
	return nil
}

// WriteFile uploads data under the key for p.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	k, err := b.key(p)
	if err != nil {
		return err
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(k),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("s3: write %s: %w", p, err)
	}
	return nil
}

// ReadFile downloads the object for p.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	k, err := b.key(p)
	if err != nil {
		return nil, err
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("s3: read %s: %w", p, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("s3: read %s: %w", p, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read %s: %w", p, err)
	}
	return data, nil
}

// Readdir lists the objects and sub-prefixes directly under p.
func (b *Backend) Readdir(ctx context.Context, p string) ([]models.DirEntry, error) {
	k, err := b.key(p)
	if err != nil {
		return nil, err
	}
	prefix := dirKey(k)

	var out []models.DirEntry
	markerSeen := false
	pager := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: readdir %s: %w", p, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name != "" {
				out = append(out, models.DirEntry{Name: name, IsDir: true})
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				markerSeen = true
				continue
			}
			out = append(out, models.DirEntry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	if len(out) == 0 && !markerSeen && prefix != "" {
		return nil, fmt.Errorf("s3: readdir %s: %w", p, fs.ErrNotExist)
	}
	return out, nil
}

// DeleteFile removes the object for p. S3 deletes are idempotent, so
// existence is checked first to report fs.ErrNotExist like the local backend.
func (b *Backend) DeleteFile(ctx context.Context, p string) error {
	k, err := b.key(p)
	if err != nil {
		return err
	}
	ok, err := b.exists(ctx, k)
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", p, err)
	}
	if !ok {
		return fmt.Errorf("s3: delete %s: %w", p, fs.ErrNotExist)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", p, err)
	}
	return nil
}
