package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"s3-explorer/internal/model"
)

type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
	// PartSize bounds the multipart buffer used for uploads of unknown
	// length. Zero means minio-go's own choice.
	PartSize uint64
}

type S3Store struct {
	client   *minio.Client
	core     minio.Core
	bucket   string
	region   string
	partSize uint64
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		if cfg.Region != "" {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region)
		} else {
			endpoint = "s3.amazonaws.com"
		}
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	options := &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.ForcePathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	return &S3Store{
		client:   client,
		core:     minio.Core{Client: client},
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		partSize: cfg.PartSize,
	}, nil
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return wrapS3Error("bucket_exists", "", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return wrapS3Error("make_bucket", "", err)
	}

	return nil
}

func (s *S3Store) ListPage(ctx context.Context, prefix string, delimiter string, token string, maxKeys int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if maxKeys <= 0 {
		maxKeys = defaultPageSize
	}

	result, err := s.core.ListObjectsV2(s.bucket, prefix, "", token, delimiter, maxKeys)
	if err != nil {
		return Page{}, wrapS3Error("list", prefix, err)
	}

	page := Page{
		Prefixes:  make([]string, 0, len(result.CommonPrefixes)),
		Objects:   make([]model.Object, 0, len(result.Contents)),
		NextToken: result.NextContinuationToken,
		Truncated: result.IsTruncated,
	}
	for _, common := range result.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, common.Prefix)
	}
	for _, object := range result.Contents {
		page.Objects = append(page.Objects, ClassifyObject(object.Key, object.Size, object.ContentType, object.ETag, object.LastModified))
	}

	return page, nil
}

func (s *S3Store) Walk(ctx context.Context, prefix string, fn func(model.Object) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return wrapS3Error("walk", prefix, object.Err)
		}

		if err := fn(ClassifyObject(object.Key, object.Size, object.ContentType, object.ETag, object.LastModified)); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}

	return ctx.Err()
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (model.Object, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, putOptions(contentType, size, s.partSize))
	if err != nil {
		return model.Object{}, wrapS3Error("put", key, err)
	}

	return ClassifyObject(key, info.Size, contentType, info.ETag, info.LastModified), nil
}

// putOptions sets an explicit part size for streamed bodies. Without one,
// minio-go sizes a single part buffer for the largest possible object.
func putOptions(contentType string, size int64, partSize uint64) minio.PutObjectOptions {
	options := minio.PutObjectOptions{ContentType: contentType}
	if size < 0 && partSize > 0 {
		options.PartSize = partSize
	}
	return options
}

func (s *S3Store) Stat(ctx context.Context, key string) (model.Object, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return model.Object{}, wrapS3Error("stat", key, err)
	}

	return ClassifyObject(info.Key, info.Size, info.ContentType, info.ETag, info.LastModified), nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, model.Object, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, model.Object{}, wrapS3Error("get", key, err)
	}

	// GetObject is lazy; Stat forces the request so missing keys fail here.
	info, err := object.Stat()
	if err != nil {
		_ = object.Close()
		return nil, model.Object{}, wrapS3Error("get", key, err)
	}

	return object, ClassifyObject(info.Key, info.Size, info.ContentType, info.ETag, info.LastModified), nil
}

func (s *S3Store) Copy(ctx context.Context, srcKey string, dstKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: s.bucket, Object: srcKey},
	)
	if err != nil {
		return wrapS3Error("copy", srcKey, err)
	}

	return nil
}

func (s *S3Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrapS3Error("remove", key, err)
	}

	return nil
}

func (s *S3Store) RemoveBatch(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo)
	go func() {
		defer close(objects)
		for _, key := range keys {
			select {
			case objects <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for removeErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, wrapS3Error("remove", removeErr.ObjectName, removeErr.Err))
	}

	return errors.Join(errs...)
}

func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", BaseName(key)))

	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return "", wrapS3Error("presign", key, err)
	}

	return signed.String(), nil
}

func wrapS3Error(op string, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket") {
		return fmt.Errorf("%s %q: %w", op, key, model.ErrObjectNotFound)
	}

	code := resp.Code
	message := resp.Message
	if code == "" {
		code = "StorageUnavailable"
	}
	if message == "" {
		message = err.Error()
	}

	return &model.StorageError{Op: op, Key: key, Code: code, Message: message, Err: err}
}
