// Package s3 implements the ingest.Storage capability against an
// S3-compatible object store, and provides client constructors for AWS S3
// and the common self-hosted alternatives (LocalStack, MinIO).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/justapithecus/s3ingest/ingest"
	"github.com/justapithecus/s3ingest/internal/discover"
)

// API defines the subset of the S3 client interface the store depends on,
// so it can be exercised against a mock in tests.
type API interface {
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *awss3.DeleteObjectsInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectsOutput, error)
}

// Store implements ingest.Storage against an S3-compatible backend.
type Store struct {
	client API
}

// New wraps client as an ingest.Storage.
func New(client API) *Store {
	return &Store{client: client}
}

// defaultListPageSize bounds a single List call when the caller passes
// max<=0.
const defaultListPageSize = 1000

// List implements ingest.Storage. It performs one flat, key-ordered listing
// page: at most max keys strictly greater than afterKey. NextToken is the
// last key of the page when the page may not be the last one (IsTruncated),
// so a subsequent List call with afterKey=NextToken resumes exactly where
// this one left off. This key-based pagination (rather than opaque
// ContinuationToken threading) is what lets the Directory Lister's pause
// and resume carry a plain object key across process restarts.
func (s *Store) List(ctx context.Context, root ingest.RootLocation, afterKey string, max int) (ingest.ListPage, error) {
	if max <= 0 {
		max = defaultListPageSize
	}

	in := &awss3.ListObjectsV2Input{
		Bucket:  aws.String(root.Bucket),
		MaxKeys: aws.Int32(int32(max)),
	}
	if root.Prefix != "" {
		in.Prefix = aws.String(root.Prefix)
	}
	if afterKey != "" {
		in.StartAfter = aws.String(afterKey)
	}

	out, err := s.client.ListObjectsV2(ctx, in)
	if err != nil {
		return ingest.ListPage{}, classify(err, "list", root.Bucket+"/"+root.Prefix)
	}

	page := ingest.ListPage{Keys: make([]string, 0, len(out.Contents))}
	var lastKey string
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		page.Keys = append(page.Keys, *obj.Key)
		lastKey = *obj.Key
	}
	if aws.ToBool(out.IsTruncated) && lastKey != "" {
		page.NextToken = lastKey
	}
	return page, nil
}

// Head implements ingest.Storage.
func (s *Store) Head(ctx context.Context, p ingest.PathLocation) (ingest.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	if err != nil {
		return ingest.ObjectInfo{}, classify(err, "head", p.Key)
	}
	info := ingest.ObjectInfo{Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Get implements ingest.Storage.
func (s *Store) Get(ctx context.Context, p ingest.PathLocation) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	if err != nil {
		return nil, classify(err, "get", p.Key)
	}
	return out.Body, nil
}

// Put implements ingest.Storage. It is exercised by the sink path, not the
// source discovery/read pipeline.
func (s *Store) Put(ctx context.Context, p ingest.PathLocation, payload io.Reader, length int64) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(p.Bucket),
		Key:           aws.String(p.Key),
		Body:          asReadSeeker(payload),
		ContentLength: aws.Int64(length),
	})
	if err != nil {
		return classify(err, "put", p.Key)
	}
	return nil
}

// Delete implements ingest.Storage.
func (s *Store) Delete(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objs := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		objs[i] = types.ObjectIdentifier{Key: aws.String(k)}
	}
	_, err := s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: objs},
	})
	if err != nil {
		return classify(err, "delete", bucket)
	}
	return nil
}

// FindDirectories implements ingest.Storage by delegating to the generic
// pause/resume algorithm in internal/discover, built entirely on List. This
// store never uses ListObjectsV2's native Delimiter/CommonPrefixes: the
// generic lister's pause/resume state (a plain object key) needs to survive
// a process restart with no server-side session, which rules out relying on
// S3's own delimiter grouping.
func (s *Store) FindDirectories(ctx context.Context, root ingest.RootLocation, cfg ingest.DirectoryFindConfig, exclude map[string]struct{}, continueFrom *ingest.DirectoryFindContinuation) (ingest.DirectoryFindResult, error) {
	return discover.NewLister(s, ingest.NewSystemClock()).Find(ctx, root, cfg, exclude, continueFrom)
}

// classify maps an AWS SDK error to a *ingest.StorageError.
func classify(err error, op, path string) *ingest.StorageError {
	if isNotFound(err) {
		return ingest.NewStorageError(ingest.StorageNotFound, op, path, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return ingest.NewStorageError(ingest.StorageAuth, op, path, err)
		case "SlowDown", "RequestTimeout", "ServiceUnavailable", "InternalError":
			return ingest.NewStorageError(ingest.StorageTransient, op, path, err)
		}
	}

	if op == "list" {
		return ingest.NewStorageError(ingest.StorageListing, op, path, err)
	}
	return ingest.NewStorageError(ingest.StorageTransient, op, path, err)
}

// isNotFound reports whether err indicates a missing key or bucket.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

// asReadSeeker adapts payload for PutObject, which requires a seekable
// body to compute a checksum. Callers on the source discovery/read path
// never call Put; sink callers are expected to pass an *os.File or
// *bytes.Reader.
func asReadSeeker(payload io.Reader) io.Reader {
	return payload
}

// ClientConfig configures a constructed S3 client.
type ClientConfig struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
	Credentials  aws.CredentialsProvider
}

// NewClient builds an *s3.Client from cfg, using the default AWS credential
// chain unless cfg.Credentials is set.
func NewClient(ctx context.Context, cfg ClientConfig) (*awss3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Credentials != nil {
		opts = append(opts, config.WithCredentialsProvider(cfg.Credentials))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) { o.UsePathStyle = true })
	}

	return awss3.NewFromConfig(awsCfg, s3Opts...), nil
}

// NewLocalStackClient builds a client for a local LocalStack instance.
func NewLocalStackClient(ctx context.Context) (*awss3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:4566",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
}

// NewMinIOClient builds a client for a local MinIO instance.
func NewMinIOClient(ctx context.Context) (*awss3.Client, error) {
	return NewClient(ctx, ClientConfig{
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("minioadmin", "minioadmin", ""),
	})
}
