package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/directauth/pkg/async"
)

// S3API is the subset of the S3 client used by S3Storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config configures direct-bucket storage for self-hosted deployments.
type S3Config struct {
	Bucket         string `env:"DIRECTAUTH_S3_BUCKET"`
	Region         string `env:"DIRECTAUTH_S3_REGION"`
	AccessKeyID    string `env:"DIRECTAUTH_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"DIRECTAUTH_S3_SECRET_KEY"`
	Endpoint       string `env:"DIRECTAUTH_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"DIRECTAUTH_S3_FORCE_PATH_STYLE"`
}

// S3Storage is the Backend against an S3 (or S3-compatible) bucket, with
// every object keyed under the application slug. Safe for concurrent use.
type S3Storage struct {
	client  S3API
	bucket  string
	appSlug string
	cfg     Config
}

// S3Option configures S3Storage construction.
type S3Option func(*s3Options)

type s3Options struct {
	s3Client   S3API
	httpClient *http.Client
	timeouts   Config
}

// WithS3Client sets a pre-configured S3 client. Useful for testing.
func WithS3Client(client S3API) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithS3HTTPClient sets a custom HTTP client for S3 requests.
func WithS3HTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3Timeouts overrides the per-class timeout budgets.
func WithS3Timeouts(cfg Config) S3Option {
	return func(o *s3Options) {
		if cfg.TransferTimeout > 0 {
			o.timeouts.TransferTimeout = cfg.TransferTimeout
		}
		if cfg.MetadataTimeout > 0 {
			o.timeouts.MetadataTimeout = cfg.MetadataTimeout
		}
	}
}

// NewS3Storage creates a bucket-backed storage instance scoped to appSlug.
func NewS3Storage(ctx context.Context, cfg S3Config, appSlug string, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidS3Config
	}
	if appSlug == "" {
		return nil, ErrEmptyAppSlug
	}

	options := &s3Options{timeouts: DefaultConfig()}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		if options.httpClient != nil {
			awsOptions = append(awsOptions, awsconfig.WithHTTPClient(options.httpClient))
		}

		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		appSlug: appSlug,
		cfg:     options.timeouts,
	}, nil
}

func (s *S3Storage) key(path string) string {
	return s.appSlug + "/" + path
}

// classifyS3Error converts SDK errors to the package's sentinel errors.
func classifyS3Error(err error, operation string) error {
	if err == nil {
		return nil
	}

	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrObjectNotFound, operation)
		case "AccessDenied":
			return fmt.Errorf("%w: %s", ErrAccessDenied, operation)
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// Upload streams a file into the bucket under the application prefix.
func (s *S3Storage) Upload(ctx context.Context, path string, r io.Reader, contentType string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = async.WithTimeout(ctx, s.cfg.TransferTimeout, "upload file", func(ctx context.Context) (struct{}, error) {
		_, putErr := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.key(path)),
			Body:        r,
			ContentType: aws.String(contentType),
		})
		return struct{}{}, classifyS3Error(putErr, "upload file")
	})
	return err
}

// UploadContent uploads in-memory content.
func (s *S3Storage) UploadContent(ctx context.Context, path string, content []byte, contentType string) error {
	return s.Upload(ctx, path, bytes.NewReader(content), contentType)
}

// Download fetches the raw object content.
func (s *S3Storage) Download(ctx context.Context, path string) ([]byte, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	return async.WithTimeout(ctx, s.cfg.TransferTimeout, "download file", func(ctx context.Context) ([]byte, error) {
		out, getErr := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(path)),
		})
		if getErr != nil {
			return nil, classifyS3Error(getErr, "download file")
		}
		defer func() { _ = out.Body.Close() }()
		return io.ReadAll(out.Body)
	})
}

// List returns the objects under the optional prefix, non-recursive.
func (s *S3Storage) List(ctx context.Context, prefix string) ([]Object, error) {
	prefix = strings.TrimPrefix(prefix, "/")
	if strings.Contains(prefix, "..") {
		return nil, ErrInvalidPath
	}
	fullPrefix := s.appSlug + "/"
	if prefix != "" {
		fullPrefix += strings.TrimSuffix(prefix, "/") + "/"
	}

	return async.WithTimeout(ctx, s.cfg.MetadataTimeout, "list files", func(ctx context.Context) ([]Object, error) {
		resp, listErr := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:    aws.String(s.bucket),
			Prefix:    aws.String(fullPrefix),
			Delimiter: aws.String("/"),
		})
		if listErr != nil {
			return nil, classifyS3Error(listErr, "list files")
		}

		var objects []Object
		for _, obj := range resp.Contents {
			if obj.Key == nil || *obj.Key == fullPrefix {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, fullPrefix)
			o := Object{
				Name: name,
				Path: strings.TrimPrefix(*obj.Key, s.appSlug+"/"),
			}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.UpdatedAt = *obj.LastModified
			}
			objects = append(objects, o)
		}
		return objects, nil
	})
}

// Info returns the metadata of one object.
func (s *S3Storage) Info(ctx context.Context, path string) (*Object, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	return async.WithTimeout(ctx, s.cfg.MetadataTimeout, "get file info", func(ctx context.Context) (*Object, error) {
		out, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(path)),
		})
		if headErr != nil {
			return nil, classifyS3Error(headErr, "get file info")
		}

		obj := &Object{
			Name: path[strings.LastIndex(path, "/")+1:],
			Path: path,
		}
		if out.ContentLength != nil {
			obj.Size = *out.ContentLength
		}
		if out.ContentType != nil {
			obj.ContentType = *out.ContentType
		}
		if out.LastModified != nil {
			obj.UpdatedAt = *out.LastModified
		}
		return obj, nil
	})
}

// Delete removes one object, reporting ErrObjectNotFound when it does not
// exist.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	_, err = async.WithTimeout(ctx, s.cfg.MetadataTimeout, "delete file", func(ctx context.Context) (struct{}, error) {
		if _, headErr := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(path)),
		}); headErr != nil {
			return struct{}{}, classifyS3Error(headErr, "delete file")
		}

		_, delErr := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(path)),
		})
		return struct{}{}, classifyS3Error(delErr, "delete file")
	})
	return err
}
