package repository

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/debemdeboas/microsites/internal/util/compression"
)

// s3API is the part of *s3.Client the page store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3PageStore uploads gzip-encoded pages to <bucket>/<slug>/index.html.
type S3PageStore struct { // implements PageStore
	client s3API
	bucket string

	compressor compression.Compressor
}

type S3Options struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
}

func NewS3PageStore(ctx context.Context, opts S3Options) (*S3PageStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.AccessKeySecret, "")),
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PageStore(client, opts.Bucket), nil
}

func newS3PageStore(client s3API, bucket string) *S3PageStore {
	return &S3PageStore{
		client: client,
		bucket: bucket,

		compressor: compression.GzipCompressor{},
	}
}

func pageKey(slug string) string {
	return slug + "/" + pageFile
}

func (s *S3PageStore) Put(ctx context.Context, slug string, page []byte) error {
	compressed, err := s.compressor.Compress(page)
	if err != nil {
		return fmt.Errorf("error compressing page: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(pageKey(slug)),
		Body:            bytes.NewReader(compressed),
		ContentType:     aws.String("text/html; charset=utf-8"),
		ContentEncoding: aws.String(s.compressor.Encoding()),
	})
	if err != nil {
		return fmt.Errorf("error uploading page %s: %w", slug, err)
	}

	repoLogger.Debug().Str("bucket", s.bucket).Str("slug", slug).Int("bytes", len(compressed)).Msg("Page uploaded")
	return nil
}

func (s *S3PageStore) Delete(ctx context.Context, slug string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(pageKey(slug)),
	})
	if err != nil {
		return fmt.Errorf("error deleting page %s: %w", slug, err)
	}
	repoLogger.Debug().Str("bucket", s.bucket).Str("slug", slug).Msg("Page deleted")
	return nil
}

var _ PageStore = (*S3PageStore)(nil)
