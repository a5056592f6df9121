package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joe/twinpane/pkg/vfs"
)

// API is the subset of the S3 client used by the backend.
type API interface {
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, opts ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(
		ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(
		ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
	DeleteObjects(
		ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
}

// ClientFactory builds the S3 client for a profile.
type ClientFactory func(ctx context.Context, profile vfs.Profile) (API, error)

// NewClient builds an S3 client from the profile's region, endpoint and optional static keys.
// Without keys the default credential chain applies. A custom endpoint switches to
// path-style addressing for S3-compatible stores.
func NewClient(ctx context.Context, profile vfs.Profile) (API, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(profile.Get(RegionKey, DefaultRegion)),
	}

	if accessKey := profile.Get(AccessKeyKey, ""); accessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, profile.Get(SecretKeyKey, ""), ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := profile.Get(EndpointKey, "")

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
