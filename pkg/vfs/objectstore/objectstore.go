// Package objectstore provides a storage backend over S3 and S3-compatible object stores.
//
// A profile either pins one bucket (config "bucket") so "/" is the bucket root, or leaves
// it empty so "/" lists buckets and "/<bucket>/..." addresses objects. Key prefixes
// delimited by "/" are presented as directories.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	ID = "s3"

	BucketKey    = "bucket"
	RegionKey    = "region"
	EndpointKey  = "endpoint"
	AccessKeyKey = "access_key"
	SecretKeyKey = "secret_key"

	DefaultRegion = "us-east-1"
)

const (
	delimiter     = "/"
	deleteBatchSz = 1000
)

// Backend is the object store backend.
type Backend struct {
	mu      sync.Mutex
	clients map[string]API
	factory ClientFactory
}

// Option configures a Backend.
type Option func(*Backend)

// WithClientFactory replaces the S3 client constructor.
func WithClientFactory(factory ClientFactory) Option {
	return func(b *Backend) {
		b.factory = factory
	}
}

// New creates an object store backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		clients: make(map[string]API),
		factory: NewClient,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Metadata implements vfs.Backend.
func (b *Backend) Metadata() vfs.Metadata {
	return vfs.Metadata{
		ID:           ID,
		DisplayName:  "S3 Buckets",
		Description:  "AWS S3 and S3-compatible object storage",
		ConfigFields: []string{BucketKey},
	}
}

// location is a profile path resolved to a bucket and key.
type location struct {
	bucket string
	key    string
}

// isRoot reports the profile root of a multi-bucket profile.
func (l location) isRoot() bool { return l.bucket == "" }

// isBucket reports a bucket root.
func (l location) isBucket() bool { return l.bucket != "" && l.key == "" }

// prefix returns the key prefix listing the location's children.
func (l location) prefix() string {
	if l.key == "" {
		return ""
	}

	return l.key + delimiter
}

func locate(profile vfs.Profile, p string) location {
	segments := vfs.Segments(p)

	if bucket := profile.Get(BucketKey, ""); bucket != "" {
		return location{bucket: bucket, key: strings.Join(segments, delimiter)}
	}

	if len(segments) == 0 {
		return location{}
	}

	return location{bucket: segments[0], key: strings.Join(segments[1:], delimiter)}
}

// List implements vfs.Backend.
func (b *Backend) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	dir = vfs.CleanPath(dir)

	client, err := b.client(ctx, profile, "list", dir)
	if err != nil {
		return nil, err
	}

	loc := locate(profile, dir)
	if loc.isRoot() {
		return b.listBuckets(ctx, client)
	}

	var items []vfs.Item

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(loc.bucket),
		Prefix:    aws.String(loc.prefix()),
		Delimiter: aws.String(delimiter),
	})

	found := false

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "list", dir)
		}

		for _, prefix := range page.CommonPrefixes {
			found = true
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(prefix.Prefix), loc.prefix()), delimiter)
			items = append(items, vfs.NewItem(vfs.Join(dir, name), vfs.TypeDirectory, 0, time.Time{}))
		}

		for _, object := range page.Contents {
			found = true
			key := aws.ToString(object.Key)

			// Directory marker for the listed prefix itself.
			if key == loc.prefix() {
				continue
			}

			name := strings.TrimPrefix(key, loc.prefix())
			items = append(items, vfs.NewItem(
				vfs.Join(dir, name), vfs.TypeFile, aws.ToInt64(object.Size), aws.ToTime(object.LastModified)))
		}
	}

	if !found && !loc.isBucket() {
		return nil, errors.New(errors.KindNotFound, "list", dir, nil)
	}

	vfs.SortItems(items)

	return vfs.WithParent(dir, items), nil
}

func (b *Backend) listBuckets(ctx context.Context, client API) ([]vfs.Item, error) {
	out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classify(err, "list", vfs.Root)
	}

	items := make([]vfs.Item, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		items = append(items, vfs.NewItem(
			aws.ToString(bucket.Name), vfs.TypeBucket, 0, aws.ToTime(bucket.CreationDate)))
	}

	vfs.SortItems(items)

	return items, nil
}

// Read implements vfs.Backend.
func (b *Backend) Read(ctx context.Context, profile vfs.Profile, itemID string) ([]byte, error) {
	itemID = vfs.CleanPath(itemID)

	client, err := b.client(ctx, profile, "read", itemID)
	if err != nil {
		return nil, err
	}

	loc := locate(profile, itemID)
	if loc.isRoot() || loc.isBucket() {
		return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.bucket),
		Key:    aws.String(loc.key),
	})
	if err != nil {
		classified := classify(err, "read", itemID)
		if errors.Is(classified, errors.ErrNotFound) && b.hasChildren(ctx, client, loc) {
			return nil, errors.New(errors.KindUnreadable, "read", itemID, nil)
		}

		return nil, classified
	}

	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	return data, nil
}

// Write implements vfs.Backend.
func (b *Backend) Write(ctx context.Context, profile vfs.Profile, itemID string, content []byte) error {
	itemID = vfs.CleanPath(itemID)

	client, err := b.client(ctx, profile, "write", itemID)
	if err != nil {
		return err
	}

	loc := locate(profile, itemID)
	if loc.isRoot() || loc.isBucket() {
		return errors.Newf(errors.KindConflict, "write", itemID, "cannot write a bucket")
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(loc.bucket),
		Key:           aws.String(loc.key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return classify(err, "write", itemID)
	}

	return nil
}

// Delete implements vfs.Backend. Prefixes are deleted with every object below them;
// buckets themselves are never deleted.
func (b *Backend) Delete(ctx context.Context, profile vfs.Profile, itemID string) error {
	itemID = vfs.CleanPath(itemID)

	client, err := b.client(ctx, profile, "delete", itemID)
	if err != nil {
		return err
	}

	loc := locate(profile, itemID)
	if loc.isRoot() || loc.isBucket() {
		return errors.Newf(errors.KindReadOnly, "delete", itemID, "buckets cannot be deleted")
	}

	_, headErr := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.bucket),
		Key:    aws.String(loc.key),
	})
	if headErr == nil {
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(loc.bucket),
			Key:    aws.String(loc.key),
		})

		return classify(err, "delete", itemID)
	}

	if classified := classify(headErr, "delete", itemID); !errors.Is(classified, errors.ErrNotFound) {
		return classified
	}

	keys, err := b.keysUnder(ctx, client, loc)
	if err != nil {
		return classify(err, "delete", itemID)
	}

	if len(keys) == 0 {
		return errors.New(errors.KindNotFound, "delete", itemID, nil)
	}

	if err := b.deleteKeys(ctx, client, loc.bucket, keys); err != nil {
		return classify(err, "delete", itemID)
	}

	return nil
}

// DeleteItems implements vfs.Deleter.
func (b *Backend) DeleteItems(ctx context.Context, profile vfs.Profile, itemIDs []string) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)

	for i, id := range itemIDs {
		result.Results[i].Err = b.Delete(ctx, profile, id)
	}

	return result
}

// MakeDir implements vfs.DirMaker by writing a directory marker object.
func (b *Backend) MakeDir(ctx context.Context, profile vfs.Profile, dir string) error {
	dir = vfs.CleanPath(dir)

	client, err := b.client(ctx, profile, "mkdir", dir)
	if err != nil {
		return err
	}

	loc := locate(profile, dir)
	if loc.isRoot() {
		return errors.Newf(errors.KindReadOnly, "mkdir", dir, "buckets cannot be created")
	}

	if loc.isBucket() {
		return nil
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(loc.bucket),
		Key:           aws.String(loc.prefix()),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return classify(err, "mkdir", dir)
	}

	return nil
}

// CopyItems implements vfs.Copier with server-side copies.
func (b *Backend) CopyItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	return b.transfer(ctx, profile, itemIDs, targetPath, false)
}

// MoveItems implements vfs.Mover as server-side copy followed by delete.
func (b *Backend) MoveItems(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string,
) vfs.BatchResult {
	return b.transfer(ctx, profile, itemIDs, targetPath, true)
}

func (b *Backend) transfer(
	ctx context.Context, profile vfs.Profile, itemIDs []string, targetPath string, move bool,
) vfs.BatchResult {
	result := vfs.NewBatchResult(itemIDs)
	targetPath = vfs.CleanPath(targetPath)

	for i, id := range itemIDs {
		result.Results[i].Err = b.transferItem(ctx, profile, vfs.CleanPath(id), targetPath, move)
	}

	return result
}

//nolint:cyclop // object and prefix paths share validation
func (b *Backend) transferItem(ctx context.Context, profile vfs.Profile, id, targetPath string, move bool) error {
	op := "copy"
	if move {
		op = "move"
	}

	client, err := b.client(ctx, profile, op, id)
	if err != nil {
		return err
	}

	src := locate(profile, id)
	dst := locate(profile, vfs.Join(targetPath, vfs.Base(id)))
	target := locate(profile, targetPath)

	switch {
	case src.isRoot() || src.isBucket():
		return errors.Newf(errors.KindReadOnly, op, id, "buckets cannot be copied or moved")
	case dst.isRoot() || target.isRoot():
		return errors.Newf(errors.KindValidation, op, targetPath, "target must be inside a bucket")
	case src == dst:
		return errors.Newf(errors.KindConflict, op, id, "source and destination are the same")
	case vfs.IsWithin(targetPath, id):
		return errors.Newf(errors.KindValidation, op, id, "cannot place a prefix inside itself")
	}

	pairs := map[string]string{}

	if _, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(src.bucket),
		Key:    aws.String(src.key),
	}); err == nil {
		pairs[src.key] = dst.key
	} else {
		keys, err := b.keysUnder(ctx, client, src)
		if err != nil {
			return classify(err, op, id)
		}

		for _, key := range keys {
			pairs[key] = dst.key + strings.TrimPrefix(key, src.key)
		}
	}

	if len(pairs) == 0 {
		return errors.New(errors.KindNotFound, op, id, nil)
	}

	sources := make([]string, 0, len(pairs))

	for from, to := range pairs {
		if _, err := client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(dst.bucket),
			Key:        aws.String(to),
			CopySource: aws.String(copySource(src.bucket, from)),
		}); err != nil {
			return classify(err, op, id)
		}

		sources = append(sources, from)
	}

	if !move {
		return nil
	}

	if err := b.deleteKeys(ctx, client, src.bucket, sources); err != nil {
		return classify(err, op, id)
	}

	return nil
}

// keysUnder returns every key below the location's prefix, markers included.
func (b *Backend) keysUnder(ctx context.Context, client API, loc location) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(loc.bucket),
		Prefix: aws.String(loc.prefix()),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}

	return keys, nil
}

func (b *Backend) hasChildren(ctx context.Context, client API, loc location) bool {
	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(loc.bucket),
		Prefix:  aws.String(loc.prefix()),
		MaxKeys: aws.Int32(1),
	})

	return err == nil && len(out.Contents) > 0
}

func (b *Backend) deleteKeys(ctx context.Context, client API, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchSz {
		end := min(start+deleteBatchSz, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}

		if len(out.Errors) > 0 {
			first := out.Errors[0]

			return errors.Newf(codeKind(aws.ToString(first.Code)), "delete", aws.ToString(first.Key),
				"%s", aws.ToString(first.Message))
		}
	}

	return nil
}

func (b *Backend) client(ctx context.Context, profile vfs.Profile, op, p string) (API, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Classify(err, op, p)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if client, ok := b.clients[profile.ID]; ok {
		return client, nil
	}

	client, err := b.factory(ctx, profile)
	if err != nil {
		return nil, errors.New(errors.KindUnavailable, "connect", profile.ID, err)
	}

	b.clients[profile.ID] = client

	return client, nil
}

// copySource renders bucket/key for CopyObject, URL-encoding each key segment.
func copySource(bucket, key string) string {
	segments := strings.Split(key, delimiter)
	for i, segment := range segments {
		segments[i] = strings.ReplaceAll(url.QueryEscape(segment), "+", "%20")
	}

	return bucket + delimiter + strings.Join(segments, delimiter)
}
