//nolint:varnamelen // Test files use idiomatic short variable names (g, etc.)
package objectstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
	"github.com/joe/twinpane/pkg/vfs/objectstore"
)

func backendFor(fake *fakeS3) *objectstore.Backend {
	return objectstore.New(objectstore.WithClientFactory(
		func(context.Context, vfs.Profile) (objectstore.API, error) { return fake, nil },
	))
}

func pinned(bucket string) vfs.Profile {
	return vfs.Profile{ID: "S", BackendID: objectstore.ID, Config: map[string]string{objectstore.BucketKey: bucket}}
}

func TestList_AllBucketsAtRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("user-uploads", "prod-backups")
	fake.put("prod-backups", "2024/db.dump", "dump")

	b := backendFor(fake)
	profile := pinned("")

	items, err := b.List(context.Background(), profile, "/")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(items).Should(HaveLen(2))
	g.Expect(items[0].Name).Should(Equal("prod-backups"))
	g.Expect(items[0].Type).Should(Equal(vfs.TypeBucket))

	items, err = b.List(context.Background(), profile, "/prod-backups")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(items).Should(HaveLen(2))
	g.Expect(items[0].IsParent()).Should(BeTrue())
	g.Expect(items[1].ID).Should(Equal("/prod-backups/2024"))
	g.Expect(items[1].Type).Should(Equal(vfs.TypeDirectory))

	_, err = b.List(context.Background(), profile, "/missing-bucket")
	g.Expect(err).Should(MatchError(errors.ErrNotFound))
}

func TestList_PrefixesAndObjects(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	fake.put("data", "reports/", "")
	fake.put("data", "reports/q1.csv", "a,b")
	fake.put("data", "reports/archive/q0.csv", "x")

	b := backendFor(fake)

	items, err := b.List(context.Background(), pinned("data"), "/reports")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(items).Should(HaveLen(3))
	g.Expect(items[1].Name).Should(Equal("archive"))
	g.Expect(items[2].ID).Should(Equal("/reports/q1.csv"))
	g.Expect(items[2].Size).Should(Equal(int64(3)))
	g.Expect(items[2].Extension).Should(Equal("csv"))

	root, err := b.List(context.Background(), pinned("data"), "/")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(root).Should(HaveLen(1))

	_, err = b.List(context.Background(), pinned("data"), "/nothing")
	g.Expect(err).Should(MatchError(errors.ErrNotFound))
}

func TestWriteReadDelete(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	b := backendFor(fake)
	profile := pinned("data")
	ctx := context.Background()

	g.Expect(b.Write(ctx, profile, "/a/b.txt", []byte("body"))).Should(Succeed())

	data, err := b.Read(ctx, profile, "/a/b.txt")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).Should(Equal("body"))

	_, err = b.Read(ctx, profile, "/a")
	g.Expect(err).Should(MatchError(errors.ErrUnreadable))

	_, err = b.Read(ctx, profile, "/zzz")
	g.Expect(err).Should(MatchError(errors.ErrNotFound))

	g.Expect(b.Delete(ctx, profile, "/a")).Should(Succeed())
	g.Expect(fake.has("data", "a/b.txt")).Should(BeFalse())
	g.Expect(b.Delete(ctx, profile, "/a")).Should(MatchError(errors.ErrNotFound))
	g.Expect(b.Delete(ctx, profile, "/")).Should(MatchError(errors.ErrReadOnly))
}

func TestMakeDir_WritesMarker(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	b := backendFor(fake)

	g.Expect(b.MakeDir(context.Background(), pinned("data"), "/new")).Should(Succeed())
	g.Expect(fake.has("data", "new/")).Should(BeTrue())

	items, err := b.List(context.Background(), pinned("data"), "/new")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(items).Should(HaveLen(1))

	g.Expect(b.MakeDir(context.Background(), pinned(""), "/")).Should(MatchError(errors.ErrReadOnly))
}

func TestMoveItems_ServerSideCopyThenDelete(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	fake.put("data", "in/x.txt", "x")
	fake.put("data", "in/tree/1.txt", "1")
	fake.put("data", "in/tree/2.txt", "2")
	fake.put("data", "out/", "")

	b := backendFor(fake)

	result := b.MoveItems(context.Background(), pinned("data"),
		[]string{"/in/x.txt", "/in/tree", "/in/ghost"}, "/out")

	g.Expect(result.Outcome()).Should(Equal(vfs.OutcomePartial))
	g.Expect(result.Results[2].Err).Should(MatchError(errors.ErrNotFound))
	g.Expect(fake.has("data", "out/x.txt")).Should(BeTrue())
	g.Expect(fake.has("data", "out/tree/2.txt")).Should(BeTrue())
	g.Expect(fake.has("data", "in/tree/1.txt")).Should(BeFalse())
	g.Expect(fake.copies).Should(Equal(3))
}

func TestCopyItems_EncodesCopySource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	fake.put("data", "q1 report/fx+50%.csv", "rates")
	fake.put("data", "out/", "")

	b := backendFor(fake)
	result := b.CopyItems(context.Background(), pinned("data"), []string{"/q1 report/fx+50%.csv"}, "/out")

	g.Expect(result.Outcome()).Should(Equal(vfs.OutcomeOK))
	g.Expect(fake.sources).Should(Equal([]string{"data/q1%20report/fx%2B50%25.csv"}))
	g.Expect(fake.has("data", "out/fx+50%.csv")).Should(BeTrue())
}

func TestCopyItems_Validation(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := newFakeS3("data")
	fake.put("data", "d/f.txt", "f")

	b := backendFor(fake)
	result := b.CopyItems(context.Background(), pinned("data"), []string{"/d/f.txt", "/d"}, "/d")

	g.Expect(result.Results[0].Err).Should(MatchError(errors.ErrConflict))
	g.Expect(result.Results[1].Err).Should(MatchError(errors.ErrValidation))
	g.Expect(fake.has("data", "d/f.txt")).Should(BeTrue())
}

func TestAPIErrorCodesAreClassified(t *testing.T) {
	t.Parallel()

	tests := map[string]error{
		"AccessDenied": errors.ErrPermissionDenied,
		"SlowDown":     errors.ErrUnavailable,
		"NoSuchBucket": errors.ErrNotFound,
	}

	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			failing := objectstore.New(objectstore.WithClientFactory(
				func(context.Context, vfs.Profile) (objectstore.API, error) {
					return failingS3{err: &smithy.GenericAPIError{Code: code, Message: "boom"}}, nil
				},
			))

			_, err := failing.List(context.Background(), pinned(""), "/")
			g.Expect(err).Should(MatchError(want))
		})
	}
}

func TestClientFactoryFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	b := objectstore.New(objectstore.WithClientFactory(
		func(context.Context, vfs.Profile) (objectstore.API, error) {
			return nil, fmt.Errorf("no credentials") //nolint:err113 // test error
		},
	))

	_, err := b.List(context.Background(), pinned("data"), "/")
	g.Expect(err).Should(MatchError(errors.ErrUnavailable))
}

// failingS3 fails ListBuckets with a fixed error.
type failingS3 struct {
	*fakeS3

	err error
}

func (f failingS3) ListBuckets(context.Context, *s3.ListBucketsInput, ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	return nil, f.err
}
