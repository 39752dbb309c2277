package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeBucket is an in-memory stand-in for a single bucket.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := map[string]bool{}
	now := time.Now()
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(now),
		})
	}
	return out, nil
}

func testBackend(t *testing.T) (*Backend, *fakeBucket) {
	t.Helper()
	bucket := newFakeBucket()
	return NewWithClient(bucket, "vault", "device-1"), bucket
}

func TestKeyMapping(t *testing.T) {
	b, _ := testBackend(t)
	k, err := b.key("MyVaultDocuments/a.txt")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if k != "device-1/MyVaultDocuments/a.txt" {
		t.Errorf("key = %q", k)
	}
	for _, bad := range []string{"../x.txt", "a/../../x.txt", "/etc/passwd"} {
		if _, err := b.key(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWriteReadDelete(t *testing.T) {
	b, _ := testBackend(t)
	ctx := context.Background()

	if err := b.Mkdir(ctx, "docs", true); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := b.WriteFile(ctx, "docs/a.txt", []byte("hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := b.ReadFile(ctx, "docs/a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q", got)
	}
	if err := b.DeleteFile(ctx, "docs/a.txt"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := b.ReadFile(ctx, "docs/a.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("read after delete = %v, want fs.ErrNotExist", err)
	}
	if err := b.DeleteFile(ctx, "docs/a.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second delete = %v, want fs.ErrNotExist", err)
	}
}

func TestMkdirExisting(t *testing.T) {
	b, bucket := testBackend(t)
	ctx := context.Background()

	if err := b.Mkdir(ctx, "docs", false); err != nil {
		t.Fatalf("first Mkdir: %v", err)
	}
	if _, ok := bucket.objects["device-1/docs/"]; !ok {
		t.Error("folder marker not written")
	}
	if err := b.Mkdir(ctx, "docs", false); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second Mkdir = %v, want fs.ErrExist", err)
	}
	if err := b.Mkdir(ctx, "docs", true); err != nil {
		t.Errorf("recursive Mkdir on existing: %v", err)
	}
}

func TestReaddir(t *testing.T) {
	b, _ := testBackend(t)
	ctx := context.Background()

	_ = b.Mkdir(ctx, "docs", true)
	_ = b.WriteFile(ctx, "docs/b.txt", []byte("bb"))
	_ = b.WriteFile(ctx, "docs/a.txt", []byte("a"))
	_ = b.WriteFile(ctx, "docs/sub/c.txt", []byte("c"))
	_ = b.WriteFile(ctx, "other/z.txt", []byte("z"))

	entries, err := b.Readdir(ctx, "docs")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = e.IsDir
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %+v, want 3", entries)
	}
	if isDir, ok := names["sub"]; !ok || !isDir {
		t.Errorf("sub missing or not a dir: %+v", entries)
	}
	if _, ok := names["a.txt"]; !ok {
		t.Errorf("a.txt missing: %+v", entries)
	}
}

func TestReaddirEmptyAndMissing(t *testing.T) {
	b, _ := testBackend(t)
	ctx := context.Background()

	_ = b.Mkdir(ctx, "empty", true)
	entries, err := b.Readdir(ctx, "empty")
	if err != nil {
		t.Fatalf("Readdir empty: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := b.Readdir(ctx, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Readdir missing = %v, want fs.ErrNotExist", err)
	}
}
