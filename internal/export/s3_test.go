package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/internal/storage"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/node"
)

type object struct {
	body        []byte
	contentType string
	metadata    map[string]string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	err     error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]object{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = object{
		body:        body,
		contentType: aws.ToString(in.ContentType),
		metadata:    in.Metadata,
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestKeys(t *testing.T) {
	e := NewS3Exporter(newFakeS3(), "b", "snapshots")
	if got := e.DocumentKey("s1", document.KindPage, "home"); got != "snapshots/s1/PAGE/home.json" {
		t.Errorf("DocumentKey = %q", got)
	}
	if got := e.ThemeKey("s1"); got != "snapshots/s1/theme.json" {
		t.Errorf("ThemeKey = %q", got)
	}
	bare := NewS3Exporter(newFakeS3(), "b", "")
	if got := bare.DocumentKey("s1", document.KindPrefab, "hero"); got != "s1/PREFAB/hero.json" {
		t.Errorf("DocumentKey without prefix = %q", got)
	}
}

func TestExportOnPublish(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	exp := NewS3Exporter(fake, "site", "v1", WithLogger(quiet))
	store := document.NewStore(storage.NewMemoryBackend(), document.WithLogger(quiet), document.WithHooks(exp))

	tree := &node.Node{ID: "root", Type: "Text", Props: map[string]any{"text": "hi"}}
	if _, err := store.SaveDraft(ctx, "s1", document.KindPrefab, "hero", tree, nil); err != nil {
		t.Fatal(err)
	}
	if len(fake.objects) != 0 {
		t.Fatal("draft save exported a snapshot")
	}
	if _, err := store.Publish(ctx, "s1", document.KindPrefab, "hero"); err != nil {
		t.Fatal(err)
	}

	obj, ok := fake.objects["site/v1/s1/PREFAB/hero.json"]
	if !ok {
		t.Fatalf("objects = %v", fake.objects)
	}
	if obj.contentType != "application/json" || obj.metadata["storefront-version"] != "1" {
		t.Errorf("object = %+v", obj)
	}
	var doc document.Document
	if err := json.Unmarshal(obj.body, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Status != document.StatusPublished || doc.Tree.Props["text"] != "hi" {
		t.Errorf("snapshot = %+v", doc)
	}

	_, _ = store.SaveThemeDraft(ctx, "s1", map[string]string{"color.primary": "#000"})
	_, _ = store.PublishTheme(ctx, "s1")
	if _, ok := fake.objects["site/v1/s1/theme.json"]; !ok {
		t.Error("theme snapshot missing")
	}

	_, _ = store.Unpublish(ctx, "s1", document.KindPrefab, "hero")
	if _, ok := fake.objects["site/v1/s1/PREFAB/hero.json"]; ok {
		t.Error("snapshot survived Unpublish")
	}
}

func TestExportErrors(t *testing.T) {
	errDenied := errors.New("access denied")
	exp := NewS3Exporter(&fakeS3{err: errDenied}, "site", "", WithLogger(quiet))

	err := exp.OnEvent(context.Background(), document.Event{
		Type:     document.EventPublished,
		StoreID:  "s1",
		Kind:     document.KindPage,
		Key:      "home",
		Document: &document.Document{},
	})
	if !errors.Is(err, sferrors.ErrExport) || !errors.Is(err, errDenied) {
		t.Errorf("err = %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(ClientConfig{Region: "us-east-1", Endpoint: "http://localhost:9000", UsePathStyle: true})
	opts := c.Options()
	if opts.Region != "us-east-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = %+v", opts)
	}
}
