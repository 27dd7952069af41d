package snapshot_test

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
	"github.com/vango-dev/loom/pkg/snapshot"
)

type fakeS3 struct {
	mu   sync.Mutex
	puts []*s3.PutObjectInput
	body []string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.body = append(f.body, string(b))
	return &s3.PutObjectOutput{}, nil
}

func TestS3StorePut(t *testing.T) {
	fake := &fakeS3{}
	store := snapshot.NewS3Store(fake, "bucket", "snaps/")

	if err := store.Put(context.Background(), "s1/000001.html", []byte("<p>hi</p>")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("puts = %d, want 1", len(fake.puts))
	}
	in := fake.puts[0]
	if got := aws.ToString(in.Bucket); got != "bucket" {
		t.Errorf("Bucket = %q, want bucket", got)
	}
	if got := aws.ToString(in.Key); got != "snaps/s1/000001.html" {
		t.Errorf("Key = %q, want snaps/s1/000001.html", got)
	}
	if got := aws.ToString(in.ContentType); got != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", got)
	}
	if fake.body[0] != "<p>hi</p>" {
		t.Errorf("body = %q", fake.body[0])
	}
}

func TestS3StorePutFailure(t *testing.T) {
	cause := stderrors.New("access denied")
	store := snapshot.NewS3Store(&fakeS3{err: cause}, "bucket", "")

	err := store.Put(context.Background(), "k", nil)
	if !stderrors.Is(err, errors.New(errors.CodeSnapshot)) {
		t.Errorf("Put() error = %v, want code %s", err, errors.CodeSnapshot)
	}
	if !stderrors.Is(err, cause) {
		t.Errorf("Put() error = %v, want wrapped cause", err)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := snapshot.EnvCredentials().Retrieve(context.Background()); err == nil {
		t.Error("Retrieve() with empty env = nil error, want error")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "tok")
	creds, err := snapshot.EnvCredentials().Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" || creds.SessionToken != "tok" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestObserverCapturesCommittedTree(t *testing.T) {
	h := memhost.New()
	root := h.NewContainer("root")
	store := snapshot.NewMemoryStore()

	uploaded := make(chan struct{}, 4)
	obs := snapshot.NewObserver(root, snapshot.WithStore(store, "s1"))
	s := reconciler.New(h, reconciler.WithCommitObserver(func(info reconciler.CommitInfo) {
		obs.Observe(info)
		uploaded <- struct{}{}
	}))

	if obs.Latest() != nil {
		t.Fatal("Latest() before commit != nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		obs.Run(ctx)
		close(done)
	}()

	if err := s.Render(element.P(nil, "hello"), root); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	<-uploaded

	snap := obs.Latest()
	if snap == nil {
		t.Fatal("Latest() = nil after commit")
	}
	if got, want := string(snap.HTML), "<p>hello</p>"; got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
	if snap.Cycle != 1 {
		t.Errorf("Cycle = %d, want 1", snap.Cycle)
	}

	deadline := time.After(2 * time.Second)
	for obs.Uploaded() != 1 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for upload")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if b, ok := store.Get("s1/000001.html"); !ok || string(b) != "<p>hello</p>" {
		t.Errorf("stored = %q, %v", b, ok)
	}

	cancel()
	<-done
}

func TestObserverWithoutStoreKeepsLatestOnly(t *testing.T) {
	h := memhost.New()
	root := h.NewContainer("root")
	obs := snapshot.NewObserver(root)
	s := reconciler.New(h, reconciler.WithCommitObserver(obs.Observe))

	for _, text := range []string{"a", "b"} {
		if err := s.Render(element.Span(nil, text), root); err != nil {
			t.Fatal(err)
		}
		if err := s.Flush(); err != nil {
			t.Fatal(err)
		}
	}

	snap := obs.Latest()
	if snap == nil || string(snap.HTML) != "<span>b</span>" || snap.Cycle != 2 {
		t.Errorf("Latest() = %+v, want <span>b</span> at cycle 2", snap)
	}

	// Run has nothing to do without a store.
	obs.Run(context.Background())
	if obs.Uploaded() != 0 {
		t.Errorf("Uploaded() = %d, want 0", obs.Uploaded())
	}
}

func TestObserverReportsUploadErrors(t *testing.T) {
	h := memhost.New()
	root := h.NewContainer("root")

	errs := make(chan error, 1)
	store := snapshot.NewS3Store(&fakeS3{err: stderrors.New("boom")}, "b", "")
	obs := snapshot.NewObserver(root,
		snapshot.WithStore(store, "s"),
		snapshot.WithTimeout(time.Second),
		snapshot.WithErrorHandler(func(err error) { errs <- err }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	s := reconciler.New(h, reconciler.WithCommitObserver(obs.Observe))
	if err := s.Render(element.Div(nil), root); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if !stderrors.Is(err, errors.New(errors.CodeSnapshot)) {
			t.Errorf("error = %v, want code %s", err, errors.CodeSnapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload error")
	}
	if obs.Uploaded() != 0 {
		t.Errorf("Uploaded() = %d, want 0", obs.Uploaded())
	}
}
