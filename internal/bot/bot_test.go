package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/publish"
)

type fakePublisher struct {
	postErr   error
	verifyErr error
	posted    []string
	verifies  int
}

func (f *fakePublisher) Post(_ context.Context, text string) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.posted = append(f.posted, text)
	return "post-1", nil
}

func (f *fakePublisher) Verify(context.Context) (string, error) {
	f.verifies++
	if f.verifyErr != nil {
		return "", f.verifyErr
	}
	return "quillbot", nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, dryRun bool) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeRecorder struct {
	posts    []bool
	errors   []string
	apiCalls []string
	running  []bool
}

func (f *fakeRecorder) RecordPost(success bool, _ string, _ bool) error {
	f.posts = append(f.posts, success)
	return nil
}

func (f *fakeRecorder) RecordError(msg string) error {
	f.errors = append(f.errors, msg)
	return nil
}

func (f *fakeRecorder) RecordAPICall(service string) error {
	f.apiCalls = append(f.apiCalls, service)
	return nil
}

func (f *fakeRecorder) SetRunning(running bool) error {
	f.running = append(f.running, running)
	return nil
}

func newBot(t *testing.T, pub *fakePublisher, gen *fakeGenerator, rec *fakeRecorder) *Bot {
	t.Helper()
	p, s, r := content.SeedRegistries(rand.New(rand.NewSource(1)))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := content.NewOrchestrator(p, s, r, nil, log)
	return New(o, gen, pub, rec, nil, nil, log)
}

func TestGenerateAndPost_Success(t *testing.T) {
	pub := &fakePublisher{}
	gen := &fakeGenerator{text: "A fine post."}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	result, err := b.GenerateAndPost(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "A fine post." || result.PostID != "post-1" {
		t.Errorf("unexpected result: %+v", result)
	}
	if pub.verifies != 1 {
		t.Errorf("expected 1 verify call, got %d", pub.verifies)
	}
	if len(rec.posts) != 1 || !rec.posts[0] {
		t.Errorf("expected one successful post record, got %v", rec.posts)
	}
	// Verify, generation and post each record an API call.
	if len(rec.apiCalls) != 3 {
		t.Errorf("expected 3 api call records, got %v", rec.apiCalls)
	}
}

func TestGenerateAndPost_DryRunSkipsPlatform(t *testing.T) {
	pub := &fakePublisher{}
	gen := &fakeGenerator{text: "Would-be post."}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	result, err := b.GenerateAndPost(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.DryRun || result.PostID != "" {
		t.Errorf("unexpected result: %+v", result)
	}
	if pub.verifies != 0 || len(pub.posted) != 0 {
		t.Error("dry run must not touch the platform")
	}
	if len(rec.posts) != 0 {
		t.Errorf("dry run must not record posts, got %v", rec.posts)
	}
}

func TestGenerateAndPost_VerifyFailureRecorded(t *testing.T) {
	pub := &fakePublisher{verifyErr: errors.New("bad token")}
	gen := &fakeGenerator{text: "never used"}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	_, err := b.GenerateAndPost(context.Background(), false)
	if err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 0 {
		t.Error("generation must not run after verify failure")
	}
	if len(rec.posts) != 1 || rec.posts[0] {
		t.Errorf("expected one failed post record, got %v", rec.posts)
	}
	if len(rec.errors) != 1 {
		t.Errorf("expected one error record, got %v", rec.errors)
	}
}

func TestGenerateAndPost_PublishFailureRecorded(t *testing.T) {
	pub := &fakePublisher{postErr: publish.ErrPermissionDenied}
	gen := &fakeGenerator{text: "blocked post"}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	_, err := b.GenerateAndPost(context.Background(), false)
	if !errors.Is(err, publish.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if len(rec.posts) != 1 || rec.posts[0] {
		t.Errorf("expected one failed post record, got %v", rec.posts)
	}
}

func TestGenerateAndPost_GenerationFailureRecorded(t *testing.T) {
	pub := &fakePublisher{}
	gen := &fakeGenerator{err: errors.New("all fallback models failed")}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	_, err := b.GenerateAndPost(context.Background(), false)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(pub.posted) != 0 {
		t.Error("nothing should be published after generation failure")
	}
	if len(rec.errors) != 1 {
		t.Errorf("expected one error record, got %v", rec.errors)
	}
}

type blockingGenerator struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  error
}

func (g *blockingGenerator) Generate(ctx context.Context, _ string, _ bool) (string, error) {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	g.ctxErr = ctx.Err()
	return "late post", nil
}

func TestScheduler_WaitsForInFlightCycle(t *testing.T) {
	pub := &fakePublisher{}
	gen := &blockingGenerator{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	rec := &fakeRecorder{}

	p, s, r := content.SeedRegistries(rand.New(rand.NewSource(1)))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := content.NewOrchestrator(p, s, r, nil, log)
	b := New(o, gen, pub, rec, nil, nil, log)

	sched := NewScheduler(b, rec, time.Minute, log)
	sched.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-gen.entered:
	case <-time.After(time.Second):
		t.Fatal("cycle never started")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("scheduler returned while a cycle was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gen.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after the cycle finished")
	}

	// The in-flight cycle must not see the shutdown cancellation.
	if gen.ctxErr != nil {
		t.Errorf("cycle context canceled mid-flight: %v", gen.ctxErr)
	}
	// The select may race one extra tick in after release; at least the
	// in-flight post must have completed.
	if len(pub.posted) == 0 {
		t.Error("expected the in-flight post to complete")
	}
	if len(rec.running) == 0 || rec.running[len(rec.running)-1] {
		t.Errorf("running flag not cleared on shutdown: %v", rec.running)
	}
}

func TestScheduler_RunsAndStops(t *testing.T) {
	pub := &fakePublisher{}
	gen := &fakeGenerator{text: "scheduled post"}
	rec := &fakeRecorder{}
	b := newBot(t, pub, gen, rec)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(b, rec, time.Minute, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	// Running flag set on start and cleared on shutdown.
	if len(rec.running) != 2 || !rec.running[0] || rec.running[1] {
		t.Errorf("unexpected running transitions: %v", rec.running)
	}
}
