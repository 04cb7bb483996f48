package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mfenderov/contentloop/internal/events"
	"github.com/mfenderov/contentloop/pkg/models"
)

// blockingFetcher holds a fetch open until release is closed.
type blockingFetcher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingFetcher) Fetch(ctx context.Context, _ models.Source, _ int) ([]models.FetchedItem, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil, nil
}

func TestCoordinator_SingleFlight(t *testing.T) {
	s := setupStore(t)
	addTenant(t, s, crawlTenant("u1"))
	addSource(t, s, models.Source{UserID: "u1", Name: "slow", URL: "https://slow.example"})

	blocker := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	p, _ := newTestPipeline(t, Deps{Store: s, Fetchers: fakeResolver{"slow": blocker}})
	c := NewCoordinator(p)

	if c.Status().Running || c.Status().LastResult != nil {
		t.Fatalf("fresh coordinator Status() = %+v, want idle", c.Status())
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Trigger(t.Context(), "")
		done <- err
	}()

	select {
	case <-blocker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached the fetcher")
	}

	if !c.Status().Running {
		t.Error("Status().Running = false during a run")
	}
	if _, err := c.Trigger(t.Context(), ""); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Trigger() error = %v, want ErrAlreadyRunning", err)
	}
	if _, err := c.Tick(t.Context()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Tick() during run error = %v, want ErrAlreadyRunning", err)
	}

	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first Trigger() error = %v", err)
	}

	st := c.Status()
	if st.Running {
		t.Error("Status().Running = true after the run")
	}
	if st.LastRunAt == nil || !st.LastRunAt.Equal(testNow) {
		t.Errorf("LastRunAt = %v, want %v", st.LastRunAt, testNow)
	}
	if st.LastResult == nil || st.LastResult.Trigger != TriggerManual || st.LastResult.Crawl.SourcesCrawled != 1 {
		t.Errorf("LastResult = %+v", st.LastResult)
	}

	if _, err := c.Trigger(t.Context(), ""); err != nil {
		t.Errorf("Trigger() after the run error = %v", err)
	}
}

func TestCoordinator_TriggerScopedToTenant(t *testing.T) {
	s := setupStore(t)
	addTenant(t, s, crawlTenant("u1"))
	addTenant(t, s, crawlTenant("u2"))
	addSource(t, s, models.Source{UserID: "u1", Name: "one", URL: "https://one.example"})
	addSource(t, s, models.Source{UserID: "u2", Name: "two", URL: "https://two.example"})

	one, two := &fakeFetcher{}, &fakeFetcher{}
	p, _ := newTestPipeline(t, Deps{Store: s, Fetchers: fakeResolver{"one": one, "two": two}})
	c := NewCoordinator(p)

	res, err := c.Trigger(t.Context(), "u2")
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if one.calls != 0 || two.calls != 1 {
		t.Errorf("fetch calls one=%d two=%d, want 0 and 1", one.calls, two.calls)
	}
	if res.UserID != "u2" || res.Crawl.TenantsCrawled != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestCoordinator_TriggerUnknownTenant(t *testing.T) {
	p, _ := newTestPipeline(t, Deps{})
	c := NewCoordinator(p)

	res, err := c.Trigger(t.Context(), "nobody")
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if len(res.Crawl.Errors) != 1 {
		t.Errorf("crawl errors = %v, want the tenant lookup failure", res.Crawl.Errors)
	}
	if c.Status().Running {
		t.Error("coordinator should be idle after a failed run")
	}
}

func TestCoordinator_TickNotifies(t *testing.T) {
	s := setupStore(t)
	addTenant(t, s, crawlTenant("u1"))
	addSource(t, s, models.Source{UserID: "u1", Name: "blog", URL: "https://blog.example"})
	f := &fakeFetcher{items: []models.FetchedItem{{URL: "https://blog.example/1", Body: "hello"}}}

	p, _ := newTestPipeline(t, Deps{Store: s, Fetchers: fakeResolver{"blog": f}})
	c := NewCoordinator(p)
	ch := make(chan events.RunCompleted, 1)
	c.Notify(ch)

	if _, err := c.Tick(t.Context()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Trigger != TriggerScheduled || ev.DocumentsCreated != 1 || ev.Extracted != 1 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("no RunCompleted event")
	}

	// A full channel drops the event instead of blocking the run.
	ch <- events.RunCompleted{}
	if _, err := c.Trigger(t.Context(), ""); err != nil {
		t.Fatalf("Trigger() with full channel error = %v", err)
	}
}

func TestCoordinator_RunStopsOnCancel(t *testing.T) {
	p, _ := newTestPipeline(t, Deps{})
	c := NewCoordinator(p)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, time.Hour) }()

	deadline := time.After(5 * time.Second)
	for c.Status().LastRunAt == nil {
		select {
		case <-deadline:
			t.Fatal("Run() did not tick immediately")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if err := c.Run(t.Context(), 0); err == nil {
		t.Error("Run() with zero interval should fail")
	}
}
