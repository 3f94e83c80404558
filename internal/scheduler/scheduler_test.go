package scheduler

import (
	stdcontext "context"
	"sync"
	"testing"
	"time"

	"activitywarden/internal/context"
	"activitywarden/internal/eventbus"
	"activitywarden/internal/model"
	"activitywarden/internal/store"
)

type fakeNotifier struct {
	mu   sync.Mutex
	seen []model.FocusChange
}

func (f *fakeNotifier) EmitDurationChanged(fc model.FocusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, fc)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

type fakeWatcherRequester struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeWatcherRequester) RequestClose(host model.Host, metadataJSON string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, metadataJSON)
	return nil
}

func (f *fakeWatcherRequester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(t *testing.T) (*Scheduler, *context.Context, *fakeNotifier, *fakeWatcherRequester) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx, err := context.NewContext(s)
	if err != nil {
		t.Fatalf("context.NewContext: %v", err)
	}

	notifier := &fakeNotifier{}
	watcher := &fakeWatcherRequester{}
	sched := New(eventbus.New(), ctx, notifier, watcher, nil, nil, 0)
	return sched, ctx, notifier, watcher
}

func allowAllDays() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

func TestClassifyIgnoreWithNoTimer(t *testing.T) {
	action := classify(nil, 0, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionIgnore {
		t.Fatalf("got %v, want ActionIgnore", action.Kind)
	}
}

func TestClassifyZeroLimitBlocks(t *testing.T) {
	timers := []model.Timer{{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 0, AllowedDays: allowAllDays(),
	}}
	action := classify(timers, 0, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionBlock || action.Reason != blockReasonZeroLimit {
		t.Fatalf("got %+v, want ActionBlock/zero-limit", action)
	}
}

func TestClassifyDisallowedDayBlocks(t *testing.T) {
	timers := []model.Timer{{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 60, AllowedDays: [7]bool{}, // no day allowed
	}}
	action := classify(timers, 0, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionBlock || action.Reason != blockReasonDisallowedDay {
		t.Fatalf("got %+v, want ActionBlock/disallowed-day", action)
	}
}

func TestClassifyExhaustedBlocks(t *testing.T) {
	timers := []model.Timer{{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 60, AllowedDays: allowAllDays(),
	}}
	action := classify(timers, 60, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionBlock || action.Reason != blockReasonExhausted {
		t.Fatalf("got %+v, want ActionBlock/exhausted", action)
	}
}

func TestClassifyTimeRemaining(t *testing.T) {
	timers := []model.Timer{{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 60, AllowedDays: allowAllDays(),
	}}
	action := classify(timers, 20, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionTime || action.Remaining != 40 {
		t.Fatalf("got %+v, want ActionTime{Remaining:40}", action)
	}
}

func TestClassifyMatchesByDisplayNameAcrossHosts(t *testing.T) {
	timers := []model.Timer{{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 0, AllowedDays: allowAllDays(),
	}}
	action := classify(timers, 0, model.HostGnomeApplication, "news.example")
	if action.Kind != ActionBlock {
		t.Fatalf("expected a timer to match by display name regardless of host, got %+v", action)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	timers := []model.Timer{
		{DisplayName: "news.example", Host: model.HostFirefoxWatcher, TimeLimit: 0, AllowedDays: allowAllDays()},
		{DisplayName: "news.example", Host: model.HostFirefoxWatcher, TimeLimit: 60, AllowedDays: allowAllDays()},
	}
	action := classify(timers, 0, model.HostFirefoxWatcher, "news.example")
	if action.Kind != ActionBlock || action.Reason != blockReasonZeroLimit {
		t.Fatalf("expected the first matching timer to win, got %+v", action)
	}
}

func TestHandleFocusChangeIgnoreRecordsNoBlock(t *testing.T) {
	sched, _, notifier, watcher := newTestScheduler(t)

	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher, DisplayName: "news.example",
	})
	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher, DisplayName: "other.example",
	})

	time.Sleep(10 * time.Millisecond) // let any spawned goroutine settle
	if watcher.count() != 0 {
		t.Fatalf("expected no close requests for untimed targets, got %d", watcher.count())
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one FocusChange (closing the first session), got %d", notifier.count())
	}
}

func TestHandleFocusChangeBlockDoesNotOpenSession(t *testing.T) {
	sched, ctx, _, watcher := newTestScheduler(t)
	if err := ctx.InsertTimer(model.Timer{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 0, AllowedDays: allowAllDays(),
	}); err != nil {
		t.Fatalf("InsertTimer: %v", err)
	}

	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher,
		DisplayName: "news.example", Metadata: `"42"`,
	})

	deadline := time.Now().Add(200 * time.Millisecond)
	for watcher.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if watcher.count() != 1 {
		t.Fatalf("expected one close request, got %d", watcher.count())
	}
	if watcher.calls[0] != `"42"` {
		t.Fatalf("expected canonicalized metadata %q, got %q", `"42"`, watcher.calls[0])
	}
	if len(ctx.Timers()) != 1 {
		t.Fatal("timer should still be present")
	}
}

func TestMidnightClosesAndReopensSessions(t *testing.T) {
	sched, _, notifier, _ := newTestScheduler(t)

	// Open a session (no timer: Ignore, sets LastEvent without emitting).
	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher, DisplayName: "news.example",
	})
	if notifier.count() != 0 {
		t.Fatalf("expected no FocusChange before midnight, got %d", notifier.count())
	}

	// Midnight closes the segment and immediately reopens it.
	sched.handleMidnight()
	if notifier.count() != 1 {
		t.Fatalf("expected one FocusChange at midnight, got %d", notifier.count())
	}

	// The reopened session closes normally on the next FocusLost.
	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusLost, Source: model.HostFirefoxWatcher,
	})
	if notifier.count() != 2 {
		t.Fatalf("expected the reopened session to close on FocusLost, got %d", notifier.count())
	}
}

func TestRunSuspendClosesOpenSessions(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	ctx, err := context.NewContext(s)
	if err != nil {
		t.Fatalf("context.NewContext: %v", err)
	}

	bus := eventbus.New()
	notifier := &fakeNotifier{}
	suspend := make(chan bool, 1)
	sched := New(bus, ctx, notifier, &fakeWatcherRequester{}, suspend, nil, 0)

	shutdown := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- sched.Run(stdcontext.Background(), shutdown) }()

	if _, err := bus.Send(model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher, DisplayName: "news.example",
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	time.Sleep(50 * time.Millisecond) // let the loop open the session

	suspend <- true
	deadline := time.Now().Add(time.Second)
	for notifier.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected suspend to close the open session, got %d changes", notifier.count())
	}

	close(shutdown)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCancellationSkipsFirstTimersClose(t *testing.T) {
	sched, ctx, _, watcher := newTestScheduler(t)
	if err := ctx.InsertTimer(model.Timer{
		DisplayName: "news.example", Host: model.HostFirefoxWatcher,
		TimeLimit: 60, AllowedDays: allowAllDays(),
	}); err != nil {
		t.Fatalf("InsertTimer: %v", err)
	}

	// First event schedules a 60s deferred block.
	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher,
		DisplayName: "news.example", Metadata: `"42"`,
	})
	// Second event (no timer) arrives before the deadline and must cancel it.
	sched.handleEvent(stdcontext.Background(), model.Event{
		EventType: model.EventFocusChange, Source: model.HostFirefoxWatcher,
		DisplayName: "untimed.example",
	})

	time.Sleep(20 * time.Millisecond)
	if watcher.count() != 0 {
		t.Fatalf("expected the pending close to be cancelled, got %d calls", watcher.count())
	}
}
