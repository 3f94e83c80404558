// Package scheduler is the daemon's single-threaded event loop: it
// multiplexes the event bus, lifecycle signals, and the midnight alarm,
// classifies focus changes against timers, and owns the one pending
// "close on expiry" task.
package scheduler

import (
	stdcontext "context"
	"encoding/json"
	"time"

	"activitywarden/internal/context"
	"activitywarden/internal/eventbus"
	"activitywarden/internal/logging"
	"activitywarden/internal/model"
)

// Notifier publishes a FocusChange to DurationChanged subscribers.
// internal/rpc.ContextService satisfies this.
type Notifier interface {
	EmitDurationChanged(fc model.FocusChange) error
}

// WatcherRequester dispatches a close request to a watcher.
// internal/watcherclient.Client satisfies this.
type WatcherRequester interface {
	RequestClose(host model.Host, metadataJSON string) error
}

// DefaultShutdownPoll is the default interval of the loop's idle ticker.
// The ticker arm does no work of its own; shutdown is observed through
// the shutdown channel and the loop's context.
const DefaultShutdownPoll = 500 * time.Millisecond

// Scheduler drives the daemon: it receives focus events, classifies them
// against timers, accumulates durations, and issues block requests.
type Scheduler struct {
	bus          *eventbus.Bus
	ctx          *context.Context
	notifier     Notifier
	watcherCli   WatcherRequester
	suspendCh    <-chan bool
	screenCh     <-chan bool
	shutdownPoll time.Duration

	timerCancel stdcontext.CancelFunc
}

// New constructs a Scheduler. suspendCh and screenCh may be nil, in which
// case their select arms never fire (bus names unavailable in tests, for
// instance). A non-positive shutdownPoll falls back to
// DefaultShutdownPoll.
func New(bus *eventbus.Bus, ctx *context.Context, notifier Notifier, watcherCli WatcherRequester, suspendCh, screenCh <-chan bool, shutdownPoll time.Duration) *Scheduler {
	if shutdownPoll <= 0 {
		shutdownPoll = DefaultShutdownPoll
	}
	return &Scheduler{
		bus:          bus,
		ctx:          ctx,
		notifier:     notifier,
		watcherCli:   watcherCli,
		suspendCh:    suspendCh,
		screenCh:     screenCh,
		shutdownPoll: shutdownPoll,
	}
}

// Run multiplexes the event bus, the suspend and screensaver signals,
// the midnight alarm, and the shutdown poll until ctx is cancelled or
// shutdown is closed.
func (s *Scheduler) Run(ctx stdcontext.Context, shutdown <-chan struct{}) error {
	ticker := time.NewTicker(s.shutdownPoll)
	defer ticker.Stop()

	midnightTimer := time.NewTimer(durationUntilNextLocalMidnight())
	defer midnightTimer.Stop()

	for {
		select {
		case e := <-s.bus.Receive():
			s.handleEvent(ctx, e)

		case start, ok := <-s.suspendCh:
			if !ok {
				s.suspendCh = nil
				continue
			}
			logging.Info("scheduler: suspend signal", "start", start)
			if err := s.ctx.ClearLastEvent(); err != nil {
				logging.Error("scheduler: clear last event on suspend", "error", err)
			}

		case active, ok := <-s.screenCh:
			if !ok {
				s.screenCh = nil
				continue
			}
			logging.Info("scheduler: screensaver active-changed", "active", active)
			if err := s.ctx.ClearLastEvent(); err != nil {
				logging.Error("scheduler: clear last event on screensaver", "error", err)
			}

		case <-midnightTimer.C:
			s.handleMidnight()
			midnightTimer.Reset(durationUntilNextLocalMidnight())

		case <-shutdown:
			return nil

		case <-ticker.C:
			// Legacy shutdown-poll tick; it does nothing, since the
			// shutdown channel above already wakes the loop promptly on
			// SIGTERM.

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleEvent aborts any pending timer task, resets daily state, then
// branches on event type.
func (s *Scheduler) handleEvent(loopCtx stdcontext.Context, e model.Event) {
	s.abortTimerTask()
	s.ctx.ResetDailyState()

	switch e.EventType {
	case model.EventFocusChange:
		s.handleFocusChange(loopCtx, e)
	case model.EventFocusLost:
		s.emitFocusChange(s.ctx.UpdateEventDurations(e, false))
	case model.EventAFK:
		// Reserved; currently no effect.
	default:
		logging.Warn("scheduler: ignoring event with unrecognized type", "event_type", e.EventType)
	}
}

func (s *Scheduler) handleFocusChange(loopCtx stdcontext.Context, e model.Event) {
	accumulated := s.ctx.AccumulatedSeconds(e.Source, e.DisplayName)
	action := classify(s.ctx.Timers(), accumulated, e.Source, e.DisplayName)

	switch action.Kind {
	case ActionTime:
		s.emitFocusChange(s.ctx.UpdateEventDurations(e, true))
		taskCtx, cancel := stdcontext.WithCancel(loopCtx)
		s.timerCancel = cancel
		go s.blockDisplayName(taskCtx, e, action.Remaining)

	case ActionBlock:
		if action.Reason == blockReasonZeroLimit {
			logging.Info("scheduler: blocking target, timer is allotted 0 seconds",
				"host", e.Source, "display_name", e.DisplayName)
		} else {
			logging.Info("scheduler: blocking target",
				"host", e.Source, "display_name", e.DisplayName, "reason", action.Reason)
		}
		// Immediate close: no session begins, no duration accumulates.
		go s.blockDisplayName(loopCtx, e, 0)

	case ActionIgnore:
		s.emitFocusChange(s.ctx.UpdateEventDurations(e, true))
	}
}

func (s *Scheduler) emitFocusChange(fc *model.FocusChange, err error) {
	if err != nil {
		logging.Error("scheduler: update event durations", "error", err)
		return
	}
	if fc == nil {
		return
	}
	if err := s.notifier.EmitDurationChanged(*fc); err != nil {
		logging.Error("scheduler: emit duration changed", "error", err)
	}
}

func (s *Scheduler) abortTimerTask() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

func (s *Scheduler) handleMidnight() {
	changes, err := s.ctx.ReopenAllSessions()
	if err != nil {
		logging.Error("scheduler: reopen sessions at midnight", "error", err)
	}
	for _, fc := range changes {
		if err := s.notifier.EmitDurationChanged(fc); err != nil {
			logging.Error("scheduler: emit duration changed at midnight", "error", err)
		}
	}
}

// durationUntilNextLocalMidnight is the time remaining until 00:00:00
// local tomorrow, so sessions spanning the day boundary can be split.
func durationUntilNextLocalMidnight() time.Duration {
	now := time.Now().In(time.Local)
	tomorrow := now.AddDate(0, 0, 1)
	midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.Local)
	return midnight.Sub(now)
}

// blockDisplayName dispatches a close request to the originating watcher
// after an optional timeout. Cancellation via taskCtx unwinds without
// performing the close.
func (s *Scheduler) blockDisplayName(taskCtx stdcontext.Context, e model.Event, timeoutSeconds uint32) {
	if timeoutSeconds > 0 {
		select {
		case <-time.After(time.Duration(timeoutSeconds) * time.Second):
		case <-taskCtx.Done():
			return
		}
	}

	switch e.Source {
	case model.HostFirefoxWatcher:
		canonical, err := canonicalizeJSON(e.Metadata)
		if err != nil {
			logging.Error("scheduler: canonicalize close metadata", "error", err)
			return
		}
		if err := s.watcherCli.RequestClose(e.Source, canonical); err != nil {
			logging.Error("scheduler: request close", "host", e.Source, "error", err)
		}
	default:
		logging.Error("scheduler: block_display_name not implemented for host", "host", e.Source,
			"error", &UnsupportedWatcherError{Host: e.Source})
	}
}

// canonicalizeJSON round-trips raw through encoding/json so the outbound
// message is a canonical re-encoding of the tab-id metadata, and invalid
// metadata is rejected before it reaches the watcher.
func canonicalizeJSON(raw string) (string, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// UnsupportedWatcherError is logged (not panicked) by blockDisplayName
// when it is asked to close a target on a host with no implemented close
// path.
type UnsupportedWatcherError struct {
	Host model.Host
}

func (e *UnsupportedWatcherError) Error() string {
	return "scheduler: closing targets on host " + string(e.Host) + " is not implemented"
}
