// Package context holds the daemon's authoritative in-memory state: the
// current timer set, per-source last-focus records, today's accumulated
// durations, and the local date they belong to.
//
// Timers are published via read-copy-update so RPC readers never block on
// the scheduler; the duration map, last-event table, and current date are
// touched only by the scheduler goroutine (see internal/scheduler).
package context

import (
	"fmt"
	"sync/atomic"
	"time"

	"activitywarden/internal/model"
	"activitywarden/internal/store"
)

// Context is the single logical owner of mutable daemon state.
type Context struct {
	store *store.Store

	timers atomic.Pointer[[]model.Timer]

	// Owned exclusively by the scheduler goroutine; RPC handlers must
	// never read or write these directly.
	durations model.DurationMap
	lastEvent map[model.Host]model.LastEvent
	curDate   time.Time
}

// NewContext loads the persisted timer set and today's durations and
// returns a ready-to-use Context.
func NewContext(s *store.Store) (*Context, error) {
	timers, err := s.SelectTimers()
	if err != nil {
		return nil, fmt.Errorf("context: load timers: %w", err)
	}
	durations, err := s.SelectCurrentDurations()
	if err != nil {
		return nil, fmt.Errorf("context: load durations: %w", err)
	}

	c := &Context{
		store:     s,
		durations: durations,
		lastEvent: make(map[model.Host]model.LastEvent),
		curDate:   today(),
	}
	c.timers.Store(&timers)
	return c, nil
}

func today() time.Time {
	now := time.Now().In(time.Local)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}

// Timers returns a snapshot of the current timer set. Safe for any number
// of concurrent callers; never blocks on a writer.
func (c *Context) Timers() []model.Timer {
	p := c.timers.Load()
	if p == nil {
		return nil
	}
	return *p
}

// ResetDailyState clears the duration map and last-event table and
// advances curDate when the local date has moved on since the last call.
// Scheduler-only.
func (c *Context) ResetDailyState() {
	if t := today(); !t.Equal(c.curDate) {
		c.durations = make(model.DurationMap)
		c.lastEvent = make(map[model.Host]model.LastEvent)
		c.curDate = t
	}
}

// ClearLastEvent closes every currently open session by synthesizing a
// FocusLost event for each source with a LastEvent, then removing it.
// Used on suspend and on screensaver-active transitions. Scheduler-only.
func (c *Context) ClearLastEvent() error {
	for host, last := range c.lastEvent {
		lost := model.Event{
			EventType:   model.EventFocusLost,
			Source:      host,
			DisplayName: last.Event.DisplayName,
			Metadata:    last.Event.Metadata,
		}
		if _, err := c.UpdateEventDurations(lost, false); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEventDurations is the core state transition: it closes the prior
// session for event.Source (if any), persists and accumulates its
// duration, and opens (or clears) the session depending on setLastEvent.
// Scheduler-only.
func (c *Context) UpdateEventDurations(event model.Event, setLastEvent bool) (*model.FocusChange, error) {
	now := time.Now().UTC()

	var result *model.FocusChange
	if last, ok := c.lastEvent[event.Source]; ok {
		elapsed := now.Sub(last.Time).Seconds()
		if elapsed < 0 {
			elapsed = 0 // clock skew: never record a negative duration
		}
		fc := model.FocusChange{
			Host:        last.Event.Source,
			DisplayName: last.Event.DisplayName,
			Timestamp:   now,
			Duration:    uint32(elapsed),
		}
		if err := c.store.InsertFocusChange(fc); err != nil {
			return nil, fmt.Errorf("context: persist focus change: %w", err)
		}
		c.durations.Add(fc.Host, fc.DisplayName, fc.Duration)
		result = &fc
	}

	if setLastEvent {
		c.lastEvent[event.Source] = model.LastEvent{Time: now, Event: event}
	} else {
		delete(c.lastEvent, event.Source)
	}

	return result, nil
}

// AccumulatedSeconds returns today's accumulated duration for (host,
// displayName) from the in-memory map. Scheduler-only: RPC readers must
// use GetDaemonSnapshot instead.
func (c *Context) AccumulatedSeconds(host model.Host, displayName string) uint32 {
	return c.durations.Get(host, displayName)
}

// ReopenAllSessions closes and immediately reopens every currently open
// session, used by the scheduler's midnight handler to split a session
// spanning local midnight into two FocusChanges. Scheduler-only.
func (c *Context) ReopenAllSessions() ([]model.FocusChange, error) {
	var changes []model.FocusChange
	for _, last := range c.lastEvent {
		fc, err := c.UpdateEventDurations(last.Event, true)
		if err != nil {
			return changes, err
		}
		if fc != nil {
			changes = append(changes, *fc)
		}
	}
	return changes, nil
}

// GetDaemonSnapshot returns the current timer set plus today's durations,
// re-derived from persistence (not the in-memory map) so RPC callers see
// only committed data and are never skewed by a pending scheduler write.
func (c *Context) GetDaemonSnapshot() (model.DaemonSnapshot, error) {
	durations, err := c.store.SelectCurrentDurations()
	if err != nil {
		return model.DaemonSnapshot{}, fmt.Errorf("context: snapshot durations: %w", err)
	}
	return model.DaemonSnapshot{
		Timers:    c.Timers(),
		Durations: durations,
	}, nil
}

// IsLocked reports whether a password hash is currently stored.
func (c *Context) IsLocked() (bool, error) {
	_, locked, err := c.store.CurrentPasswordHash()
	if err != nil {
		return false, fmt.Errorf("context: is locked: %w", err)
	}
	return locked, nil
}

// ProcessPasswordSubmission implements the lock/unlock toggle: if locked,
// a matching plaintext unlocks (returns true) and a mismatch leaves it
// locked (returns false); if unlocked, any submission locks the session
// with that password and returns false. The returned bool means "unlocked
// now".
func (c *Context) ProcessPasswordSubmission(plain string) (bool, error) {
	stored, locked, err := c.store.CurrentPasswordHash()
	if err != nil {
		return false, fmt.Errorf("context: process password: %w", err)
	}

	if !locked {
		if err := c.store.SetNewPassword(plain); err != nil {
			return false, fmt.Errorf("context: set password: %w", err)
		}
		return false, nil
	}

	if store.HashPassword(plain) == stored {
		if err := c.store.RemovePassword(); err != nil {
			return false, fmt.Errorf("context: remove password: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// InsertTimer adds t to the in-memory timer set (copy-modify-swap) and
// then persists it.
func (c *Context) InsertTimer(t model.Timer) error {
	next := append(append([]model.Timer{}, c.Timers()...), t)
	c.timers.Store(&next)
	if err := c.store.ModifyTimer(store.QueryInsert, t); err != nil {
		return fmt.Errorf("context: insert timer: %w", err)
	}
	return nil
}

// DeleteTimer removes every timer matching t's (Host, DisplayName) from
// the in-memory set and persists the deletion.
func (c *Context) DeleteTimer(t model.Timer) error {
	var next []model.Timer
	for _, existing := range c.Timers() {
		if !existing.SameTarget(t) {
			next = append(next, existing)
		}
	}
	c.timers.Store(&next)
	if err := c.store.ModifyTimer(store.QueryDelete, t); err != nil {
		return fmt.Errorf("context: delete timer: %w", err)
	}
	return nil
}

// UpdateTimer replaces every timer matching t's (Host, DisplayName) with
// t, preserving order, and persists the update.
func (c *Context) UpdateTimer(t model.Timer) error {
	next := append([]model.Timer{}, c.Timers()...)
	for i, existing := range next {
		if existing.SameTarget(t) {
			next[i] = t
		}
	}
	c.timers.Store(&next)
	if err := c.store.ModifyTimer(store.QueryUpdate, t); err != nil {
		return fmt.Errorf("context: update timer: %w", err)
	}
	return nil
}
