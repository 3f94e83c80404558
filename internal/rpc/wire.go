// Package rpc exposes the daemon's Context and EventBus over the D-Bus
// session bus, and subscribes to the system/session signals the scheduler
// reacts to (see internal/scheduler).
//
// Bus names, object paths, and interface names are built by
// internal/busnames; this package only defines the exported service
// objects, their wire-safe argument types, and the signal subscriptions.
package rpc

import (
	"fmt"

	"activitywarden/internal/model"
)

// WireEvent is the D-Bus wire representation of model.Event. D-Bus has no
// native enum type, so EventType and Source travel as their canonical
// lowercase strings.
type WireEvent struct {
	EventType   string
	Source      string
	DisplayName string
	Metadata    string
}

func toWireEvent(e model.Event) WireEvent {
	return WireEvent{
		EventType:   e.EventType.String(),
		Source:      e.Source.String(),
		DisplayName: e.DisplayName,
		Metadata:    e.Metadata,
	}
}

func fromWireEvent(w WireEvent) (model.Event, error) {
	et, err := model.ParseEventType(w.EventType)
	if err != nil {
		return model.Event{}, err
	}
	source, err := model.ParseHost(w.Source)
	if err != nil {
		return model.Event{}, err
	}
	return model.Event{
		EventType:   et,
		Source:      source,
		DisplayName: w.DisplayName,
		Metadata:    w.Metadata,
	}, nil
}

// WireTimer is the D-Bus wire representation of model.Timer. AllowedDays
// travels as a variable-length bool array ("ab") of exactly 7 entries,
// index 0 = Sunday.
type WireTimer struct {
	DisplayName string
	Host        string
	TimeLimit   uint32
	AllowedDays []bool
}

func toWireTimer(t model.Timer) WireTimer {
	days := make([]bool, len(t.AllowedDays))
	copy(days, t.AllowedDays[:])
	return WireTimer{
		DisplayName: t.DisplayName,
		Host:        t.Host.String(),
		TimeLimit:   t.TimeLimit,
		AllowedDays: days,
	}
}

func fromWireTimer(w WireTimer) (model.Timer, error) {
	host, err := model.ParseHost(w.Host)
	if err != nil {
		return model.Timer{}, err
	}
	var days [7]bool
	if len(w.AllowedDays) != len(days) {
		return model.Timer{}, fmt.Errorf("rpc: allowed_days has %d entries, want %d", len(w.AllowedDays), len(days))
	}
	copy(days[:], w.AllowedDays)
	return model.Timer{
		DisplayName: w.DisplayName,
		Host:        host,
		TimeLimit:   w.TimeLimit,
		AllowedDays: days,
	}, nil
}

// WireFocusChange is the D-Bus wire representation of model.FocusChange.
// Timestamp travels as Unix seconds since time.Time has no native D-Bus
// encoding.
type WireFocusChange struct {
	Host        string
	DisplayName string
	Timestamp   int64
	Duration    uint32
}

func toWireFocusChange(fc model.FocusChange) WireFocusChange {
	return WireFocusChange{
		Host:        fc.Host.String(),
		DisplayName: fc.DisplayName,
		Timestamp:   fc.Timestamp.Unix(),
		Duration:    fc.Duration,
	}
}

// WireDaemonSnapshot is the D-Bus wire representation of
// model.DaemonSnapshot. DurationMap's two-level mapping travels as a
// two-level D-Bus dict (a{s a{su}}).
type WireDaemonSnapshot struct {
	Timers    []WireTimer
	Durations map[string]map[string]uint32
}

func toWireSnapshot(s model.DaemonSnapshot) WireDaemonSnapshot {
	timers := make([]WireTimer, len(s.Timers))
	for i, t := range s.Timers {
		timers[i] = toWireTimer(t)
	}
	durations := make(map[string]map[string]uint32, len(s.Durations))
	for host, byName := range s.Durations {
		durations[host.String()] = byName
	}
	return WireDaemonSnapshot{Timers: timers, Durations: durations}
}
