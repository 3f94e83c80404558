package model

import "time"

// FocusChange is a closed segment of attention: the target was in focus
// from some prior LastEvent until Timestamp, for Duration seconds.
type FocusChange struct {
	Host        Host
	DisplayName string
	Timestamp   time.Time
	Duration    uint32
}

// LastEvent records the most recent focus acquisition for one source. At
// most one LastEvent exists per Host at any time.
type LastEvent struct {
	Time  time.Time
	Event Event
}

// DurationMap accumulates seconds spent today, grouped by Host and then by
// display name.
type DurationMap map[Host]map[string]uint32

// Add increments the accumulated duration for (host, displayName),
// creating intermediate maps as needed.
func (d DurationMap) Add(host Host, displayName string, seconds uint32) {
	byName, ok := d[host]
	if !ok {
		byName = make(map[string]uint32)
		d[host] = byName
	}
	byName[displayName] += seconds
}

// Get returns the accumulated duration for (host, displayName), or 0 if
// nothing has been recorded.
func (d DurationMap) Get(host Host, displayName string) uint32 {
	byName, ok := d[host]
	if !ok {
		return 0
	}
	return byName[displayName]
}

// DaemonSnapshot is a consistent read of timers plus today's durations,
// returned to GUI callers over the DaemonContext RPC interface.
type DaemonSnapshot struct {
	Timers    []Timer
	Durations DurationMap
}
