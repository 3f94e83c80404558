// Package model holds the wire and persistence types shared by every
// component of the activity warden daemon: hosts, events, timers, focus
// changes, and the duration map they accumulate into.
package model

import "fmt"

// Host identifies the origin of a focus event, or the identity a daemon
// component serves on the bus.
type Host string

const (
	HostUserDaemon       Host = "user_daemon"
	HostFirefoxWatcher   Host = "firefox_watcher"
	HostGnomeApplication Host = "gnome_application"
	HostGnomeExtension   Host = "gnome_extension"
)

// String returns the canonical lowercase wire form.
func (h Host) String() string {
	return string(h)
}

// ParseHost decodes the canonical lowercase wire form produced by String.
func ParseHost(s string) (Host, error) {
	switch Host(s) {
	case HostUserDaemon, HostFirefoxWatcher, HostGnomeApplication, HostGnomeExtension:
		return Host(s), nil
	default:
		return "", fmt.Errorf("model: %q is not a valid host", s)
	}
}
