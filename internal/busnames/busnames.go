// Package busnames builds the well-known bus names, object paths, and
// interface names used to address daemon components on the session bus.
package busnames

import (
	"fmt"

	"activitywarden/internal/model"
)

const (
	baseURL  = "com.activity_warden"
	basePath = "/com/activity_warden"
)

// Interface identifies one of the D-Bus interfaces a component exports.
type Interface string

const (
	InterfaceEventBus      Interface = "EventBus"
	InterfaceWatcher       Interface = "Watcher"
	InterfaceDaemonContext Interface = "DaemonContext"
)

func (i Interface) String() string {
	return string(i)
}

// BusName returns the well-known bus name a host requests, e.g.
// "com.activity_warden.user_daemon".
func BusName(host model.Host) string {
	return fmt.Sprintf("%s.%s", baseURL, host)
}

// ObjectPath returns the object path at which host exports iface, e.g.
// "/com/activity_warden/user_daemon/EventBus".
func ObjectPath(host model.Host, iface Interface) string {
	return fmt.Sprintf("%s/%s/%s", basePath, host, iface)
}

// InterfaceName returns the fully qualified interface name, e.g.
// "com.activity_warden.EventBus".
func InterfaceName(iface Interface) string {
	return fmt.Sprintf("%s.%s", baseURL, iface)
}
