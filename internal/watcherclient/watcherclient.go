// Package watcherclient is the daemon's outbound RPC proxy for asking a
// watcher to close a target once its budget is exhausted.
package watcherclient

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"activitywarden/internal/busnames"
	"activitywarden/internal/model"
)

const requestCloseMember = "RequestClose"

// Client issues RequestClose calls to watchers over the session bus.
// Constructed once and reused; each call builds a fresh proxy object for
// the target host.
type Client struct {
	conn *dbus.Conn
}

// New wraps conn, the session bus connection used to dispatch outbound
// RequestClose calls.
func New(conn *dbus.Conn) *Client {
	return &Client{conn: conn}
}

// RequestClose asks host's Watcher interface to close the target
// identified by metadataJSON (a canonical JSON string, e.g. a
// re-marshaled tab id for the Firefox watcher).
func (c *Client) RequestClose(host model.Host, metadataJSON string) error {
	obj := c.conn.Object(busnames.BusName(host), dbus.ObjectPath(busnames.ObjectPath(host, busnames.InterfaceWatcher)))
	call := obj.Call(busnames.InterfaceName(busnames.InterfaceWatcher)+"."+requestCloseMember, 0, metadataJSON)
	if call.Err != nil {
		return fmt.Errorf("watcherclient: request close on %s: %w", host, call.Err)
	}
	return nil
}
