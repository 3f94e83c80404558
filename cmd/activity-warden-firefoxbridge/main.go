// Command activity-warden-firefoxbridge is the Firefox native-messaging
// host: it relays focus/blur events from the browser extension to the
// user daemon's event bus, and serves a Watcher D-Bus interface so the
// daemon can ask it to close a tab once that tab's timer is exhausted.
//
// The bridge reads a length-prefixed JSON frame from stdin, ACKs it
// immediately, translates it into an Event, and forwards it over the
// session bus.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"

	"activitywarden/internal/busnames"
	"activitywarden/internal/model"
	"activitywarden/internal/natmsg"
	"activitywarden/internal/rpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "activity-warden-firefoxbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	watcher := newFirefoxWatcher(os.Stdout)
	path := busnames.ObjectPath(model.HostFirefoxWatcher, busnames.InterfaceWatcher)
	if err := conn.Export(watcher, dbus.ObjectPath(path), busnames.InterfaceName(busnames.InterfaceWatcher)); err != nil {
		return fmt.Errorf("export watcher: %w", err)
	}

	reply, err := conn.RequestName(busnames.BusName(model.HostFirefoxWatcher), dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already owned by another process", busnames.BusName(model.HostFirefoxWatcher))
	}

	eventBus := conn.Object(
		busnames.BusName(model.HostUserDaemon),
		dbus.ObjectPath(busnames.ObjectPath(model.HostUserDaemon, busnames.InterfaceEventBus)),
	)
	eventBusIface := busnames.InterfaceName(busnames.InterfaceEventBus) + ".SendEventMsg"

	return pumpMessages(os.Stdin, watcher, eventBus, eventBusIface)
}

// pumpMessages reads frames from r until the extension closes the pipe,
// ACKing each one and forwarding the translated event to sendEventMsg.
// Outbound frames go through w so ACKs never interleave with a
// concurrent Close frame from the daemon.
func pumpMessages(r io.Reader, w *firefoxWatcher, eventBus dbus.BusObject, sendEventMsgMethod string) error {
	for {
		var in natmsg.InboundMessage
		if err := natmsg.ReadMessage(r, &in); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		if err := w.writeMessage(natmsg.NewAck()); err != nil {
			return fmt.Errorf("write ack: %w", err)
		}

		event, err := translateEvent(in)
		if err != nil {
			return fmt.Errorf("translate message: %w", err)
		}

		wire := rpc.WireEvent{
			EventType:   event.EventType.String(),
			Source:      event.Source.String(),
			DisplayName: event.DisplayName,
			Metadata:    event.Metadata,
		}
		if call := eventBus.Call(sendEventMsgMethod, 0, wire); call.Err != nil {
			// A dropped event is not fatal to the bridge; the extension
			// resends on the next focus change.
			continue
		}
	}
}

// translateEvent converts an inbound extension message into a daemon
// Event.
func translateEvent(in natmsg.InboundMessage) (model.Event, error) {
	switch in.EventType {
	case "focus_change":
		tabID, err := json.Marshal(in.TabID)
		if err != nil {
			return model.Event{}, fmt.Errorf("marshal tab id: %w", err)
		}
		return model.Event{
			EventType:   model.EventFocusChange,
			Source:      model.HostFirefoxWatcher,
			DisplayName: in.DisplayName,
			Metadata:    string(tabID),
		}, nil
	case "focus_lost":
		return model.Event{
			EventType:   model.EventFocusLost,
			Source:      model.HostFirefoxWatcher,
			DisplayName: "",
			Metadata:    "",
		}, nil
	default:
		return model.Event{}, fmt.Errorf("unexpected event type: %q", in.EventType)
	}
}

// firefoxWatcher implements the Watcher D-Bus interface by writing a
// Close frame back to the extension.
type firefoxWatcher struct {
	mu sync.Mutex
	w  io.Writer
}

func newFirefoxWatcher(w io.Writer) *firefoxWatcher {
	return &firefoxWatcher{w: w}
}

// writeMessage frames and writes one outbound message while holding the
// writer lock.
func (f *firefoxWatcher) writeMessage(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return natmsg.WriteMessage(f.w, v)
}

// RequestClose asks the extension to close the tab identified by
// metadata (the JSON-encoded tab id the daemon received back in
// SendEventMsg's Event.Metadata).
func (f *firefoxWatcher) RequestClose(metadata string) *dbus.Error {
	if err := f.writeMessage(natmsg.NewClose(metadata)); err != nil {
		return dbus.NewError(busnames.InterfaceName(busnames.InterfaceWatcher)+".WriteError", []interface{}{err.Error()})
	}
	return nil
}
