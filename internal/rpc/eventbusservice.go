package rpc

import (
	"github.com/godbus/dbus/v5"

	"activitywarden/internal/busnames"
	"activitywarden/internal/eventbus"
	"activitywarden/internal/model"
)

// EventBusService exports internal/eventbus.Bus on the session bus at
// /com/activity_warden/user_daemon/EventBus.
type EventBusService struct {
	bus *eventbus.Bus
}

// NewEventBusService wraps bus for D-Bus export.
func NewEventBusService(bus *eventbus.Bus) *EventBusService {
	return &EventBusService{bus: bus}
}

// SendEventMsg enqueues the event and returns the current subscriber
// count.
func (s *EventBusService) SendEventMsg(event WireEvent) (uint32, *dbus.Error) {
	e, err := fromWireEvent(event)
	if err != nil {
		return 0, dbus.NewError(busnames.InterfaceName(busnames.InterfaceEventBus)+".ProtocolError", []interface{}{err.Error()})
	}
	count, err := s.bus.Send(e)
	if err != nil {
		return 0, dbus.NewError(busnames.InterfaceName(busnames.InterfaceEventBus)+".TransportError", []interface{}{err.Error()})
	}
	return uint32(count), nil
}

// ExportEventBusService exports s at its well-known object path under the
// EventBus interface on conn.
func ExportEventBusService(conn *dbus.Conn, s *EventBusService) error {
	path := dbus.ObjectPath(busnames.ObjectPath(model.HostUserDaemon, busnames.InterfaceEventBus))
	return conn.Export(s, path, busnames.InterfaceName(busnames.InterfaceEventBus))
}
