package rpc

import (
	"github.com/godbus/dbus/v5"
)

const (
	loginManagerInterface = "org.freedesktop.login1.Manager"
	prepareForSleepMember = "PrepareForSleep"

	screenSaverInterface = "org.gnome.ScreenSaver"
	activeChangedMember  = "ActiveChanged"
)

// SubscribeSuspend subscribes to org.freedesktop.login1.Manager's
// PrepareForSleep signal on the system bus and returns a channel carrying
// the "start" argument (true = about to sleep, false = just resumed).
func SubscribeSuspend(conn *dbus.Conn) (<-chan bool, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(loginManagerInterface),
		dbus.WithMatchMember(prepareForSleepMember),
	); err != nil {
		return nil, err
	}
	return subscribeBoolSignal(conn, loginManagerInterface, prepareForSleepMember), nil
}

// SubscribeScreenSaver subscribes to org.gnome.ScreenSaver's
// ActiveChanged signal on the session bus and returns a channel carrying
// the "active" argument.
func SubscribeScreenSaver(conn *dbus.Conn) (<-chan bool, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(screenSaverInterface),
		dbus.WithMatchMember(activeChangedMember),
	); err != nil {
		return nil, err
	}
	return subscribeBoolSignal(conn, screenSaverInterface, activeChangedMember), nil
}

func subscribeBoolSignal(conn *dbus.Conn, iface, member string) <-chan bool {
	raw := make(chan *dbus.Signal, 16)
	conn.Signal(raw)

	out := make(chan bool, 16)
	go func() {
		defer close(out)
		for sig := range raw {
			if sig.Name != iface+"."+member {
				continue
			}
			if len(sig.Body) == 0 {
				continue
			}
			if v, ok := sig.Body[0].(bool); ok {
				out <- v
			}
		}
	}()
	return out
}
