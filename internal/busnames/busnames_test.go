package busnames

import (
	"testing"

	"activitywarden/internal/model"
)

func TestBusName(t *testing.T) {
	if got, want := BusName(model.HostUserDaemon), "com.activity_warden.user_daemon"; got != want {
		t.Fatalf("BusName() = %q, want %q", got, want)
	}
}

func TestObjectPath(t *testing.T) {
	got := ObjectPath(model.HostFirefoxWatcher, InterfaceWatcher)
	want := "/com/activity_warden/firefox_watcher/Watcher"
	if got != want {
		t.Fatalf("ObjectPath() = %q, want %q", got, want)
	}
}

func TestInterfaceName(t *testing.T) {
	if got, want := InterfaceName(InterfaceDaemonContext), "com.activity_warden.DaemonContext"; got != want {
		t.Fatalf("InterfaceName() = %q, want %q", got, want)
	}
}
