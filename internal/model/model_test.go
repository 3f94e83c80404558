package model

import "testing"

func TestHostRoundTrip(t *testing.T) {
	for _, h := range []Host{HostUserDaemon, HostFirefoxWatcher, HostGnomeApplication, HostGnomeExtension} {
		parsed, err := ParseHost(h.String())
		if err != nil {
			t.Fatalf("ParseHost(%q): %v", h, err)
		}
		if parsed != h {
			t.Fatalf("ParseHost(%q) = %q, want %q", h, parsed, h)
		}
	}
}

func TestParseHostRejectsUnknown(t *testing.T) {
	if _, err := ParseHost("carrier_pigeon"); err == nil {
		t.Fatal("expected an error for an unknown host")
	}
}

func TestParseEventTypeRejectsUnknown(t *testing.T) {
	if _, err := ParseEventType("teleport"); err == nil {
		t.Fatal("expected an error for an unknown event type")
	}
}

func TestTimerAllowedDaysMaskRoundTrip(t *testing.T) {
	timer := Timer{
		DisplayName: "news.example",
		Host:        HostFirefoxWatcher,
		TimeLimit:   60,
		AllowedDays: [7]bool{true, false, true, false, true, false, true},
	}

	mask := timer.AllowedDaysMask()
	got := AllowedDaysFromMask(mask)
	if got != timer.AllowedDays {
		t.Fatalf("AllowedDaysFromMask(%08b) = %v, want %v", mask, got, timer.AllowedDays)
	}
}

func TestTimerSameTarget(t *testing.T) {
	a := Timer{DisplayName: "news.example", Host: HostFirefoxWatcher, TimeLimit: 10}
	b := Timer{DisplayName: "news.example", Host: HostFirefoxWatcher, TimeLimit: 99}
	c := Timer{DisplayName: "other.example", Host: HostFirefoxWatcher}
	d := Timer{DisplayName: "news.example", Host: HostGnomeExtension}

	if !a.SameTarget(b) {
		t.Fatal("expected same target for differing time limits")
	}
	if a.SameTarget(c) {
		t.Fatal("expected different target for differing display names")
	}
	if a.SameTarget(d) {
		t.Fatal("expected different target for differing hosts")
	}
}

func TestDurationMapAddGet(t *testing.T) {
	d := make(DurationMap)
	d.Add(HostFirefoxWatcher, "news.example", 10)
	d.Add(HostFirefoxWatcher, "news.example", 5)
	d.Add(HostFirefoxWatcher, "other.example", 1)

	if got := d.Get(HostFirefoxWatcher, "news.example"); got != 15 {
		t.Fatalf("Get() = %d, want 15", got)
	}
	if got := d.Get(HostFirefoxWatcher, "other.example"); got != 1 {
		t.Fatalf("Get() = %d, want 1", got)
	}
	if got := d.Get(HostGnomeApplication, "news.example"); got != 0 {
		t.Fatalf("Get() on missing host = %d, want 0", got)
	}
}
