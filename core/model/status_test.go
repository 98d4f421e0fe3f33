package model

import "testing"

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if got != s {
			t.Errorf("parse %q = %q", s, got)
		}
	}
}

func TestParseStatusRejectsUnknownCase(t *testing.T) {
	// The wire vocabulary is case sensitive.
	for _, raw := range []string{"available", "OCCUPIED", "faulted", "", "Charging"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestDisconnected(t *testing.T) {
	cases := map[Status]bool{
		StatusAvailable:   false,
		StatusOccupied:    false,
		StatusReserved:    false,
		StatusUnavailable: true,
		StatusFaulted:     true,
	}
	for s, want := range cases {
		if got := s.Disconnected(); got != want {
			t.Errorf("%s.Disconnected() = %v, want %v", s, got, want)
		}
	}
}

func TestVehicleRequiredEnergy(t *testing.T) {
	v := Vehicle{BatteryKWh: 60, CurrentSoC: 40, TargetSoC: 90}
	if got := v.RequiredEnergyKWh(); got != 30 {
		t.Errorf("required energy = %v, want 30", got)
	}
	// Already above target.
	v = Vehicle{BatteryKWh: 60, CurrentSoC: 95, TargetSoC: 90}
	if got := v.RequiredEnergyKWh(); got != 0 {
		t.Errorf("required energy = %v, want 0", got)
	}
}
