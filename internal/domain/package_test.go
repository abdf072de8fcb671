package domain

import (
	"math"
	"regexp"
	"testing"
	"time"
)

func TestPackageStatusIsTerminal(t *testing.T) {
	terminal := []PackageStatus{PackageStatusDelivered, PackageStatusReturned, PackageStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}

	open := []PackageStatus{
		PackageStatusRegistered,
		PackageStatusAssigned,
		PackageStatusInTransit,
		PackageStatusAtDepot,
		PackageStatusOutForDelivery,
	}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestVolumeFromDimensionsCm(t *testing.T) {
	got := VolumeFromDimensionsCm(100, 50, 40)
	if math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("volume = %v, want 0.2", got)
	}
}

func TestNewTrackingCode(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	code := NewTrackingCode(now)

	re := regexp.MustCompile(`^ET-20260309-[0-9A-F]{6}$`)
	if !re.MatchString(code) {
		t.Fatalf("tracking code %q does not match %s", code, re)
	}
}
