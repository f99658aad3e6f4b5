package ipdistance

import (
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("abc", now)

	if !s.ExpiresAt.Equal(now.Add(60 * time.Minute)) {
		t.Errorf("expected expiry at +60m, got %v", s.ExpiresAt)
	}
	if s.FirstIP != "" || s.SecondIP != "" || s.Distance != nil {
		t.Errorf("new session should have no participants: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("new session should be valid: %v", err)
	}
}

func TestSession_Active(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("abc", now)

	if !s.Active(now.Add(59 * time.Minute)) {
		t.Error("expected active at +59m")
	}
	if !s.Active(s.ExpiresAt) {
		t.Error("expected active exactly at expiry")
	}
	if s.Active(now.Add(61 * time.Minute)) {
		t.Error("expected inactive at +61m")
	}
}

func TestSession_Validate(t *testing.T) {
	info := &GeoRecord{IP: "1.1.1.1"}
	info2 := &GeoRecord{IP: "2.2.2.2"}
	d := 10.5

	t.Run("SecondWithoutFirst", func(t *testing.T) {
		s := Session{SecondIP: "2.2.2.2", SecondIPInfo: info2, Distance: &d}
		if s.Validate() == nil {
			t.Error("expected error")
		}
	})

	t.Run("DistanceWithoutSecond", func(t *testing.T) {
		s := Session{FirstIP: "1.1.1.1", FirstIPInfo: info, Distance: &d}
		if s.Validate() == nil {
			t.Error("expected error")
		}
	})

	t.Run("SameParticipantTwice", func(t *testing.T) {
		s := Session{FirstIP: "1.1.1.1", FirstIPInfo: info, SecondIP: "1.1.1.1", SecondIPInfo: info, Distance: &d}
		if s.Validate() == nil {
			t.Error("expected error")
		}
	})

	t.Run("CompleteSession", func(t *testing.T) {
		s := Session{FirstIP: "1.1.1.1", FirstIPInfo: info, SecondIP: "2.2.2.2", SecondIPInfo: info2, Distance: &d}
		if err := s.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !s.Complete() {
			t.Error("expected complete")
		}
		if !s.IsParticipant("2.2.2.2") || s.IsParticipant("3.3.3.3") || s.IsParticipant("") {
			t.Error("IsParticipant mismatch")
		}
	})
}
