package core

import (
	"testing"
	"time"
)

func TestStamperLabel(t *testing.T) {
	at := time.Date(2024, 1, 2, 20, 30, 0, 0, time.UTC)

	if got := NewStamper(-300).Label(at); got != "[15:30]" {
		t.Fatalf("UTC-5 label = %q, want [15:30]", got)
	}
	if got := NewStamper(0).Label(at); got != "[20:30]" {
		t.Fatalf("UTC label = %q, want [20:30]", got)
	}
	// Offset crossing midnight still renders clock time only.
	if got := NewStamper(330).Label(at); got != "[02:00]" {
		t.Fatalf("UTC+5:30 label = %q, want [02:00]", got)
	}
}

func TestStamperPadsSingleDigits(t *testing.T) {
	at := time.Date(2024, 1, 2, 7, 5, 0, 0, time.UTC)
	if got := NewStamper(0).Label(at); got != "[07:05]" {
		t.Fatalf("label = %q, want [07:05]", got)
	}
}
