package common

import (
	"encoding/hex"
	"testing"
	"time"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

func TestMakeRandHexString_EntropyHint(t *testing.T) {
	const n = 32
	a, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatalf("two random strings are equal, entropy source looks broken")
	}
}

// ---------- timestamps ----------

func TestFormatTimestamp_FixedWidthUTC(t *testing.T) {
	ts := FormatTimestamp(time.Date(2025, 3, 7, 9, 5, 1, 500000000, time.UTC))
	if ts != "2025-03-07T09:05:01.500Z" {
		t.Fatalf("unexpected format: %q", ts)
	}
	if _, err := time.Parse(TimestampLayout, ts); err != nil {
		t.Fatalf("timestamp does not round-trip: %v", err)
	}
}

func TestFormatTimestamp_LexicographicOrderMatchesChronological(t *testing.T) {
	t1 := FormatTimestamp(time.Date(2025, 3, 7, 9, 5, 1, 500000000, time.UTC))
	t2 := FormatTimestamp(time.Date(2025, 3, 7, 9, 5, 1, 520000000, time.UTC))
	if !(t1 < t2) {
		t.Fatalf("expected %q < %q", t1, t2)
	}
}
