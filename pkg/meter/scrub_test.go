package meter

import (
	"strings"
	"testing"
)

func TestScrubNameplateJunk(t *testing.T) {
	raw := "WATT-HOUR METER Class 2 IP 51 50 Hz 3x220/380 V Made in Thailand 00912"
	clean := Scrub(raw, DefaultScrubRules())
	for _, junk := range []string{"IP 51", "50 Hz", "Class 2", "Thailand", "WATT"} {
		if strings.Contains(clean, junk) {
			t.Fatalf("junk %q survived: %q", junk, clean)
		}
	}
	if !strings.Contains(clean, "00912") {
		t.Fatalf("reading scrubbed away: %q", clean)
	}
}

func TestScrubScaleLabels(t *testing.T) {
	clean := Scrub("10,000 1,000 00734", DefaultScrubRules())
	if strings.Contains(clean, "10,000") || strings.Contains(clean, "1,000") {
		t.Fatalf("scale labels survived: %q", clean)
	}
	if !strings.Contains(clean, "00734") {
		t.Fatalf("reading lost: %q", clean)
	}
}

func TestScrubSymbolFixes(t *testing.T) {
	clean := Scrub("1O234", nil)
	if !strings.Contains(clean, "10234") {
		t.Fatalf("O between digits not repaired: %q", clean)
	}
	clean = Scrub("45|67", nil)
	if !strings.Contains(clean, "45167") {
		t.Fatalf("pipe between digits not repaired: %q", clean)
	}
	clean = Scrub("1|2|3", nil)
	if !strings.Contains(clean, "11213") {
		t.Fatalf("overlapping lookalikes: %q", clean)
	}
}

func TestScrubTrailingGarbage(t *testing.T) {
	// A stray letter after a long digit run reads as 8, punctuation as 7.
	if clean := Scrub("10234B", nil); !strings.Contains(clean, "102348") {
		t.Fatalf("trailing letter: %q", clean)
	}
	if clean := Scrub("10234) end", nil); !strings.Contains(clean, "102347") {
		t.Fatalf("trailing punctuation: %q", clean)
	}
	// Short runs are left alone.
	if clean := Scrub("123B", nil); strings.Contains(clean, "1238") {
		t.Fatalf("short run repaired: %q", clean)
	}
}

func TestScrubDateFilter(t *testing.T) {
	clean := Scrub("2024 00912 2567", nil)
	if strings.Contains(clean, "2024") || strings.Contains(clean, "2567") {
		t.Fatalf("year tokens survived: %q", clean)
	}
	if !strings.Contains(clean, "00912") {
		t.Fatalf("reading lost: %q", clean)
	}
}

func TestBlacklistMarkers(t *testing.T) {
	bl := Blacklist("Serial No. 12345 reading 007123")
	if _, ok := bl[12345]; !ok {
		t.Fatalf("serial number not blacklisted: %v", bl)
	}
	if _, ok := bl[7123]; ok {
		t.Fatalf("reading wrongly blacklisted")
	}
	// Split runs blacklist both the parts and the concatenation.
	bl = Blacklist("ID: 12 345")
	for _, v := range []int64{12, 345, 12345} {
		if _, ok := bl[v]; !ok {
			t.Fatalf("missing %d in %v", v, bl)
		}
	}
}
