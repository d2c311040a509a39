package meter

import "testing"

func TestNormalizeKeyCanonicalForm(t *testing.T) {
	cases := []struct{ in, want string }{
		{"gt bp 3 3", "GT_BP_3_3"},
		{"GT-BP-3-3", "GT_BP_3_3"},
		{"  WT  MAIN   1 ", "WT_MAIN_1"},
		{"gt__bp___1", "GT_BP_1"},
		{"_GT_BP_1_", "GT_BP_1"},
		{"GT/BP#1", "GTBP1"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeKeySToThree(t *testing.T) {
	// S misread between digit boundaries becomes 3.
	cases := []struct{ in, want string }{
		{"GT_BP_S_3", "GT_BP_3_3"},
		{"GT_BP_3_S", "GT_BP_3_3"},
		{"WT1S2", "WT132"},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
	// S with no digit neighbor stays a letter.
	if got := NormalizeKey("SCADA_MAIN"); got != "SCADA_MAIN" {
		t.Fatalf("letter S mangled: %q", got)
	}
}

func TestNormalizeKeyDoubledTailSplit(t *testing.T) {
	if got := NormalizeKey("GT BP 33"); got != "GT_BP_3_3" {
		t.Fatalf("expected GT_BP_3_3 got %q", got)
	}
	// A longer digit run is a reading, not a collapsed pair.
	if got := NormalizeKey("GT_BP_333"); got != "GT_BP_333" {
		t.Fatalf("digit run split: %q", got)
	}
	// A mixed pair is left alone.
	if got := NormalizeKey("GT_BP_34"); got != "GT_BP_34" {
		t.Fatalf("mixed pair split: %q", got)
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	inputs := []string{
		"gt bp 3 3", "GT_BP_S_3", "GT BP 33", "  WT - MAIN - 1 ",
		"previous day kwh 38.87", "GT_BP_3_3", "B33", "",
	}
	for _, in := range inputs {
		once := NormalizeKey(in)
		if twice := NormalizeKey(once); twice != once {
			t.Fatalf("not idempotent on %q: %q -> %q", in, once, twice)
		}
	}
}
