package sms

import (
	"strings"
	"testing"
)

func TestAnalyzeEmptyMessage(t *testing.T) {
	c := NewCalculator()
	a := c.Analyze("")
	if a.Segments != 0 || a.CostCents != 0 {
		t.Fatalf("empty message should cost nothing, got segments=%d cost=%d", a.Segments, a.CostCents)
	}
	if !a.Valid {
		t.Fatalf("empty message should be valid")
	}
}

func TestAnalyzeGSMSegments(t *testing.T) {
	c := NewCalculator()

	tests := []struct {
		chars        int
		wantSegments int
	}{
		{chars: 1, wantSegments: 1},
		{chars: 160, wantSegments: 1},
		{chars: 161, wantSegments: 2},
		{chars: 306, wantSegments: 2},
		{chars: 307, wantSegments: 3},
	}

	for _, tt := range tests {
		a := c.Analyze(strings.Repeat("a", tt.chars))
		if a.Encoding != EncodingGSM {
			t.Fatalf("%d ascii chars classified as %s", tt.chars, a.Encoding)
		}
		if a.Segments != tt.wantSegments {
			t.Fatalf("%d chars: got %d segments, want %d", tt.chars, a.Segments, tt.wantSegments)
		}
		if a.CostCents != int64(tt.wantSegments)*DefaultSegmentPriceCents {
			t.Fatalf("%d chars: got cost %d", tt.chars, a.CostCents)
		}
	}
}

func TestAnalyzeExtendedCharsCountDouble(t *testing.T) {
	c := NewCalculator()
	a := c.Analyze("price {100€}")
	if a.Encoding != EncodingGSMExtended {
		t.Fatalf("expected gsm_extended, got %s", a.Encoding)
	}
	// 9 basic chars + 3 extension chars at 2 each.
	if a.Chars != 15 {
		t.Fatalf("expected 15 chars, got %d", a.Chars)
	}
}

func TestAnalyzeUnicode(t *testing.T) {
	c := NewCalculator()

	a := c.Analyze("It’s ready!")
	if a.Encoding != EncodingUnicode {
		t.Fatalf("smart quote should force unicode, got %s", a.Encoding)
	}
	if a.Segments != 1 {
		t.Fatalf("short unicode message should be one segment, got %d", a.Segments)
	}

	a = c.Analyze(strings.Repeat("“a", 36)) // 72 runes
	if a.Segments != 2 {
		t.Fatalf("72 unicode chars should be 2 segments, got %d", a.Segments)
	}

	// After transliteration the same text fits GSM again.
	a = c.Analyze(Transliterate("It’s ready!"))
	if a.Encoding != EncodingGSM {
		t.Fatalf("transliterated message should be gsm, got %s", a.Encoding)
	}
}

func TestAnalyzeMonotonic(t *testing.T) {
	c := NewCalculator()
	prev := int64(0)
	for n := 0; n <= 500; n += 7 {
		a := c.Analyze(strings.Repeat("x", n))
		if a.CostCents < prev {
			t.Fatalf("cost decreased at %d chars: %d < %d", n, a.CostCents, prev)
		}
		prev = a.CostCents
	}
}

func TestAnalyzeMaxLength(t *testing.T) {
	c := NewCalculator()
	if a := c.Analyze(strings.Repeat("a", DefaultMaxChars)); !a.Valid {
		t.Fatalf("message at the limit should be valid")
	}
	if a := c.Analyze(strings.Repeat("a", DefaultMaxChars+1)); a.Valid {
		t.Fatalf("message over the limit should be invalid")
	}
}

func TestTransliterate(t *testing.T) {
	in := "“G’day” – see you soon… ©"
	want := `"G'day" - see you soon... (c)`
	if got := Transliterate(in); got != want {
		t.Fatalf("Transliterate() = %q, want %q", got, want)
	}
}
