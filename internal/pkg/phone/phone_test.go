package phone

import "testing"

func TestNormalize(t *testing.T) {
	n := NewNormalizer("61")

	tests := []struct {
		in   string
		want string
	}{
		{in: "+61400803880", want: "+61400803880"},
		{in: "+1 555 0100", want: "+1 555 0100"}, // already international, returned verbatim
		{in: "0400 803 880", want: "+61400803880"},
		{in: "0400-803-880", want: "+61400803880"},
		{in: "(04) 0080 3880", want: "+61400803880"},
		{in: "61400803880", want: "+61400803880"},
		{in: "400803880", want: "+61400803880"}, // bare 9-digit subscriber number
		{in: "", want: ""},
		{in: "call me", want: ""},
		{in: "12345", want: ""}, // too short to interpret, never guess
	}

	for _, tt := range tests {
		if got := n.Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeParts(t *testing.T) {
	n := NewNormalizer("61")

	tests := []struct {
		cc, area, number string
		want             string
	}{
		{cc: "61", area: "4", number: "00803880", want: "+61400803880"},
		{cc: "", area: "04", number: "00803880", want: "+61400803880"}, // default home code, trunk zero stripped
		{cc: "", area: "", number: "400803880", want: "+61400803880"},
		{cc: "64", area: "21", number: "123456", want: "+6421123456"},
		{cc: "61", area: "4", number: "", want: ""},
	}

	for _, tt := range tests {
		if got := n.NormalizeParts(tt.cc, tt.area, tt.number); got != tt.want {
			t.Fatalf("NormalizeParts(%q, %q, %q) = %q, want %q", tt.cc, tt.area, tt.number, got, tt.want)
		}
	}
}

func TestNormalizeNeverPanics(t *testing.T) {
	n := NewNormalizer("61")
	for _, in := range []string{"", " ", "+", "abcdef", "½øπ", "0"} {
		_ = n.Normalize(in)
	}
}
