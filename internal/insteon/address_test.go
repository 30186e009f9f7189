package insteon

import "testing"

func TestParseAddress_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  Address
	}{
		{"1a.2b.3c", Address{0x1A, 0x2B, 0x3C}},
		{"00.00.01", Address{0x00, 0x00, 0x01}},
		{"FF.ff.Fe", Address{0xFF, 0xFF, 0xFE}},
	}

	for _, tt := range tests {
		got, err := ParseAddress(tt.input)
		if err != nil {
			t.Errorf("ParseAddress(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAddress(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1a.2b",
		"1a.2b.3c.4d",
		"zz.2b.3c",
		"1a/2b/3c",
		"100.2b.3c",
	}

	for _, input := range tests {
		if _, err := ParseAddress(input); err == nil {
			t.Errorf("ParseAddress(%q) expected error, got nil", input)
		}
	}
}

func TestAddress_String(t *testing.T) {
	addr := Address{0x1A, 0x2B, 0x3C}
	if got := addr.String(); got != "1a.2b.3c" {
		t.Errorf("String() = %q, want %q", got, "1a.2b.3c")
	}
}

func TestAddress_RoundTrip(t *testing.T) {
	orig := Address{0x04, 0xD2, 0x00}
	parsed, err := ParseAddress(orig.String())
	if err != nil {
		t.Fatalf("ParseAddress(%q) error = %v", orig.String(), err)
	}
	if parsed != orig {
		t.Errorf("round trip = %v, want %v", parsed, orig)
	}
}

func TestAddress_IsZero(t *testing.T) {
	if !(Address{}).IsZero() {
		t.Error("zero address should report IsZero")
	}
	if (Address{0, 0, 1}).IsZero() {
		t.Error("non-zero address should not report IsZero")
	}
}
