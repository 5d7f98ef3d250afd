package model

import "testing"

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"150000", 150000},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
		{"89.7", 89},
		{"-500", -500},
	}
	for _, tt := range tests {
		if got := ParseMinorUnits(tt.in); got != tt.want {
			t.Errorf("ParseMinorUnits(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMinorToMajor(t *testing.T) {
	if got := MinorToMajor("150000", 2); got != 1500.0 {
		t.Errorf("MinorToMajor(150000, 2) = %v, want 1500", got)
	}
	if got := MinorToMajor("150000", -1); got != 1500.0 {
		t.Errorf("MinorToMajor with negative exponent = %v, want 1500 (exponent defaults to 2)", got)
	}
	if got := MinorToMajor("500", 0); got != 500.0 {
		t.Errorf("MinorToMajor(500, 0) = %v, want 500", got)
	}
}

func TestMajorToMinorRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "99", "8900", "150000", "123456789"} {
		got := MajorToMinor(MinorToMajor(s, 2), 2)
		if got != ParseMinorUnits(s) {
			t.Errorf("round trip of %q = %d, want %d", s, got, ParseMinorUnits(s))
		}
	}
}

func TestMinorToMajorString(t *testing.T) {
	tests := []struct {
		in   string
		exp  int
		want string
	}{
		{"8900", 2, "89.00"},
		{"150000", 2, "1500.00"},
		{"", 2, "0.00"},
		{"1050", 2, "10.50"},
	}
	for _, tt := range tests {
		if got := MinorToMajorString(tt.in, tt.exp); got != tt.want {
			t.Errorf("MinorToMajorString(%q, %d) = %q, want %q", tt.in, tt.exp, got, tt.want)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor("150000", 2, "₱"); got != "₱1500.00" {
		t.Errorf("FormatMinor = %q, want ₱1500.00", got)
	}
}
