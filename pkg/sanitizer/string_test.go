package sanitizer

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Wanjiru Kamau  ",
			want:  "Wanjiru Kamau",
		},
		{
			name:  "multiple spaces between words",
			input: "Wanjiru    Kamau",
			want:  "Wanjiru Kamau",
		},
		{
			name:  "tabs and newlines",
			input: "Wanjiru\t\nKamau",
			want:  "Wanjiru Kamau",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve accents",
			input: " José Müller ",
			want:  "José Müller",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Guest@Example.COM "); got != "guest@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"TRAB12C4", "TRAB12C4"},
		{" tr ab 12c4 ", "TRAB12C4"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeReference(tt.input); got != tt.want {
			t.Errorf("NormalizeReference(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Vegetarian  meals \r\n\n  wheelchair   access  ")
	want := "Vegetarian meals\n\nwheelchair access"
	if got != want {
		t.Errorf("NormalizeText() = %q, want %q", got, want)
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{120, 120},
		{99.999, 100},
		{10.004, 10},
		{-5, 0},
	}
	for _, tt := range tests {
		if got := NormalizePrice(tt.input); got != tt.want {
			t.Errorf("NormalizePrice(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
