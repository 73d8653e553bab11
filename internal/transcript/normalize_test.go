package transcript

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases",
			input: "Check CBC",
			want:  "check cbc",
		},
		{
			name:  "strips diacritics",
			input: "Café",
			want:  "cafe",
		},
		{
			name:  "strips combining marks from decomposed input",
			input: "Café",
			want:  "cafe",
		},
		{
			name:  "drops non-ascii remainder",
			input: "check 血液 panel",
			want:  "check  panel",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation and digits survive",
			input: "HbA1c, please!",
			want:  "hba1c, please!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Check CBC and RBS.",
		"Café au lait",
		"¡Órdenes médicas!",
		"",
		"plain ascii already",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}
