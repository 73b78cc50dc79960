package joincode

import (
	"encoding/hex"
	"testing"
)

func TestNew_FormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := New()
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if len(code) != Length*2 {
			t.Fatalf("len(code) = %d, want %d", len(code), Length*2)
		}
		if _, err := hex.DecodeString(code); err != nil {
			t.Fatalf("code %q is not hex: %v", code, err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		supplied string
		want     bool
	}{
		{"exact", "9f2c41ab", "9f2c41ab", true},
		{"trimmed", "9f2c41ab", "  9f2c41ab ", true},
		{"case differs", "9f2c41ab", "9F2C41AB", false},
		{"prefix", "9f2c41ab", "9f2c41a", false},
		{"wrong", "9f2c41ab", "00000000", false},
		{"empty supplied", "9f2c41ab", "", false},
		{"empty stored", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.stored, tt.supplied); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.stored, tt.supplied, got, tt.want)
			}
		})
	}
}
