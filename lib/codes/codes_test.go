package codes

import (
	"strings"
	"testing"
)

func TestNewLength(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "minimum", n: 8, want: 8},
		{name: "maximum", n: 10, want: 10},
		{name: "below range falls back", n: 3, want: DefaultLength},
		{name: "above range falls back", n: 64, want: DefaultLength},
		{name: "zero falls back", n: 0, want: DefaultLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := New(tt.n)
			if err != nil {
				t.Fatalf("new code: %v", err)
			}
			if len(code) != tt.want {
				t.Fatalf("expected length %d, got %d (%q)", tt.want, len(code), code)
			}
		})
	}
}

func TestNewAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := New(10)
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		for _, r := range code {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
	}
}

func TestNewUniform(t *testing.T) {
	counts := make(map[rune]int, len(alphabet))
	const rounds = 20000
	for i := 0; i < rounds; i++ {
		code, err := New(10)
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		for _, r := range code {
			counts[r]++
		}
	}

	// 200000 draws over 56 characters, ~3571 each. A modulo-biased
	// draw would push the low half of the alphabet to ~4464.
	mean := float64(rounds*10) / float64(len(alphabet))
	for _, r := range alphabet {
		got := float64(counts[r])
		if got < mean*0.88 || got > mean*1.12 {
			t.Fatalf("character %q drawn %d times, expected about %.0f", r, counts[r], mean)
		}
	}
}

func TestNewNotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := New(10)
		if err != nil {
			t.Fatalf("new code: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected varied codes, got %d distinct of 50", len(seen))
	}
}
