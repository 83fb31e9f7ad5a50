package generator

import (
	"strings"
	"testing"
)

func TestNumberFormat(t *testing.T) {
	g := New(1)

	for i := 0; i < 1000; i++ {
		number := g.Number()
		if !strings.HasPrefix(number, "+91") {
			t.Fatalf("number %q does not start with +91", number)
		}
		if len(number) != 13 {
			t.Fatalf("number %q has length %d, want 13", number, len(number))
		}
		digits := number[3:]
		for _, r := range digits {
			if r < '0' || r > '9' {
				t.Fatalf("number %q contains non-digit %q", number, r)
			}
		}
		if digits[0] < '7' {
			t.Fatalf("number %q does not look like a mobile number", number)
		}
	}
}

func TestNumberUniqueness(t *testing.T) {
	g := New(42)

	seen := make(map[string]struct{}, 100000)
	for i := 0; i < 100000; i++ {
		number := g.Number()
		if _, dup := seen[number]; dup {
			t.Fatalf("duplicate number %q after %d draws", number, i)
		}
		seen[number] = struct{}{}
	}
}

func TestForgetReleasesNumber(t *testing.T) {
	g := New(7)

	number := g.Number()
	g.Forget(number)
	if _, taken := g.used[number]; taken {
		t.Fatalf("number %q still marked used after Forget", number)
	}
}

func TestCodeLengthSnapping(t *testing.T) {
	g := New(3)

	cases := []struct {
		requested int
		want      int
	}{
		{requested: 6, want: 6},
		{requested: 4, want: 4},
		{requested: 8, want: 8},
		{requested: 3, want: 6},
		{requested: 9, want: 6},
		{requested: 0, want: 6},
		{requested: -1, want: 6},
	}

	for _, tc := range cases {
		code := g.Code(tc.requested)
		if len(code) != tc.want {
			t.Errorf("Code(%d) = %q, want length %d", tc.requested, code, tc.want)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Errorf("Code(%d) = %q contains non-digit %q", tc.requested, code, r)
			}
		}
	}
}

func TestCodeDigitDistribution(t *testing.T) {
	g := New(99)

	const samples = 10000
	var counts [6][10]int
	for i := 0; i < samples; i++ {
		code := g.Code(6)
		for pos := 0; pos < 6; pos++ {
			counts[pos][code[pos]-'0']++
		}
	}

	// Expected 1000 per digit per position; ten standard deviations of
	// slack keeps the test deterministic enough for CI.
	const expected = samples / 10
	const tolerance = 300
	for pos := range counts {
		for digit, count := range counts[pos] {
			if count < expected-tolerance || count > expected+tolerance {
				t.Errorf("position %d digit %d drawn %d times, want %d ±%d", pos, digit, count, expected, tolerance)
			}
		}
	}
}

func TestPairReturnsBoth(t *testing.T) {
	g := New(5)

	number, code := g.Pair(6)
	if number == "" || code == "" {
		t.Fatalf("Pair returned empty values: %q %q", number, code)
	}
	if len(code) != 6 {
		t.Fatalf("Pair code %q has length %d, want 6", code, len(code))
	}
}
