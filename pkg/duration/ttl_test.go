package duration

import (
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "30m", 30 * time.Minute, false},
		{"hours-and-minutes", "2h30m", 2*time.Hour + 30*time.Minute, false},
		{"days", "1d", 24 * time.Hour, false},
		{"repeated-unit", "1h1h", 2 * time.Hour, false},
		{"zero", "0s", 0, false},
		{"empty", "", 0, true},
		{"float", "1.5h", 0, true},
		{"signed", "-30m", 0, true},
		{"whitespace", "30 m", 0, true},
		{"unknown-unit", "30ns", 0, true},
		{"unknown-unit-us", "30us", 0, true},
		{"missing-unit", "30", 0, true},
		{"missing-number", "h", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTTL(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseTTL(%q) = %v, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTTL(%q) returned unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseTTL(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
