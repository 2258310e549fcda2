// Package duration parses the engine's time-to-live grammar.
//
// The grammar is deliberately narrower than time.ParseDuration: it accepts
// one or more concatenated <integer><unit> tokens (units d, h, m, s) and
// sums them, rejecting floats, signs, whitespace and any unit outside the
// four it knows. time.ParseDuration accepts floats, signs and the ns/us/ms
// units and has no d unit, so it is not reused here even though the stdlib
// already ships a duration parser.
package duration

import (
	"fmt"
	"strconv"
	"time"
)

var unitSeconds = map[byte]int64{
	'd': 86400,
	'h': 3600,
	'm': 60,
	's': 1,
}

// ParseTTL parses a string of one or more concatenated <integer><unit>
// tokens (e.g. "30m", "2h30m", "1d") into a time.Duration. Units may repeat
// and are summed. Floating-point values, signs and whitespace are all
// rejected.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("duration: empty string")
	}

	var totalSeconds int64
	i := 0
	for i < len(s) {
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == start {
			return 0, fmt.Errorf("duration: expected digit at position %d in %q", i, s)
		}
		numStr := s[start:i]

		if i >= len(s) {
			return 0, fmt.Errorf("duration: missing unit after %q in %q", numStr, s)
		}
		unit := s[i]
		secondsPerUnit, ok := unitSeconds[unit]
		if !ok {
			return 0, fmt.Errorf("duration: unknown unit %q in %q", string(unit), s)
		}
		i++

		n, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid integer %q in %q: %w", numStr, s, err)
		}

		totalSeconds += n * secondsPerUnit
	}

	return time.Duration(totalSeconds) * time.Second, nil
}
