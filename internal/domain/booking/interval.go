package booking

import (
	"fmt"
	"strings"
	"time"
)

// instantLayouts are tried in order when parsing a request timestamp.
// Layouts without a zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInstant parses a timestamp in any accepted layout and returns it in UTC.
func ParseInstant(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two ranges share any instant.
// Ranges that only touch (one ends where the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsValid reports whether both ends are set and Start is strictly before End.
func (r TimeRange) IsValid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Before(r.End)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}
