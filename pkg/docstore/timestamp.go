package docstore

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the stored text form of every timestamp. Fixed width and UTC,
// so text order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// FormatTime renders t in the stored text form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses an ISO-8601 timestamp. Values without an offset are
// taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
