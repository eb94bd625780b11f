package vault

import "time"

// timestampFormats are the layouts accepted for created/updated fields.
// External editors write anything from full RFC3339 to bare dates.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a front-matter timestamp leniently. An empty or
// unparseable value yields the zero time rather than an error; timestamps
// are informational, not structural.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
