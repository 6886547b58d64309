package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/rentsoft/internal/calendar"
)

const dateLayout = "2006-01-02"

// feeDate resolves a fee's calendar date. RFC 3339 timestamps are converted
// into loc; other values starting with YYYY-MM-DD are taken as written.
// Anything else leaves the fee undated.
func feeDate(raw string, loc *time.Location) (date string, year, month int, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, 0, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		c := calendar.PartsOf(t, loc)
		return fmt.Sprintf("%04d-%02d-%02d", c.Year, c.Month, c.Day), c.Year, c.Month, true
	}
	if len(raw) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, raw[:len(dateLayout)]); err == nil {
			return raw[:len(dateLayout)], t.Year(), int(t.Month()), true
		}
	}
	return "", 0, 0, false
}

func feeName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "Fee"
}
