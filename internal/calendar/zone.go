// Package calendar converts between absolute instants and civil date/time fields
// for IANA timezones and splits intervals along civil month boundaries.
package calendar

import (
	"strings"
	"sync"
	"time"

	// Embedded IANA database so zone lookups behave the same on minimal images.
	_ "time/tzdata"
)

var zones sync.Map // name -> *time.Location

// LoadZone resolves an IANA timezone name. Empty, invalid or unknown names
// resolve to UTC rather than failing.
func LoadZone(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") || name == "Local" {
		return time.UTC
	}
	if cached, ok := zones.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil || loc == nil {
		return time.UTC
	}
	zones.Store(name, loc)
	return loc
}

// NormalizeZoneName returns name when it is a loadable zone, otherwise "UTC".
func NormalizeZoneName(name string) string {
	loc := LoadZone(name)
	if loc == time.UTC {
		return "UTC"
	}
	return strings.TrimSpace(name)
}

// IsValidZone reports whether name resolves to a real zone.
func IsValidZone(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.EqualFold(name, "UTC") {
		return true
	}
	return LoadZone(name) != time.UTC
}
