// Package weather resolves free-text locations to weather observations,
// falling back to seasonal averages when the upstream API cannot help.
package weather

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// states are tried in order when a location has no comma.
var states = []string{
	"Maharashtra",
	"Punjab",
	"Uttar Pradesh",
	"Karnataka",
	"Tamil Nadu",
	"Gujarat",
	"Rajasthan",
	"Madhya Pradesh",
}

// Clean trims and title-cases a location.
func Clean(location string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(location), " "))
}

// CacheKey is the normalised form used to key cached observations.
func CacheKey(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}

// Candidates returns the upstream queries to try for a location, in order.
func Candidates(location string) []string {
	loc := Clean(location)
	if loc == "" {
		return nil
	}
	out := []string{loc}
	if strings.Contains(loc, ",") {
		return out
	}
	for _, s := range states {
		out = append(out, loc+", "+s+", India")
	}
	return append(out, loc+", India")
}
