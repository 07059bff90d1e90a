package reservations

import (
	"regexp"
	"strings"
)

// Normalizer maps a vendor interface name to its canonical form so that
// two link declarations referring to the same physical port collide
// (spec §4.5). The table is incomplete in the upstream source and the
// spec explicitly leaves it as "an external mapping injectable at
// construction" (spec §9 Open Questions) — DefaultNormalizer covers the
// common Ethernet/GigabitEthernet vendor spellings; callers with a richer
// vendor catalogue can supply their own func(string) string at
// reservations.New.
type Normalizer func(ifName string) string

var vendorPrefixes = []struct {
	pattern *regexp.Regexp
	short   string
}{
	{regexp.MustCompile(`(?i)^GigabitEthernet`), "eth"},
	{regexp.MustCompile(`(?i)^TenGigabitEthernet`), "eth"},
	{regexp.MustCompile(`(?i)^FastEthernet`), "eth"},
	{regexp.MustCompile(`(?i)^Ethernet`), "eth"},
	{regexp.MustCompile(`(?i)^eth`), "eth"},
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// DefaultNormalizer canonicalises common vendor interface names
// (Ethernet1, GigabitEthernet0/0, FastEthernet0/1) into the eth<N> form,
// falling back to a lowercased, separator-stripped version of the input
// for anything it doesn't recognise.
func DefaultNormalizer(ifName string) string {
	trimmed := strings.TrimSpace(ifName)
	for _, vp := range vendorPrefixes {
		if loc := vp.pattern.FindStringIndex(trimmed); loc != nil {
			rest := nonAlnum.ReplaceAllString(trimmed[loc[1]:], "")
			if rest == "" {
				rest = "0"
			}
			return vp.short + rest
		}
	}
	return strings.ToLower(nonAlnum.ReplaceAllString(trimmed, ""))
}
