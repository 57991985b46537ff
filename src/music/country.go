package music

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	regionsOnce   sync.Once
	regionsByName map[string]string
)

func loadRegions() {
	regionsByName = make(map[string]string)
	namer := display.Regions(language.English)
	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})
			r, err := language.ParseRegion(code)
			if err != nil || !r.IsCountry() {
				continue
			}
			r = r.Canonicalize()
			if len(r.String()) != 2 {
				continue
			}
			name := strings.ToLower(namer.Name(r))
			if _, seen := regionsByName[name]; name != "" && !seen {
				regionsByName[name] = r.String()
			}
		}
	}
}

// CountryCode converts an English country name to its ISO 3166-1 alpha-2
// code. Two letter codes pass through in canonical form, so UK becomes GB;
// unknown names are returned unchanged.
func CountryCode(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if len(name) == 2 {
		if r, err := language.ParseRegion(name); err == nil && r.IsCountry() {
			return r.Canonicalize().String()
		}
	}
	regionsOnce.Do(loadRegions)
	if code, ok := regionsByName[strings.ToLower(name)]; ok {
		return code
	}
	return name
}

// CountryName returns the English name for an alpha-2 code, or the code itself.
func CountryName(code string) string {
	r, err := language.ParseRegion(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.Regions(language.English).Name(r); name != "" {
		return name
	}
	return code
}
