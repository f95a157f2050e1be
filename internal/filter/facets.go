package filter

import (
	"strings"
	"unicode"

	"github.com/julianalert/expedition37-sub000/internal/catalog"
)

// facetFlags maps normalized tag keys to boolean facets. Keys are lowercase
// with every non-alphanumeric removed, so "Fast Internet", "fast-internet"
// and "fastInternet" all land on the same flag.
var facetFlags = map[string]func(catalog.Facets) bool{
	"safe":           func(f catalog.Facets) bool { return f.Safe },
	"fastinternet":   func(f catalog.Facets) bool { return f.FastInternet },
	"cleanair":       func(f catalog.Facets) bool { return f.CleanAir },
	"hiddengem":      func(f catalog.Facets) bool { return f.HiddenGem },
	"popular":        func(f catalog.Facets) bool { return f.Popular },
	"familyfriendly": func(f catalog.Facets) bool { return f.FamilyFriendly },
	"ecofriendly":    func(f catalog.Facets) bool { return f.EcoFriendly },
	"dogfriendly":    func(f catalog.Facets) bool { return f.DogFriendly },
	"lgbtqfriendly":  func(f catalog.Facets) bool { return f.LGBTQFriendly },
	"lowracism":      func(f catalog.Facets) bool { return f.LowRacism },
	"muslimfriendly": func(f catalog.Facets) bool { return f.MuslimFriendly },
	"amazingfood":    func(f catalog.Facets) bool { return f.AmazingFood },
	"nightlife":      func(f catalog.Facets) bool { return f.Nightlife },
	"greatfordating": func(f catalog.Facets) bool { return f.GreatForDating },
}

// FacetKey normalizes a tag into the form used to look up facet flags.
func FacetKey(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// IsFacet reports whether tag names a boolean facet flag.
func IsFacet(tag string) bool {
	_, ok := facetFlags[FacetKey(tag)]
	return ok
}

// hasTag checks tag against its facet flag, or against the mood tags when
// no flag exists for it.
func hasTag(a catalog.Attributes, tag string) bool {
	if flag, ok := facetFlags[FacetKey(tag)]; ok {
		return flag(a.Facets)
	}
	return containsFold(a.Mood, tag)
}

func allTags(a catalog.Attributes, tags []string) bool {
	for _, t := range tags {
		if !hasTag(a, t) {
			return false
		}
	}
	return true
}
