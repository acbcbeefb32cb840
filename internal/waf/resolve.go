package waf

import "sort"

// ResolveVendor tallies vendor occurrences across all indicators regardless
// of source and returns the vendor with the highest count. Ties are broken by
// the lexicographically smallest vendor name, so the same indicator set
// always resolves to the same vendor. Empty input resolves to no vendor at
// all; a vendor is only ever assigned when evidence exists.
func ResolveVendor(indicators []Indicator) (string, bool) {
	if len(indicators) == 0 {
		return "", false
	}

	counts := make(map[string]int, len(indicators))
	for _, ind := range indicators {
		counts[ind.Vendor]++
	}

	vendors := make([]string, 0, len(counts))
	for vendor := range counts {
		vendors = append(vendors, vendor)
	}
	sort.Strings(vendors)

	winner := vendors[0]
	for _, vendor := range vendors[1:] {
		if counts[vendor] > counts[winner] {
			winner = vendor
		}
	}
	return winner, true
}
