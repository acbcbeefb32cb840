package waf

import (
	"sort"
	"strings"
)

// SignatureKind selects how a signature text is compared against probed input.
type SignatureKind int

const (
	// KindSubstring matches when the signature text appears anywhere in the input.
	KindSubstring SignatureKind = iota
	// KindPrefix matches when the signature text is a prefix of the input.
	KindPrefix
)

// Signature is a single vendor fingerprint. All comparisons are done on
// lowercased input; signature texts are stored lowercased.
type Signature struct {
	Kind SignatureKind
	Text string
}

// Matches reports whether the already-lowercased input matches this signature.
func (s Signature) Matches(lowered string) bool {
	if s.Kind == KindPrefix {
		return strings.HasPrefix(lowered, s.Text)
	}
	return strings.Contains(lowered, s.Text)
}

// parseSignature converts a raw signature entry into a typed Signature.
// A trailing '*' denotes a prefix pattern; everything else is a substring
// pattern. The convention is applied uniformly to DNS and HTTP matching.
func parseSignature(raw string) Signature {
	raw = strings.ToLower(raw)
	if text, ok := strings.CutSuffix(raw, "*"); ok && text != "" {
		return Signature{Kind: KindPrefix, Text: text}
	}
	return Signature{Kind: KindSubstring, Text: raw}
}

// vendorTable is the static fingerprint source. Vendors are intentionally not
// disjoint: a CDN fronting another WAF legitimately matches both.
var vendorTable = map[string][]string{
	"cloudflare": {"cloudflare", "__cfduid", "cf-ray", "cf-cache-status", "cf-request-id"},
	"aws_waf":    {"x-amz-cf-id", "x-amz-cf-pop", "x-amz-waf-id", "x-amz-waf-pop"},
	"akamai":     {"akamai", "x-akamai-transformed", "x-akamai-origin-hop", "x-akamai-ssl"},
	"fastly":     {"fastly", "x-fastly", "x-fastly-ssl"},
	"imperva":    {"incap_ses", "visid_incap", "x-iinfo"},
	"f5_bigip":   {"bigip", "x-wa-info", "x-asg", "x-bigip-*"},
	"barracuda":  {"barra_counter_session", "x-barra", "x-barracuda"},
	"citrix":     {"citrix", "ns_af", "x-netscaler"},
	"sucuri":     {"sucuri", "x-sucuri-*", "sucuri-*"},
	"cloudfront": {"x-amz-cf-id", "x-amz-cf-pop", "x-cache-lookup"},
	"incapsula":  {"incap_ses", "visid_incap", "incap_visid"},
	"maxcdn":     {"x-cdn-pop", "x-cdn-ssl"},
	"keycdn":     {"keycdn", "x-cdn-requestid"},
}

// cdnCNAMETokens is the short list of CDN name tokens a CNAME target is
// tested against.
var cdnCNAMETokens = []string{"cloudflare", "akamai", "fastly", "cloudfront"}

// techTokens maps wappalyzer technology names (lowercased, substring match)
// to registry vendors.
var techTokens = map[string]string{
	"cloudflare": "cloudflare",
	"cloudfront": "cloudfront",
	"akamai":     "akamai",
	"fastly":     "fastly",
	"imperva":    "imperva",
	"incapsula":  "incapsula",
	"sucuri":     "sucuri",
}

// Registry holds the vendor fingerprints. It is built once at startup and is
// read-only afterwards, so concurrent readers need no locking.
type Registry struct {
	vendors    []string
	signatures map[string][]Signature
}

// NewRegistry builds the registry from the static vendor table.
func NewRegistry() *Registry {
	r := &Registry{signatures: make(map[string][]Signature, len(vendorTable))}
	for vendor, raws := range vendorTable {
		sigs := make([]Signature, 0, len(raws))
		for _, raw := range raws {
			sigs = append(sigs, parseSignature(raw))
		}
		r.vendors = append(r.vendors, vendor)
		r.signatures[vendor] = sigs
	}
	sort.Strings(r.vendors)
	return r
}

// Vendors returns vendor names in lexicographic order.
func (r *Registry) Vendors() []string {
	return r.vendors
}

// Signatures returns the signature set for a vendor, nil if unknown.
func (r *Registry) Signatures(vendor string) []Signature {
	return r.signatures[vendor]
}

// Match tests the input against every vendor's signature set and returns the
// vendors with at least one matching signature, in lexicographic order. The
// input is lowercased once here.
func (r *Registry) Match(input string) []string {
	lowered := strings.ToLower(input)
	var matched []string
	for _, vendor := range r.vendors {
		for _, sig := range r.signatures[vendor] {
			if sig.Matches(lowered) {
				matched = append(matched, vendor)
				break
			}
		}
	}
	return matched
}

// MatchCNAME tests a CNAME target against the fixed CDN token list and
// returns the matching token, if any.
func MatchCNAME(target string) (string, bool) {
	lowered := strings.ToLower(target)
	for _, token := range cdnCNAMETokens {
		if strings.Contains(lowered, token) {
			return token, true
		}
	}
	return "", false
}

// MatchTechnology maps a fingerprinted technology name to a registry vendor.
func MatchTechnology(tech string) (string, bool) {
	lowered := strings.ToLower(tech)
	for token, vendor := range techTokens {
		if strings.Contains(lowered, token) {
			return vendor, true
		}
	}
	return "", false
}
