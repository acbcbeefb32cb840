package waf

import (
	"net/http"
	"sort"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"
)

// HTTPCollector matches a completed HTTP response against the registry. It
// performs no I/O of its own; fetching (with its retry and timeout policy)
// belongs to the orchestrator.
type HTTPCollector struct {
	registry    *Registry
	fingerprint *wappalyzer.Wappalyze
}

// NewHTTPCollector builds the collector. The wappalyzer fingerprint engine is
// optional; passing nil disables technology indicators.
func NewHTTPCollector(registry *Registry, fingerprint *wappalyzer.Wappalyze) *HTTPCollector {
	return &HTTPCollector{registry: registry, fingerprint: fingerprint}
}

// Collect extracts indicators from response headers, cookie names, the body
// and (when enabled) the fingerprinted technology set. The body is matched
// once as a whole; an empty body simply skips body matching.
func (c *HTTPCollector) Collect(resp *http.Response, body []byte) []Indicator {
	var indicators []Indicator

	// Header names and values are probed independently: many edges only
	// reveal themselves through the presence of a vendor-specific header
	// name, and a prefix signature has to anchor at the start of either.
	// A vendor counts at most once per header.
	for name, values := range resp.Header {
		seen := make(map[string]bool)
		for _, probe := range append([]string{name}, values...) {
			for _, vendor := range c.registry.Match(probe) {
				if seen[vendor] {
					continue
				}
				seen[vendor] = true
				indicators = append(indicators, Indicator{
					Source:  SourceHTTPHeader,
					Vendor:  vendor,
					Context: name,
				})
			}
		}
	}

	for _, cookie := range resp.Cookies() {
		for _, vendor := range c.registry.Match(cookie.Name) {
			indicators = append(indicators, Indicator{
				Source:  SourceHTTPCookie,
				Vendor:  vendor,
				Context: cookie.Name,
			})
		}
	}

	if len(body) > 0 {
		for _, vendor := range c.registry.Match(string(body)) {
			indicators = append(indicators, Indicator{
				Source: SourceHTTPBody,
				Vendor: vendor,
			})
		}
	}

	if c.fingerprint != nil {
		techs := c.fingerprint.Fingerprint(resp.Header, body)
		names := make([]string, 0, len(techs))
		for tech := range techs {
			names = append(names, tech)
		}
		sort.Strings(names)
		for _, tech := range names {
			if vendor, ok := MatchTechnology(tech); ok {
				indicators = append(indicators, Indicator{
					Source:  SourceHTTPTech,
					Vendor:  vendor,
					Context: tech,
				})
			}
		}
	}

	return indicators
}
