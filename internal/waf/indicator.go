package waf

import "time"

// Source identifies where an indicator was observed.
type Source string

const (
	SourceDNSTXT     Source = "DNS_TXT"
	SourceDNSCNAME   Source = "DNS_CNAME"
	SourceDNSIP      Source = "DNS_IP"
	SourceHTTPHeader Source = "HTTP_HEADER"
	SourceHTTPCookie Source = "HTTP_COOKIE"
	SourceHTTPBody   Source = "HTTP_BODY"
	SourceHTTPTech   Source = "HTTP_TECH"
)

// Indicator is one piece of matched evidence tying a record or response
// attribute to a candidate vendor. Indicators are never mutated after
// creation.
type Indicator struct {
	Source  Source `json:"source"`
	Vendor  string `json:"vendor"`
	Context string `json:"context,omitempty"`
}

// Label renders the indicator in the SOURCE_vendor form used in reports,
// e.g. "DNS_TXT_cloudflare".
func (i Indicator) Label() string {
	return string(i.Source) + "_" + i.Vendor
}

// CheckResult is the per-URL verdict assembled by the orchestrator. It is
// immutable once returned. WAFDetected is true exactly when Indicators is
// non-empty, and WAFVendor is set exactly when WAFDetected is true.
// StatusCode and ResponseTime stay zero when the HTTP fetch never completed;
// Error may be set alongside DNS-derived indicators, since a DNS-only
// detection survives an HTTP failure.
type CheckResult struct {
	URL          string      `json:"url"`
	WAFDetected  bool        `json:"waf_detected"`
	WAFVendor    string      `json:"waf_vendor,omitempty"`
	Indicators   []Indicator `json:"waf_indicators,omitempty"`
	StatusCode   int         `json:"status_code,omitempty"`
	ResponseTime float64     `json:"response_time,omitempty"`
	Error        string      `json:"error,omitempty"`
	CheckedAt    time.Time   `json:"checked_at"`
}
