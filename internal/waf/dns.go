package waf

import (
	"context"
	"net"

	"github.com/miekg/dns"
	"github.com/projectdiscovery/cdncheck"
	"github.com/projectdiscovery/retryabledns"
	"go.uber.org/zap"
)

// RecordStatus describes the outcome of probing one record type. Keeping
// "no data" apart from "query failed" lets callers and tests tell a WAF-free
// domain from a broken DNS check.
type RecordStatus int

const (
	RecordFound RecordStatus = iota
	RecordAbsent
	QueryFailed
)

// DNSProbe carries the indicators collected from DNS plus the per-record-type
// outcome. A probe never fails as a whole: failed queries contribute zero
// indicators and the batch moves on.
type DNSProbe struct {
	Indicators []Indicator
	TXT        RecordStatus
	CNAME      RecordStatus
	IP         RecordStatus
}

// dnsQuerier is the slice of retryabledns.Client the collector needs.
type dnsQuerier interface {
	Query(host string, requestType uint16) (*retryabledns.DNSData, error)
}

// ipRangeChecker is the slice of cdncheck.Client the collector needs.
type ipRangeChecker interface {
	Check(ip net.IP) (bool, string, error)
}

// DNSCollector gathers WAF/CDN indicators from TXT, CNAME and A records.
type DNSCollector struct {
	client   dnsQuerier
	ipRanges ipRangeChecker
	registry *Registry
	logger   *zap.SugaredLogger
}

// NewDNSCollector wires a retrying DNS client and the CDN IP-range dataset.
func NewDNSCollector(resolvers []string, retries int, registry *Registry, logger *zap.SugaredLogger) (*DNSCollector, error) {
	client, err := retryabledns.New(resolvers, retries)
	if err != nil {
		return nil, err
	}
	ipRanges, err := cdncheck.NewWithCache()
	if err != nil {
		return nil, err
	}
	return &DNSCollector{client: client, ipRanges: ipRanges, registry: registry, logger: logger}, nil
}

// Collect probes the domain's TXT, CNAME and A records. Absent records are a
// normal empty result; resolution failures are logged, marked QueryFailed and
// otherwise ignored.
func (c *DNSCollector) Collect(ctx context.Context, domain string) DNSProbe {
	probe := DNSProbe{TXT: RecordAbsent, CNAME: RecordAbsent, IP: RecordAbsent}

	txt, status := c.query(domain, dns.TypeTXT)
	probe.TXT = status
	if txt != nil {
		for _, record := range txt.TXT {
			for _, vendor := range c.registry.Match(record) {
				probe.Indicators = append(probe.Indicators, Indicator{
					Source:  SourceDNSTXT,
					Vendor:  vendor,
					Context: record,
				})
			}
		}
		if len(txt.TXT) > 0 {
			probe.TXT = RecordFound
		}
	}

	if ctx.Err() != nil {
		return probe
	}

	cname, status := c.query(domain, dns.TypeCNAME)
	probe.CNAME = status
	if cname != nil {
		for _, target := range cname.CNAME {
			if token, ok := MatchCNAME(target); ok {
				probe.Indicators = append(probe.Indicators, Indicator{
					Source:  SourceDNSCNAME,
					Vendor:  token,
					Context: target,
				})
			}
		}
		if len(cname.CNAME) > 0 {
			probe.CNAME = RecordFound
		}
	}

	if ctx.Err() != nil {
		return probe
	}

	a, status := c.query(domain, dns.TypeA)
	probe.IP = status
	if a != nil {
		if len(a.A) > 0 {
			probe.IP = RecordFound
		}
		for _, addr := range a.A {
			ip := net.ParseIP(addr)
			if ip == nil {
				continue
			}
			matched, vendor, err := c.ipRanges.Check(ip)
			if err != nil {
				c.logger.Debugw("cdn ip range check failed", "ip", addr, "error", err)
				continue
			}
			if matched {
				probe.Indicators = append(probe.Indicators, Indicator{
					Source:  SourceDNSIP,
					Vendor:  vendor,
					Context: addr,
				})
			}
		}
	}

	return probe
}

func (c *DNSCollector) query(domain string, recordType uint16) (*retryabledns.DNSData, RecordStatus) {
	data, err := c.client.Query(domain, recordType)
	if err != nil {
		c.logger.Debugw("dns query failed", "domain", domain, "type", dns.TypeToString[recordType], "error", err)
		return nil, QueryFailed
	}
	// NXDOMAIN and empty answers are both a normal "nothing there".
	if data == nil || data.StatusCode == "NXDOMAIN" {
		return nil, RecordAbsent
	}
	return data, RecordAbsent
}
