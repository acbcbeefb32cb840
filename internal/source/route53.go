package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"
)

// route53API is the slice of the Route 53 client the lister needs.
type route53API interface {
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
	ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
}

// Route53Lister enumerates record names from hosted zones and turns them
// into probe URLs.
type Route53Lister struct {
	client route53API
	logger *zap.SugaredLogger
}

// NewRoute53Lister builds a lister on the ambient AWS credential chain.
// Missing credentials surface here and abort the run.
func NewRoute53Lister(ctx context.Context, logger *zap.SugaredLogger) (*Route53Lister, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Route53Lister{client: route53.NewFromConfig(cfg), logger: logger}, nil
}

// List walks the hosted zone's record sets (all zones when hostedZoneID is
// empty), keeps A, CNAME and AAAA records, strips the trailing dot from each
// name and prefixes https://. maxRecords caps the list when positive.
func (l *Route53Lister) List(ctx context.Context, hostedZoneID string, maxRecords int) ([]string, error) {
	var zoneIDs []string
	if hostedZoneID != "" {
		zoneIDs = []string{hostedZoneID}
	} else {
		out, err := l.client.ListHostedZones(ctx, &route53.ListHostedZonesInput{})
		if err != nil {
			return nil, fmt.Errorf("list hosted zones: %w", err)
		}
		for _, zone := range out.HostedZones {
			zoneIDs = append(zoneIDs, aws.ToString(zone.Id))
		}
	}

	var urls []string
	for _, zoneID := range zoneIDs {
		l.logger.Infow("listing zone record sets", "zone", zoneID)

		input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(zoneID)}
		for {
			page, err := l.client.ListResourceRecordSets(ctx, input)
			if err != nil {
				return nil, fmt.Errorf("list record sets for zone %s: %w", zoneID, err)
			}
			for _, record := range page.ResourceRecordSets {
				switch record.Type {
				case types.RRTypeA, types.RRTypeCname, types.RRTypeAaaa:
				default:
					continue
				}
				name := strings.TrimSuffix(aws.ToString(record.Name), ".")
				urls = append(urls, EnsureScheme(name))
				if maxRecords > 0 && len(urls) >= maxRecords {
					l.logger.Infow("record cap reached", "max", maxRecords)
					return urls, nil
				}
			}
			if !page.IsTruncated {
				break
			}
			input.StartRecordName = page.NextRecordName
			input.StartRecordType = page.NextRecordType
			input.StartRecordIdentifier = page.NextRecordIdentifier
		}
	}

	l.logger.Infow("listed urls from route53", "count", len(urls))
	return urls, nil
}
