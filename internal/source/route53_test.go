package source

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"
)

type stubRoute53 struct {
	zones       []types.HostedZone
	records     map[string][]types.ResourceRecordSet
	zoneListErr error
}

func (s *stubRoute53) ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error) {
	if s.zoneListErr != nil {
		return nil, s.zoneListErr
	}
	return &route53.ListHostedZonesOutput{HostedZones: s.zones}, nil
}

func (s *stubRoute53) ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	return &route53.ListResourceRecordSetsOutput{
		ResourceRecordSets: s.records[aws.ToString(params.HostedZoneId)],
	}, nil
}

func record(name string, rrType types.RRType) types.ResourceRecordSet {
	return types.ResourceRecordSet{Name: aws.String(name), Type: rrType}
}

func TestRoute53ListFiltersAndStrips(t *testing.T) {
	lister := &Route53Lister{
		client: &stubRoute53{
			zones: []types.HostedZone{{Id: aws.String("Z1"), Name: aws.String("example.com.")}},
			records: map[string][]types.ResourceRecordSet{
				"Z1": {
					record("example.com.", types.RRTypeA),
					record("www.example.com.", types.RRTypeCname),
					record("v6.example.com.", types.RRTypeAaaa),
					record("example.com.", types.RRTypeTxt),
					record("example.com.", types.RRTypeNs),
				},
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	urls, err := lister.List(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"https://example.com",
		"https://www.example.com",
		"https://v6.example.com",
	}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %d: %v", len(want), len(urls), urls)
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

func TestRoute53ListSpecificZoneSkipsZoneListing(t *testing.T) {
	lister := &Route53Lister{
		client: &stubRoute53{
			zoneListErr: errors.New("must not list zones when one is given"),
			records: map[string][]types.ResourceRecordSet{
				"Z42": {record("app.example.com.", types.RRTypeA)},
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	urls, err := lister.List(context.Background(), "Z42", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "https://app.example.com" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestRoute53ListCap(t *testing.T) {
	lister := &Route53Lister{
		client: &stubRoute53{
			records: map[string][]types.ResourceRecordSet{
				"Z1": {
					record("a.example.com.", types.RRTypeA),
					record("b.example.com.", types.RRTypeA),
					record("c.example.com.", types.RRTypeA),
				},
			},
		},
		logger: zap.NewNop().Sugar(),
	}

	urls, err := lister.List(context.Background(), "Z1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected record cap of 2, got %d", len(urls))
	}
}

type pagingRoute53 struct {
	stubRoute53
	calls int
}

func (s *pagingRoute53) ListResourceRecordSets(ctx context.Context, params *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	s.calls++
	if params.StartRecordName == nil {
		return &route53.ListResourceRecordSetsOutput{
			ResourceRecordSets: []types.ResourceRecordSet{record("first.example.com.", types.RRTypeA)},
			IsTruncated:        true,
			NextRecordName:     aws.String("second.example.com."),
			NextRecordType:     types.RRTypeA,
		}, nil
	}
	return &route53.ListResourceRecordSetsOutput{
		ResourceRecordSets: []types.ResourceRecordSet{record("second.example.com.", types.RRTypeA)},
	}, nil
}

func TestRoute53ListPaginates(t *testing.T) {
	stub := &pagingRoute53{}
	lister := &Route53Lister{client: stub, logger: zap.NewNop().Sugar()}

	urls, err := lister.List(context.Background(), "Z1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 2 {
		t.Errorf("expected 2 pages fetched, got %d", stub.calls)
	}
	if len(urls) != 2 || urls[1] != "https://second.example.com" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestRoute53ListZoneErrorIsFatal(t *testing.T) {
	lister := &Route53Lister{
		client: &stubRoute53{zoneListErr: errors.New("AccessDenied")},
		logger: zap.NewNop().Sugar(),
	}
	if _, err := lister.List(context.Background(), "", 0); err == nil {
		t.Fatal("expected error when zone listing fails")
	}
}
