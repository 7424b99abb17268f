package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/plan"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

const defaultAWSRegion = "us-east-1"

// AWSProvider plans compute resources on EC2 and verifies credentials
// and instance limits against the account.
type AWSProvider struct {
	*CatalogProvider
	region string
}

// NewAWSProvider creates an AWS provider from static credentials in
// the provider configuration.
func NewAWSProvider(key string, cfg *topology.ProviderConfig, logger *slog.Logger) *AWSProvider {
	region := defaultAWSRegion
	if cfg != nil {
		if v, ok := cfg.Settings["region"].(string); ok && v != "" {
			region = v
		}
	}
	return &AWSProvider{
		CatalogProvider: newCatalogProvider(key, cfg, awsDefaultCatalog, logger),
		region:          region,
	}
}

func awsDefaultCatalog() map[string]*domain.Component {
	return map[string]*domain.Component{
		"ec2_instance": {
			ID:           "ec2_instance",
			ResourceType: "compute",
			Provides: map[string]*domain.ConnectionPoint{
				"compute:linux": {Interface: "linux", ResourceType: "compute"},
			},
			Properties: map[string]any{"instance_type": "t3.small"},
		},
	}
}

func (p *AWSProvider) newClient() *ec2.Client {
	return ec2.New(ec2.Options{
		Region: p.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			p.credential("access_key_id"), p.credential("secret_access_key"), ""),
	})
}

// VerifyAccess lists regions, which exercises the credentials without
// touching any resources.
func (p *AWSProvider) VerifyAccess(ctx context.Context) ([]plan.Warning, error) {
	_, err := p.newClient().DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		RegionNames: []string{p.region},
	})
	if err != nil {
		return []plan.Warning{{
			Type:    "NO_AWS_ACCESS",
			Message: fmt.Sprintf("aws credentials rejected in %s: %v", p.region, err),
		}}, nil
	}
	return nil, nil
}

// VerifyLimits compares the planned compute resources against the
// account's max-instances attribute.
func (p *AWSProvider) VerifyLimits(ctx context.Context, resources []*domain.Resource) ([]plan.Warning, error) {
	needed := countComputeResources(resources)
	if needed == 0 {
		return nil, nil
	}

	out, err := p.newClient().DescribeAccountAttributes(ctx, &ec2.DescribeAccountAttributesInput{
		AttributeNames: []ec2types.AccountAttributeName{
			ec2types.AccountAttributeName("max-instances"),
		},
	})
	if err != nil {
		return []plan.Warning{{
			Type:    "UNKNOWN_LIMITS",
			Message: "cannot read EC2 account limits: " + err.Error(),
		}}, nil
	}

	maxInstances := 0
	for _, attr := range out.AccountAttributes {
		if aws.ToString(attr.AttributeName) != "max-instances" {
			continue
		}
		for _, value := range attr.AttributeValues {
			if n, err := strconv.Atoi(aws.ToString(value.AttributeValue)); err == nil {
				maxInstances = n
			}
		}
	}
	if maxInstances > 0 && needed > maxInstances {
		return []plan.Warning{{
			Type: "INSUFFICIENT_CAPACITY",
			Message: fmt.Sprintf(
				"plan needs %d EC2 instances but the account allows %d", needed, maxInstances),
		}}, nil
	}
	return nil, nil
}
