package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/semmidev/rdsbackup/internal/domain"
)

type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch publishes run metrics under a fixed namespace.
type CloudWatch struct {
	client    cloudWatchAPI
	namespace string
	now       func() time.Time
}

func NewCloudWatch(ctx context.Context, region, namespace string) (*CloudWatch, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &CloudWatch{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: namespace,
		now:       time.Now,
	}, nil
}

func (c *CloudWatch) Put(ctx context.Context, metrics []domain.Metric) error {
	if len(metrics) == 0 {
		return nil
	}

	ts := c.now().UTC()
	data := make([]types.MetricDatum, 0, len(metrics))
	for _, m := range metrics {
		dims := make([]types.Dimension, 0, len(m.Dimensions))
		for _, d := range m.Dimensions {
			dims = append(dims, types.Dimension{Name: aws.String(d.Name), Value: aws.String(d.Value)})
		}
		data = append(data, types.MetricDatum{
			MetricName: aws.String(m.Name),
			Value:      aws.Float64(m.Value),
			Unit:       unit(m.Unit),
			Dimensions: dims,
			Timestamp:  aws.Time(ts),
		})
	}

	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("failed to put metric data: %w", err)
	}
	return nil
}

func unit(u domain.Unit) types.StandardUnit {
	switch u {
	case domain.UnitMegabytes:
		return types.StandardUnitMegabytes
	case domain.UnitSeconds:
		return types.StandardUnitSeconds
	case domain.UnitCount:
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
