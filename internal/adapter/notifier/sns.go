package notifier

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/semmidev/rdsbackup/internal/domain"
)

const (
	// SNS subjects are limited to 100 characters.
	maxSubjectLength = 100

	// SNS rejects payloads over 256 KB; attributes and subject count towards it.
	maxBodyBytes = 256*1024 - 4*1024

	// Bytes kept from the start of an oversized body, before the marker.
	bodyHeadBytes = 2 * 1024

	truncatedMarker = "\n[truncated]\n"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNS struct {
	client   snsAPI
	topicARN string
}

func NewSNS(ctx context.Context, region, topicARN string) (*SNS, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SNS{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

func (s *SNS) Publish(ctx context.Context, msg domain.Message) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(truncate(msg.Subject, maxSubjectLength)),
		Message:  aws.String(fitBody(msg.Body, maxBodyBytes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"status": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Status)),
			},
			"database": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Database),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return nil
}

func (s *SNS) Name() string { return "sns" }

// fitBody keeps the head of body, where the run summary is, and its tail,
// where the dump tool reports the fatal error, within limit bytes.
func fitBody(body string, limit int) string {
	if len(body) <= limit {
		return body
	}

	head := body[:runeBoundary(body, bodyHeadBytes)]
	tailStart := len(body) - (limit - len(head) - len(truncatedMarker))
	for tailStart < len(body) && !utf8.RuneStart(body[tailStart]) {
		tailStart++
	}
	return head + truncatedMarker + body[tailStart:]
}

// runeBoundary returns the largest index <= n that starts a rune.
func runeBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
