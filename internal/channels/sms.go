// internal/channels/sms.go
package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSService is the slice of the SNS client the SMS sender uses, declared
// here so tests can mock it.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender delivers via AWS SNS direct publish to a phone number.
type SMSSender struct {
	client   SNSService
	senderID string
}

func NewSMSSender(ctx context.Context, region, senderID string) (*SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SMSSender{
		client:   sns.NewFromConfig(awsCfg),
		senderID: senderID,
	}, nil
}

// NewSMSSenderWithClient injects a ready client; used by tests.
func NewSMSSenderWithClient(client SNSService, senderID string) *SMSSender {
	return &SMSSender{client: client, senderID: senderID}
}

// Send publishes the body as an SMS. The subject is not representable in SMS
// and is dropped.
func (s *SMSSender) Send(ctx context.Context, recipient, _ string, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(body),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}
	_, err := s.client.Publish(ctx, input)
	return err
}
