package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender publishes transactional SMS messages through SNS.
type SMSSender struct {
	api      SNSAPI
	senderID string
}

func NewSMSSender(cfg aws.Config, senderID string) *SMSSender {
	return &SMSSender{api: sns.NewFromConfig(cfg), senderID: senderID}
}

func NewSMSSenderWithAPI(api SNSAPI, senderID string) *SMSSender {
	return &SMSSender{api: api, senderID: senderID}
}

func (s *SMSSender) Send(ctx context.Context, phone, message string) (string, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.api.Publish(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
