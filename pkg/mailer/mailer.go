package mailer

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// ServiceInterface defines the contract for sending transactional email.
type ServiceInterface interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESService sends email through AWS SESv2.
type SESService struct {
	client *sesv2.Client
	sender string
}

// NewSESService builds the SES client from the default AWS credential
// chain.
func NewSESService(ctx context.Context, sender string) (*SESService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESService{
		client: sesv2.NewFromConfig(cfg),
		sender: sender,
	}, nil
}

// Send delivers a plain-text email.
func (s *SESService) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &s.sender,
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &body},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
