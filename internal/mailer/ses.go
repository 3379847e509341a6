// Package mailer sends transactional email through AWS SES.
package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/pkg/logger"
)

// SESMailer sends HTML email via AWS SES using the SDK v2.
type SESMailer struct {
	fromAddress string
	fromName    string
	client      *sesv2.Client
}

// NewSESMailer creates an SES mailer. The SDK client is initialized only
// if credentials are configured; sending without one returns an error.
func NewSESMailer(cfg config.SESConfig) *SESMailer {
	m := &SESMailer{
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			log.Printf("[SES] Warning: failed to initialize AWS config: %v", err)
		} else {
			m.client = sesv2.NewFromConfig(awsCfg)
		}
	}

	return m
}

// Send delivers a single HTML email and returns the SES message id.
func (m *SESMailer) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("SES client not initialized - check credentials")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", m.fromName, m.fromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	log.Printf("[SES] Sent to %s (id: %s)", logger.RedactEmail(to), messageID)

	return messageID, nil
}
