package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for security notifications
type EmailService interface {
	SendDeviceTrustedAlert(ctx context.Context, email, deviceLabel string, expiresAt time.Time) error
}

// AWSSESEmailService sends notifications using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendDeviceTrustedAlert notifies a user that a new device was marked as
// trusted for their account
func (s *AWSSESEmailService) SendDeviceTrustedAlert(ctx context.Context, email, deviceLabel string, expiresAt time.Time) error {
	expiry := expiresAt.UTC().Format("Jan 2, 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>New Trusted Device</h1>
        </div>
        <div class="content">
            <p>A device was just marked as trusted for your admin account and will skip
            one-time-password verification until <strong>%s</strong>.</p>
            <p>Device: <code>%s</code></p>
            <div class="warning">
                <strong>Wasn't you?</strong> Someone may have access to your account.
                Sign in and review your account immediately.
            </div>
        </div>
        <div class="footer">
            <p>This is an automated security notification. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, expiry, deviceLabel)

	textBody := fmt.Sprintf(`New Trusted Device

A device was just marked as trusted for your admin account and will skip
one-time-password verification until %s.

Device: %s

Wasn't you? Someone may have access to your account. Sign in and review your
account immediately.
`, expiry, deviceLabel)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Security alert: new trusted device"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send device alert email: %w", err)
	}

	s.logger.Info("device trusted alert sent", slog.String("device_label", deviceLabel))
	return nil
}
