// internal/notify/service.go

// Package notify dispatches welcome emails and WhatsApp/SMS
// verification messages. Every send is fire-and-forget from the
// caller's point of view: failures are logged and never block or fail
// the triggering operation.
package notify

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"student-portal/internal/common/config"
	"student-portal/internal/common/logger"
	"student-portal/internal/models"
)

// EmailSender is the slice of the SES client used here.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender is the slice of the SNS client used here.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Service struct {
	config config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

func NewService(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	return &Service{
		config: cfg,
		email:  email,
		sms:    sms,
		logger: log,
	}
}

// AfterSubmission sends the confirmation email for a submitted
// application. Registered as a submission hook; the upsert has already
// committed by the time this runs.
func (s *Service) AfterSubmission(ctx context.Context, app *models.Application, lead *models.Lead) error {
	if !s.config.Email.Enabled || s.email == nil {
		return nil
	}

	subject := "We received your application"
	body := fmt.Sprintf(
		"Dear %s,\n\nYour application %s has been received and is now being processed. "+
			"You can follow its progress from your portal dashboard.\n\nAdmissions Office",
		lead.Name, app.ID)

	_, err := s.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(s.config.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{lead.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send submission email to %s: %w", lead.Email, err)
	}
	return nil
}

// SendVerificationCode delivers a WhatsApp-number verification code via
// SMS. Callers invoke it on a goroutine; a failure only logs.
func (s *Service) SendVerificationCode(ctx context.Context, phone, code string) {
	if !s.config.SMS.Enabled || s.sms == nil {
		return
	}

	input := &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(fmt.Sprintf("Your verification code is %s", code)),
	}
	if s.config.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(s.config.SMS.SenderID),
			},
		}
	}

	if _, err := s.sms.Publish(ctx, input); err != nil {
		s.logger.Warn("verification code send failed", map[string]interface{}{
			"phone": phone,
			"error": err.Error(),
		})
	}
}
