package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/closebase/assessment-api/internal/domain/entity"
)

// EmailService sends transactional emails.
type EmailService interface {
	SendPassNotification(ctx context.Context, toEmail, firstName string, result *entity.AssessmentResult) error
}

// NoopEmailService is used when outgoing email is disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendPassNotification(ctx context.Context, toEmail, firstName string, result *entity.AssessmentResult) error {
	log.Printf("[EmailService] noop send pass notification to=%s attempt=%s", toEmail, result.AttemptID)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from   string
	client *resend.Client
}

func NewResendEmailService(apiKey, from string) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	return &ResendEmailService{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// SendPassNotification informs a candidate that the assessment was passed
// and the profile badge is unlocked. The attempt ID doubles as the
// idempotency key, so retries of the same attempt never duplicate the email.
func (s *ResendEmailService) SendPassNotification(ctx context.Context, toEmail, firstName string, result *entity.AssessmentResult) error {
	if toEmail == "" || result == nil {
		return fmt.Errorf("toEmail and result are required")
	}

	greeting := "Hallo"
	if strings.TrimSpace(firstName) != "" {
		greeting = "Hallo " + strings.TrimSpace(firstName)
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Glückwunsch! Du hast das Assessment bestanden",
		Text: fmt.Sprintf(
			"%s,\n\ndu hast das Vertriebs-Assessment mit %.1f von %d Punkten bestanden.\nDein Badge ist jetzt in deinem Profil freigeschaltet und für Recruiter sichtbar.\n\nDein Closebase-Team",
			greeting, result.TotalScore, 27,
		),
		Html: fmt.Sprintf(
			"<p>%s,</p><p>du hast das Vertriebs-Assessment mit <strong>%.1f von %d Punkten</strong> bestanden.</p><p>Dein Badge ist jetzt in deinem Profil freigeschaltet und für Recruiter sichtbar.</p><p>Dein Closebase-Team</p>",
			greeting, result.TotalScore, 27,
		),
	}

	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(result.AttemptID) != "" {
		options.IdempotencyKey = "assessment-pass-" + result.AttemptID
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}
