package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// EmailSender delivers a single message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Blast is an admin broadcast aimed at one audience.
type Blast struct {
	Target  string `json:"target" form:"target" validate:"required,oneof=All Bronze Silver Gold Platinum"`
	Subject string `json:"subject" form:"subject" validate:"required,max=120"`
	Body    string `json:"body" form:"body" validate:"required"`
}

// BlastPreview lists who a blast would reach.
type BlastPreview struct {
	Target         string   `json:"target"`
	Recipients     []string `json:"recipients"`
	RecipientCount int      `json:"recipient_count"`
}

// SendReport records the outcome per recipient.
type SendReport struct {
	Sent   []string          `json:"sent"`
	Failed map[string]string `json:"failed"`
}

// EmailBlastService previews and sends tier-targeted broadcasts.
type EmailBlastService struct {
	log      *slog.Logger
	tiering  *TieringService
	sender   EmailSender
	validate *validator.Validate
}

// NewEmailBlastService creates a new EmailBlastService.
func NewEmailBlastService(log *slog.Logger, tiering *TieringService, sender EmailSender) *EmailBlastService {
	return &EmailBlastService{log: log, tiering: tiering, sender: sender, validate: newValidator()}
}

// Preview validates the blast and resolves its audience.
func (s *EmailBlastService) Preview(ctx context.Context, blast Blast) (*BlastPreview, error) {
	if err := s.check(blast); err != nil {
		return nil, err
	}
	recipients, err := s.tiering.BuildAudience(ctx, blast.Target)
	if err != nil {
		return nil, err
	}
	return &BlastPreview{Target: blast.Target, Recipients: recipients, RecipientCount: len(recipients)}, nil
}

// Send rebuilds the audience and delivers to each recipient in turn. A failed delivery is
// recorded and the batch continues; the returned error combines every failure.
func (s *EmailBlastService) Send(ctx context.Context, blast Blast) (*SendReport, error) {
	const op = "services.EmailBlastService.Send"
	logger := s.log.With(slog.String("op", op), slog.String("target", blast.Target))

	if err := s.check(blast); err != nil {
		return nil, err
	}
	recipients, err := s.tiering.BuildAudience(ctx, blast.Target)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	report := &SendReport{Sent: make([]string, 0, len(recipients)), Failed: make(map[string]string)}
	var errs error
	for _, to := range recipients {
		if err := s.sender.Send(ctx, to, blast.Subject, blast.Body); err != nil {
			logger.Warn("delivery failed", slog.String("to", to), slog.Any("error", err))
			report.Failed[to] = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", to, err))
			continue
		}
		report.Sent = append(report.Sent, to)
	}

	logger.Info("blast finished", slog.Int("sent", len(report.Sent)), slog.Int("failed", len(report.Failed)))
	return report, errs
}

func (s *EmailBlastService) check(blast Blast) error {
	ve := newValidationError()
	if err := collectFieldErrors(s.validate, blast, ve); err != nil {
		return err
	}
	if ve.empty() {
		return nil
	}
	return ve
}
