package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/Domenick1991/apptbooking/internal/kafka"
	"go.uber.org/zap"
)

const confirmationTmpl = `Hello {{.CustomerFirstName}} {{.CustomerLastName}},

Your {{.Category}} appointment is confirmed.

When: {{.When}}
Duration: {{.DurationMinutes}} minutes
With: {{.ProviderFirstName}} {{.ProviderLastName}}

Confirmation reference: {{.Reference}}
`

const cancellationTmpl = `Hello {{.CustomerFirstName}} {{.CustomerLastName}},

Your {{.Category}} appointment on {{.When}} has been cancelled.

Reference: {{.Reference}}
`

type templateData struct {
	CustomerFirstName string
	CustomerLastName  string
	ProviderFirstName string
	ProviderLastName  string
	Category          string
	DurationMinutes   int
	When              string
	Reference         string
}

// Sender renders booking notifications. Actual SMTP delivery is an external
// collaborator concern; the rendered message is handed off via the log sink.
type Sender struct {
	confirmation *template.Template
	cancellation *template.Template
	logger       *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{
		confirmation: template.Must(template.New("confirmation").Parse(confirmationTmpl)),
		cancellation: template.Must(template.New("cancellation").Parse(cancellationTmpl)),
		logger:       logger,
	}
}

func (s *Sender) SendConfirmation(ctx context.Context, image kafka.RecordImage) error {
	return s.send(ctx, s.confirmation, "appointment confirmed", image)
}

func (s *Sender) SendCancellation(ctx context.Context, image kafka.RecordImage) error {
	return s.send(ctx, s.cancellation, "appointment cancelled", image)
}

func (s *Sender) send(_ context.Context, tmpl *template.Template, subject string, image kafka.RecordImage) error {
	if image.CustomerEmail == "" {
		return fmt.Errorf("booking %s has no customer email", image.PK)
	}

	when := image.SK
	if t, err := time.Parse(time.RFC3339, image.SK); err == nil {
		when = t.Format("Monday, 2 January 2006 at 15:04 MST")
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, templateData{
		CustomerFirstName: image.CustomerFirstName,
		CustomerLastName:  image.CustomerLastName,
		ProviderFirstName: image.ProviderFirstName,
		ProviderLastName:  image.ProviderLastName,
		Category:          image.Category,
		DurationMinutes:   image.DurationMinutes,
		When:              when,
		Reference:         image.PK,
	}); err != nil {
		return fmt.Errorf("render %s email: %w", subject, err)
	}

	s.logger.Info("email sent",
		zap.String("to", image.CustomerEmail),
		zap.String("subject", subject),
		zap.String("body", body.String()))
	return nil
}
