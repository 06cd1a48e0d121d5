package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email mails a plain-text summary of each application to the reviewers.
type Email struct {
	cfg    EmailConfig
	sender mailSender
}

func NewEmail(cfg EmailConfig) *Email {
	return &Email{
		cfg:    cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (e *Email) NotifyRecruitment(_ context.Context, rec *model.Recruitment) error {
	if len(e.cfg.To) == 0 {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", e.cfg.To...)
	m.SetHeader("Subject", fmt.Sprintf("Nueva solicitud de reclutamiento %s: %s", rec.Profession, rec.Name))
	m.SetBody("text/plain", emailBody(rec))

	if err := e.sender.DialAndSend(m); err != nil {
		metrics.RecordNotification("email", "error")
		return fmt.Errorf("send recruitment email: %w", err)
	}
	metrics.RecordNotification("email", "sent")
	return nil
}

func emailBody(rec *model.Recruitment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre: %s\n", rec.Name)
	fmt.Fprintf(&b, "DNI: %s\n", rec.DNI)
	fmt.Fprintf(&b, "Discord: %s\n", rec.Discord)
	fmt.Fprintf(&b, "Teléfono: %s\n", rec.Phone)
	fmt.Fprintf(&b, "Profesión: %s\n\n", rec.Profession)
	fmt.Fprintf(&b, "Motivación:\n%s\n\n", rec.Motivation)
	fmt.Fprintf(&b, "Experiencia:\n%s\n", rec.Experience)
	if len(rec.Description) > 0 {
		fmt.Fprintf(&b, "\nDescripción:\n%s\n", strings.Join(rec.Description, "\n"))
	}
	return b.String()
}
