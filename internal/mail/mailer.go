// AngelaMos | 2026
// mailer.go

package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	gomail "github.com/wneessen/go-mail"

	"github.com/autowds/server/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type Sender interface {
	SendValidationCode(ctx context.Context, to, code string) error
}

type Mailer struct {
	client    *gomail.Client
	from      string
	templates *template.Template
}

func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Mailer{
		client:    client,
		from:      cfg.From,
		templates: templates,
	}, nil
}

func (m *Mailer) SendValidationCode(ctx context.Context, to, code string) error {
	var body bytes.Buffer
	err := m.templates.ExecuteTemplate(&body, "validate_code.html", map[string]string{
		"Code": code,
	})
	if err != nil {
		return fmt.Errorf("render validation mail: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set mail to: %w", err)
	}

	msg.Subject("Your verification code")
	msg.SetBodyString(gomail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send validation mail: %w", err)
	}

	return nil
}
