// Package notify delivers newly discovered bid records by email.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/jonesrussell/bidwatch/internal/crawl"
	"github.com/jonesrussell/bidwatch/internal/domain"
	"github.com/jonesrussell/bidwatch/internal/logger"
)

const dialTimeout = 10 * time.Second

// EmailConfig holds SMTP settings. When Enabled is false the notifier
// is a no-op and the remaining fields are not validated.
type EmailConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPHost   string   `mapstructure:"smtp_host"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Sender     string   `mapstructure:"sender"`
	Password   string   `mapstructure:"password"`
	Recipients []string `mapstructure:"recipients"`
}

// Validate checks that an enabled configuration is complete.
func (c EmailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SMTPHost == "" || c.SMTPPort == 0 {
		return errors.New("email: smtp host and port are required")
	}
	if c.Sender == "" || c.Password == "" {
		return errors.New("email: sender and password are required")
	}
	if len(c.Recipients) == 0 {
		return errors.New("email: at least one recipient is required")
	}
	return nil
}

// EmailNotifier sends an HTML digest of new bid records over SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	logger logger.Interface
	send   func(*gomail.Message) error
}

var _ crawl.Notifier = (*EmailNotifier)(nil)

// NewEmailNotifier validates cfg and builds a notifier.
func NewEmailNotifier(cfg EmailConfig, log logger.Interface) (*EmailNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	n := &EmailNotifier{
		cfg:    cfg,
		logger: log.WithComponent("notify"),
	}
	n.send = n.dialAndSend
	return n, nil
}

// Send delivers one digest email covering all records. A disabled
// notifier accepts and drops the batch.
func (n *EmailNotifier) Send(ctx context.Context, records []domain.BidRecord) error {
	if len(records) == 0 {
		return nil
	}
	if !n.cfg.Enabled {
		n.logger.Debug("email notifications disabled, dropping batch",
			"bids", len(records))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := Render(records)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.Sender)
	m.SetHeader("To", n.cfg.Recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.send(m); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	n.logger.Info("bid digest sent",
		"bids", len(records), "recipients", len(n.cfg.Recipients))
	return nil
}

func (n *EmailNotifier) dialAndSend(m *gomail.Message) error {
	dialer := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.Sender, n.cfg.Password)
	dialer.Timeout = dialTimeout
	return dialer.DialAndSend(m)
}

var digestTmpl = template.Must(template.New("digest").Parse(digestTemplate))

// Render produces the digest subject and HTML body for records.
func Render(records []domain.BidRecord) (subject, body string, err error) {
	subject = fmt.Sprintf("发现 %d 条新招标信息", len(records))

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, records); err != nil {
		return "", "", err
	}
	return subject, buf.String(), nil
}
