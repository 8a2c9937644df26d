package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"strings"
	"text/template"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/moderation"

	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

const (
	FromName             = "Gigflow Safety"
	maxRetires           = 3
	SafetyReportTemplate = "safety_report.tmpl"
)

//go:embed "templates"
var FS embed.FS

var ErrNotConfigured = errors.New("mailer: missing sender or recipient")

type Client interface {
	SendReport(record moderation.AuditRecord) error
}

// Dialer is satisfied by *mail.Dialer.
type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	ToEmail   string
	AuditURL  string
}

// SafetyMailer emails the trust and safety inbox when content is reported.
type SafetyMailer struct {
	cfg    Config
	dialer Dialer
	tmpl   *template.Template
	logger *zap.SugaredLogger
	retry  time.Duration
}

func NewSafetyMailer(cfg Config, logger *zap.SugaredLogger) (*SafetyMailer, error) {
	return newSafetyMailer(cfg, mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), logger)
}

func newSafetyMailer(cfg Config, d Dialer, logger *zap.SugaredLogger) (*SafetyMailer, error) {
	if cfg.FromEmail == "" || cfg.ToEmail == "" {
		return nil, ErrNotConfigured
	}
	tmpl, err := template.New("").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(FS, "templates/"+SafetyReportTemplate)
	if err != nil {
		return nil, err
	}
	return &SafetyMailer{cfg: cfg, dialer: d, tmpl: tmpl, logger: logger, retry: time.Second}, nil
}

func (m *SafetyMailer) SendReport(record moderation.AuditRecord) error {
	data := struct {
		Record   moderation.AuditRecord
		AuditURL string
	}{record, m.cfg.AuditURL}

	subject := new(bytes.Buffer)
	if err := m.tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return err
	}
	body := new(bytes.Buffer)
	if err := m.tmpl.ExecuteTemplate(body, "body", data); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, FromName)
	msg.SetHeader("To", m.cfg.ToEmail)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", body.String())

	var err error
	for i := 0; i < maxRetires; i++ {
		if err = m.dialer.DialAndSend(msg); err == nil {
			return nil
		}
		m.logger.Warnf("Failed to send safety report, attempt %d of %d: %v", i+1, maxRetires, err)
		time.Sleep(m.retry * time.Duration(i+1))
	}
	return err
}

// Handle is an events.Handler for content.reported.
func (m *SafetyMailer) Handle(_ context.Context, e events.Event) {
	record, ok := e.Payload.(moderation.AuditRecord)
	if !ok {
		m.logger.Warnw("ignoring malformed report event", "topic", e.Topic)
		return
	}
	if err := m.SendReport(record); err != nil {
		m.logger.Errorw("failed to email safety report", "audit_id", record.ID, "sender_id", record.SenderID, "error", err)
		return
	}
	m.logger.Infow("safety report emailed", "audit_id", record.ID, "severity", record.Severity)
}
