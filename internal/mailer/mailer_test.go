package mailer

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	mail "gopkg.in/mail.v2"
)

type fakeDialer struct {
	failures int
	calls    int
	sent     []*mail.Message
}

func (d *fakeDialer) DialAndSend(m ...*mail.Message) error {
	d.calls++
	if d.failures > 0 {
		d.failures--
		return errors.New("smtp down")
	}
	d.sent = append(d.sent, m...)
	return nil
}

func testConfig() Config {
	return Config{FromEmail: "safety@gigflow.test", ToEmail: "tns@gigflow.test", AuditURL: "https://admin.gigflow.test/audit"}
}

func testRecord() moderation.AuditRecord {
	return moderation.AuditRecord{
		ID:             uuid.New(),
		SenderID:       "u-42",
		ContentType:    moderation.ContentMessage,
		Severity:       moderation.Violation,
		Categories:     []string{"harassment", "threaten"},
		Action:         moderation.ActionReport,
		Confidence:     0.85,
		FlaggedContent: "stop the harassment or I will threaten you",
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSendReportRendersTemplate(t *testing.T) {
	d := &fakeDialer{}
	m, err := newSafetyMailer(testConfig(), d, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, m.SendReport(testRecord()))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"[violation] message from u-42 flagged"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"tns@gigflow.test"}, msg.GetHeader("To"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "harassment, threaten")
	assert.Contains(t, buf.String(), "https://admin.gigflow.test/audit")
}

func TestSendReportRetries(t *testing.T) {
	d := &fakeDialer{failures: 2}
	m, err := newSafetyMailer(testConfig(), d, zap.NewNop().Sugar())
	require.NoError(t, err)
	m.retry = 0

	require.NoError(t, m.SendReport(testRecord()))
	assert.Equal(t, 3, d.calls)

	d.failures = 5
	require.Error(t, m.SendReport(testRecord()))
}

func TestHandleSendsReportedRecords(t *testing.T) {
	d := &fakeDialer{}
	m, err := newSafetyMailer(testConfig(), d, zap.NewNop().Sugar())
	require.NoError(t, err)

	m.Handle(t.Context(), events.Event{Topic: events.TopicContentReported, Payload: testRecord()})
	m.Handle(t.Context(), events.Event{Topic: events.TopicContentReported, Payload: "junk"})
	assert.Equal(t, 1, d.calls)
}

func TestNewSafetyMailerRequiresAddresses(t *testing.T) {
	_, err := newSafetyMailer(Config{FromEmail: "a@b.c"}, &fakeDialer{}, zap.NewNop().Sugar())
	require.ErrorIs(t, err, ErrNotConfigured)
}
