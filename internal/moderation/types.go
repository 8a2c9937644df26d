package moderation

import (
	"time"

	"github.com/google/uuid"
)

// Severity is ordered: Safe < Warning < Violation < Severe.
type Severity int

const (
	Safe Severity = iota
	Warning
	Violation
	Severe
)

var severityNames = [...]string{"safe", "warning", "violation", "severe"}

func (s Severity) String() string {
	if s < Safe || s > Severe {
		return "unknown"
	}
	return severityNames[s]
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	for i, name := range severityNames {
		if name == string(b) {
			*s = Severity(i)
			return nil
		}
	}
	return ErrUnknownSeverity
}

type Action string

const (
	ActionAllow   Action = "allow"
	ActionWarn    Action = "warn"
	ActionBlock   Action = "block"
	ActionReport  Action = "report"
	ActionEndCall Action = "end_call"
)

type ContentType string

const (
	ContentMessage ContentType = "message"
	ContentCall    ContentType = "call"
)

// Verdict is the classifier's judgment of one text payload.
type Verdict struct {
	Severity       Severity `json:"severity"`
	Categories     []string `json:"categories"`
	Confidence     float64  `json:"confidence"`
	FlaggedContent string   `json:"flagged_content,omitempty"`
	Action         Action   `json:"action"`
}

// Forwardable reports whether the payload may be relayed and scanned for completion.
func (v Verdict) Forwardable() bool {
	return v.Action == ActionAllow || v.Action == ActionWarn
}

// AuditRecord is what callers persist for every classified payload.
type AuditRecord struct {
	ID             uuid.UUID   `json:"id"`
	SenderID       string      `json:"sender_id"`
	ContentType    ContentType `json:"content_type"`
	Severity       Severity    `json:"severity"`
	Categories     []string    `json:"categories"`
	Action         Action      `json:"action"`
	Confidence     float64     `json:"confidence"`
	FlaggedContent string      `json:"flagged_content,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewAuditRecord stamps a verdict with sender and content type.
func NewAuditRecord(senderID string, ct ContentType, v Verdict, at time.Time) AuditRecord {
	return AuditRecord{
		ID:             uuid.New(),
		SenderID:       senderID,
		ContentType:    ct,
		Severity:       v.Severity,
		Categories:     v.Categories,
		Action:         v.Action,
		Confidence:     v.Confidence,
		FlaggedContent: v.FlaggedContent,
		CreatedAt:      at,
	}
}
