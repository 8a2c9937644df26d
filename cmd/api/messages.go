package main

import (
	"context"
	"net/http"

	"gigflow/internal/events"
	"gigflow/internal/metrics"
	"gigflow/internal/moderation"
	"gigflow/internal/sessions"

	"github.com/go-chi/chi/v5"
)

type SendMessagePayload struct {
	ToUserID   string `json:"to_user_id" validate:"ref"`
	GigID      string `json:"gig_id" validate:"ref"`
	ProviderID string `json:"provider_id" validate:"omitempty,max=128"`
	Text       string `json:"text" validate:"max=10000"`
}

type TranscriptPayload struct {
	ToUserID   string `json:"to_user_id" validate:"ref"`
	ProviderID string `json:"provider_id" validate:"omitempty,max=128"`
	Text       string `json:"text" validate:"max=10000"`
}

// ScreenResult is what the sender's client gets back for one payload.
type ScreenResult struct {
	Verdict        moderation.Verdict       `json:"verdict"`
	Delivered      bool                     `json:"delivered"`
	Session        *sessions.ServiceSession `json:"session,omitempty"`
	SessionCreated bool                     `json:"session_created"`
}

// sendMessageHandler godoc
//
//	@Summary		Screen and deliver a chat message
//	@Description	Classifies the message, audits flagged content and scans deliverable messages for a completion phrase.
//	@Tags			messages
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		SendMessagePayload	true	"Message"
//	@Success		200		{object}	ScreenResult		"Delivered (allow or warn)"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		401		{object}	error				"Unauthorized"
//	@Failure		422		{object}	ScreenResult		"Blocked or reported"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/messages [post]
func (app *application) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var payload SendMessagePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	req := sessions.IngestRequest{
		Text:       payload.Text,
		FromUserID: getUserIDFromContext(r),
		ToUserID:   payload.ToUserID,
		GigID:      payload.GigID,
		Source:     sessions.SourceMessage,
		ProviderID: payload.ProviderID,
	}
	app.screen(w, r, moderation.ContentMessage, req)
}

// postTranscriptHandler godoc
//
//	@Summary		Screen a call transcript segment
//	@Description	Classifies a segment of a live call. Severe content ends the call. Deliverable segments are scanned for a completion phrase.
//	@Tags			messages
//	@Accept			json
//	@Produce		json
//	@Param			gigID	path		string				true	"Gig ID"
//	@Param			payload	body		TranscriptPayload	true	"Transcript segment"
//	@Success		200		{object}	ScreenResult		"Allowed"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		422		{object}	ScreenResult		"Blocked, reported or call ended"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/calls/{gigID}/transcripts [post]
func (app *application) postTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	var payload TranscriptPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	req := sessions.IngestRequest{
		Text:       payload.Text,
		FromUserID: getUserIDFromContext(r),
		ToUserID:   payload.ToUserID,
		GigID:      chi.URLParam(r, "gigID"),
		Source:     sessions.SourceVoice,
		ProviderID: payload.ProviderID,
	}
	app.screen(w, r, moderation.ContentCall, req)
}

// screen classifies the payload and only lets forwardable content reach the
// session tracker.
func (app *application) screen(w http.ResponseWriter, r *http.Request, ct moderation.ContentType, req sessions.IngestRequest) {
	ctx := r.Context()

	var v moderation.Verdict
	if ct == moderation.ContentCall {
		v = app.classifier.ClassifyCall(req.Text)
	} else {
		v = app.classifier.Classify(req.Text)
	}
	metrics.ModerationVerdicts.WithLabelValues(v.Severity.String(), string(ct)).Inc()

	if err := app.recordVerdict(ctx, req.FromUserID, ct, v); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	result := ScreenResult{Verdict: v}
	if !v.Forwardable() {
		if err := app.jsonResponse(w, http.StatusUnprocessableEntity, result); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	sess, created, err := app.tracker.IngestText(ctx, req)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	result.Delivered = true
	result.Session = sess
	result.SessionCreated = created

	if err := app.jsonResponse(w, http.StatusOK, result); err != nil {
		app.internalServerError(w, r, err)
	}
}

// recordVerdict audits flagged content and raises content.reported for
// verdicts that need human review.
func (app *application) recordVerdict(ctx context.Context, senderID string, ct moderation.ContentType, v moderation.Verdict) error {
	if v.Severity == moderation.Safe {
		return nil
	}
	rec := moderation.NewAuditRecord(senderID, ct, v, app.now())
	if err := app.audit.Record(ctx, rec); err != nil {
		return err
	}

	app.logger.Infow("content flagged",
		"audit_id", rec.ID, "sender_id", senderID, "content_type", ct, "severity", v.Severity, "action", v.Action)

	if v.Action == moderation.ActionReport || v.Action == moderation.ActionEndCall {
		app.events.Publish(ctx, events.Event{Topic: events.TopicContentReported, UserID: senderID, Payload: rec})
	}
	return nil
}
