package main

import "net/http"

// getModerationAuditHandler godoc
//
//	@Summary		List moderation audit records
//	@Description	Flagged content verdicts, oldest first. Filter by sender with sender_id.
//	@Tags			ops
//	@Produce		json
//	@Param			sender_id	query		string	false	"Sender user ID"
//	@Success		200			{array}		moderation.AuditRecord
//	@Failure		401			{object}	error	"Unauthorized"
//	@Failure		500			{object}	error	"Internal Server Error"
//	@Security		BasicAuth
//	@Router			/moderation/audit [get]
func (app *application) getModerationAuditHandler(w http.ResponseWriter, r *http.Request) {
	records, err := app.audit.ListBySender(r.Context(), r.URL.Query().Get("sender_id"))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, records)
}
