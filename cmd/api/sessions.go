package main

import (
	"context"
	"net/http"

	"gigflow/internal/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (app *application) sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

// getPendingSessionsHandler godoc
//
//	@Summary		List pending sessions
//	@Description	Sessions awaiting review where the current user is the customer or the provider.
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{array}		sessions.ServiceSession
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/sessions/pending [get]
func (app *application) getPendingSessionsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.tracker.PendingForUser(r.Context(), getUserIDFromContext(r))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, list)
}

// getSessionHandler godoc
//
//	@Summary		Get a session
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	sessions.ServiceSession
//	@Failure		400			{object}	error	"Invalid session ID"
//	@Failure		404			{object}	error	"Session not found"
//	@Security		ApiKeyAuth
//	@Router			/sessions/{sessionID} [get]
func (app *application) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.sessionIDParam(w, r)
	if !ok {
		return
	}

	s, err := app.tracker.Get(r.Context(), id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	if !s.Involves(getUserIDFromContext(r)) {
		app.notFoundResponse(w, r, sessions.ErrNotFound)
		return
	}
	app.jsonResponse(w, http.StatusOK, s)
}

// markPromptedHandler godoc
//
//	@Summary		Mark the review prompt as shown
//	@Description	Records that the current user has seen the rating dialog. Unknown sessions are ignored.
//	@Tags			sessions
//	@Param			sessionID	path	string	true	"Session ID"
//	@Success		204
//	@Failure		400	{object}	error	"Invalid session ID"
//	@Security		ApiKeyAuth
//	@Router			/sessions/{sessionID}/prompted [post]
func (app *application) markPromptedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := app.sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := app.tracker.MarkPrompted(r.Context(), id, getUserIDFromContext(r)); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// completeSessionHandler godoc
//
//	@Summary		Complete a session
//	@Description	Moves a review_prompted session to completed.
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	sessions.ServiceSession
//	@Failure		404			{object}	error	"Session not found"
//	@Failure		409			{object}	error	"Invalid transition"
//	@Security		ApiKeyAuth
//	@Router			/sessions/{sessionID}/complete [post]
func (app *application) completeSessionHandler(w http.ResponseWriter, r *http.Request) {
	app.transitionSession(w, r, app.tracker.Complete)
}

// cancelSessionHandler godoc
//
//	@Summary		Cancel a session
//	@Description	Moves a pending_review session to cancelled.
//	@Tags			sessions
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session ID"
//	@Success		200			{object}	sessions.ServiceSession
//	@Failure		404			{object}	error	"Session not found"
//	@Failure		409			{object}	error	"Invalid transition"
//	@Security		ApiKeyAuth
//	@Router			/sessions/{sessionID}/cancel [post]
func (app *application) cancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	app.transitionSession(w, r, app.tracker.Cancel)
}

func (app *application) transitionSession(
	w http.ResponseWriter,
	r *http.Request,
	move func(ctx context.Context, id uuid.UUID) (*sessions.ServiceSession, error),
) {
	id, ok := app.sessionIDParam(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	current, err := app.tracker.Get(ctx, id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	if !current.Involves(getUserIDFromContext(r)) {
		app.notFoundResponse(w, r, sessions.ErrNotFound)
		return
	}

	s, err := move(ctx, id)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, s)
}

// getPromptsHandler godoc
//
//	@Summary		List review prompts
//	@Description	Sessions in review_prompted involving the current user. Clients poll this to show the rating dialog.
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{array}		sessions.ServiceSession
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/prompts [get]
func (app *application) getPromptsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.scheduler.PendingPromptsForUser(r.Context(), getUserIDFromContext(r))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, list)
}
