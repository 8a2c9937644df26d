package main

import (
	"encoding/json"
	"net/http"
)

// SavePushTokenRequest represents the payload for saving/updating a push token
type SavePushTokenRequest struct {
	Token      string          `json:"token" validate:"required"`
	DeviceInfo json.RawMessage `json:"device_info"`
}

// RemovePushTokenRequest represents the payload for removing a push token
type RemovePushTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// SavePushToken godoc
//
//	@Summary		Save or update a push notification token
//	@Description	Stores or updates a user's Expo push token along with optional device info. Review prompts are pushed to every registered device.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	SavePushTokenRequest	true	"Push token data"
//	@Success		204
//	@Failure		400	{object}	error	"Bad Request"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/users/push-tokens [post]
func (app *application) savePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload SavePushTokenRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.pushTokens.AddOrUpdatePushToken(r.Context(), getUserIDFromContext(r), payload.Token, payload.DeviceInfo); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemovePushToken godoc
//
//	@Summary		Remove a push notification token
//	@Description	Deletes a specific push token for the current user
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	RemovePushTokenRequest	true	"Token to remove"
//	@Success		204
//	@Failure		400	{object}	error	"Bad Request"
//	@Failure		401	{object}	error	"Unauthorized"
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/users/push-tokens [delete]
func (app *application) removePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RemovePushTokenRequest
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.pushTokens.RemovePushToken(r.Context(), getUserIDFromContext(r), payload.Token); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
