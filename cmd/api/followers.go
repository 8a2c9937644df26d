package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var errSelfFollow = errors.New("cannot follow yourself")

// FollowUser godoc
//
//	@Summary		Follows a user
//	@Description	Follows a user by ID. Reviews written by followed users are listed first when prioritized.
//	@Tags			users
//	@Param			userID	path		string	true	"User ID"
//	@Success		204		{string}	string	"User followed"
//	@Failure		400		{object}	error	"Cannot follow yourself"
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/follow [put]
func (app *application) followUserHandler(w http.ResponseWriter, r *http.Request) {
	followerID := getUserIDFromContext(r) //this is app user
	followedID := chi.URLParam(r, "userID") //this is user we want to follow
	if followedID == followerID {
		app.badRequestResponse(w, r, errSelfFollow)
		return
	}

	if err := app.followers.Follow(r.Context(), followerID, followedID); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnfollowUser godoc
//
//	@Summary		Unfollow a user
//	@Description	Unfollow a user by ID
//	@Tags			users
//	@Param			userID	path		string	true	"User ID"
//	@Success		204		{string}	string	"User unfollowed"
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/unfollow [put]
func (app *application) unfollowUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.followers.Unfollow(r.Context(), getUserIDFromContext(r), chi.URLParam(r, "userID")); err != nil {
		app.internalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
