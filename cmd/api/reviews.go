package main

import (
	"errors"
	"net/http"
	"strconv"

	"gigflow/internal/params"
	"gigflow/internal/reviews"

	"github.com/go-chi/chi/v5"
)

type SubmitReviewPayload struct {
	GigID        string       `json:"gig_id"`
	RevieweeID   string       `json:"reviewee_id"`
	RevieweeRole reviews.Role `json:"reviewee_role"`
	Rating       int          `json:"rating"`
	Comment      string       `json:"comment"`
}

type ReviewPage struct {
	Reviews    []reviews.AppReview `json:"reviews"`
	Pagination params.Pagination   `json:"pagination"`
}

type RatingSummary struct {
	UserID string       `json:"user_id"`
	Role   reviews.Role `json:"role"`
	reviews.Stats
}

var errInvalidRole = errors.New("role must be provider or customer")

// submitReviewHandler godoc
//
//	@Summary		Submit a review
//	@Description	Rates the other participant of a gig. Ratings outside 1-5 are rejected.
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			review	body		SubmitReviewPayload	true	"Review payload"
//	@Success		201		{object}	reviews.AppReview
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		401		{object}	error	"Unauthorized"
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/reviews [post]
func (app *application) submitReviewHandler(w http.ResponseWriter, r *http.Request) {
	var payload SubmitReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	review, err := app.reviews.Submit(r.Context(), reviews.SubmitRequest{
		GigID:        payload.GigID,
		ReviewerID:   getUserIDFromContext(r),
		RevieweeID:   payload.RevieweeID,
		RevieweeRole: payload.RevieweeRole,
		Rating:       payload.Rating,
		Comment:      payload.Comment,
	})
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getGigReviewsHandler godoc
//
//	@Summary		List reviews for a gig
//	@Tags			reviews
//	@Produce		json
//	@Param			gigID	path		string	true	"Gig ID"
//	@Success		200		{array}		reviews.AppReview
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/gigs/{gigID}/reviews [get]
func (app *application) getGigReviewsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := app.reviews.ReviewsForGig(r.Context(), chi.URLParam(r, "gigID"))
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, list)
}

// getUserReviewsHandler godoc
//
//	@Summary		List reviews of a user
//	@Description	Reviews received by a user, optionally in one role. With prioritized=true, reviews from people the caller follows come first.
//	@Tags			reviews
//	@Produce		json
//	@Param			userID		path		string	true	"User ID"
//	@Param			role		query		string	false	"provider or customer"
//	@Param			prioritized	query		bool	false	"Order by the caller's connections"
//	@Param			page		query		int		false	"Page number"
//	@Param			limit		query		int		false	"Items per page"
//	@Success		200			{object}	ReviewPage
//	@Failure		400			{object}	error	"Bad Request"
//	@Failure		500			{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/reviews [get]
func (app *application) getUserReviewsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	var role *reviews.Role
	if raw := q.Get("role"); raw != "" {
		if err := Validate.Var(raw, "reviewrole"); err != nil {
			app.badRequestResponse(w, r, errInvalidRole)
			return
		}
		rl := reviews.Role(raw)
		role = &rl
	}

	prioritized := false
	if raw := q.Get("prioritized"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		prioritized = v
	}

	list, err := app.reviews.ReviewsForReviewee(ctx, chi.URLParam(r, "userID"), role)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if prioritized {
		connections, err := app.followers.Following(ctx, getUserIDFromContext(r))
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		list = reviews.Prioritize(list, connections)
	}

	p := params.ParsePagination(q)
	p.ComputeMeta(len(list))

	app.jsonResponse(w, http.StatusOK, ReviewPage{Reviews: params.Window(list, p), Pagination: p})
}

// getUserRatingHandler godoc
//
//	@Summary		Get a user's rating
//	@Description	Average rating and review count for a user in one role. The average is 0 when there are no reviews.
//	@Tags			reviews
//	@Produce		json
//	@Param			userID	path		string	true	"User ID"
//	@Param			role	query		string	true	"provider or customer"
//	@Success		200		{object}	RatingSummary
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/users/{userID}/rating [get]
func (app *application) getUserRatingHandler(w http.ResponseWriter, r *http.Request) {
	role := reviews.Role(r.URL.Query().Get("role"))
	if err := Validate.Var(string(role), "reviewrole"); err != nil {
		app.badRequestResponse(w, r, errInvalidRole)
		return
	}

	userID := chi.URLParam(r, "userID")
	st, err := app.reviews.Summary(r.Context(), userID, role)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, RatingSummary{UserID: userID, Role: role, Stats: st})
}
