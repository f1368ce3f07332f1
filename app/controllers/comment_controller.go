package controllers

import (
	"net/http"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/services"
	"inkwell/app/telemetry"
	"inkwell/app/views"
)

// CommentController handles comment submissions on a post detail page.
type CommentController struct {
	posts    *services.PostService
	comments *services.CommentService
	views    *views.Renderer
	metrics  *telemetry.Metrics
}

// NewCommentController creates a new CommentController. metrics may be nil.
func NewCommentController(posts *services.PostService, comments *services.CommentService, renderer *views.Renderer, metrics *telemetry.Metrics) *CommentController {
	return &CommentController{posts: posts, comments: comments, views: renderer, metrics: metrics}
}

// Create validates and stores a comment on the post named by the URL. A
// rejected form re-renders the detail page with its errors and stores
// nothing; an accepted one is echoed back.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	post, err := lookup(cc.posts, r)
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	values, err := input(r)
	if err != nil {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := forms.CommentForm{}.Validate(values)
	if ve, ok := forms.AsValidationErrors(err); ok {
		cc.metrics.CountComment(telemetry.ResultInvalid)
		if wantsJSON(r) {
			sendInvalid(w, ve)
			return
		}
		page, err := detail(cc.posts, post)
		if err != nil {
			sendFailure(w, r, err)
			return
		}
		page.Form = data
		page.Errors = ve
		render(w, r, cc.views, http.StatusOK, views.Detail, page)
		return
	}

	comment, err := cc.comments.Submit(post, data)
	if err != nil {
		cc.metrics.CountComment(telemetry.ResultError)
		sendFailure(w, r, err)
		return
	}
	cc.metrics.CountComment(telemetry.ResultOK)

	if wantsJSON(r) {
		sendJSON(w, http.StatusCreated, toPublic([]*models.Comment{comment})[0])
		return
	}
	page, err := detail(cc.posts, post)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	page.NewComment = comment
	render(w, r, cc.views, http.StatusOK, views.Detail, page)
}
