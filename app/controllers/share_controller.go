package controllers

import (
	"log"
	"net/http"

	"inkwell/app/forms"
	"inkwell/app/services"
	"inkwell/app/syndication"
	"inkwell/app/telemetry"
	"inkwell/app/views"
)

// ShareController handles "email this post to a friend".
type ShareController struct {
	posts   *services.PostService
	shares  *services.ShareService
	baseURL string
	views   *views.Renderer
	metrics *telemetry.Metrics
}

// NewShareController creates a new ShareController. baseURL prefixes the
// post link in the message; metrics may be nil.
func NewShareController(posts *services.PostService, shares *services.ShareService, baseURL string, renderer *views.Renderer, metrics *telemetry.Metrics) *ShareController {
	return &ShareController{posts: posts, shares: shares, baseURL: baseURL, views: renderer, metrics: metrics}
}

// Show renders the empty share form.
func (sc *ShareController) Show(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "post_id")
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	post, err := sc.posts.GetPublishedByID(id)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"post": postSummary{Post: post, URL: post.AbsoluteURL()},
			"sent": false,
		})
		return
	}
	sc.render(w, r, http.StatusOK, views.SharePage{Post: post})
}

// Send validates the form and mails the recommendation. Sent is reported
// only when the transport accepted the message; a transport failure is a 502.
func (sc *ShareController) Send(w http.ResponseWriter, r *http.Request) {
	id, err := intVar(r, "post_id")
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	post, err := sc.posts.GetPublishedByID(id)
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	values, err := input(r)
	if err != nil {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := forms.ShareForm{}.Validate(values)
	if ve, ok := forms.AsValidationErrors(err); ok {
		sc.metrics.CountShare(telemetry.ResultInvalid)
		if wantsJSON(r) {
			sendInvalid(w, ve)
			return
		}
		sc.render(w, r, http.StatusOK, views.SharePage{Post: post, Form: data, Errors: ve})
		return
	}

	postURL := syndication.AbsoluteURL(sc.baseURL, post.AbsoluteURL())
	if err := sc.shares.Share(r.Context(), post, data, postURL); err != nil {
		log.Printf("share: %v", err)
		sc.metrics.CountShare(telemetry.ResultError)
		const failure = "The e-mail could not be sent. Please try again later."
		if wantsJSON(r) {
			sendJSON(w, http.StatusBadGateway, map[string]interface{}{"sent": false, "error": failure})
			return
		}
		sc.render(w, r, http.StatusBadGateway, views.SharePage{Post: post, Form: data, Failure: failure})
		return
	}
	sc.metrics.CountShare(telemetry.ResultOK)

	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, map[string]interface{}{"sent": true, "to": data.To})
		return
	}
	sc.render(w, r, http.StatusOK, views.SharePage{Post: post, Form: data, Sent: true})
}

func (sc *ShareController) render(w http.ResponseWriter, r *http.Request, status int, page views.SharePage) {
	page.Title = "Share " + page.Post.Title
	page.Sidebar = sidebar(sc.posts)
	render(w, r, sc.views, status, views.Share, page)
}
