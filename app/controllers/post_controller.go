package controllers

import (
	"net/http"
	"time"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/query"
	"inkwell/app/services"
	"inkwell/app/views"

	"github.com/gorilla/mux"
)

// PostController serves the post list, tag pages, post details and search.
type PostController struct {
	posts *services.PostService
	views *views.Renderer
}

// NewPostController creates a new PostController
func NewPostController(posts *services.PostService, renderer *views.Renderer) *PostController {
	return &PostController{posts: posts, views: renderer}
}

// publicComment is a comment as shown to readers: the email stays private.
type publicComment struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func toPublic(comments []*models.Comment) []publicComment {
	out := make([]publicComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, publicComment{
			ID:        c.ID,
			Name:      c.Name,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

// postSummary is the JSON shape of a post. Comments shadows the embedded
// field so comment emails never reach the listing.
type postSummary struct {
	*models.Post
	URL      string `json:"url"`
	Comments []int  `json:"comments,omitempty"`
}

func summarize(posts []*models.Post) []postSummary {
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, postSummary{Post: p, URL: p.AbsoluteURL()})
	}
	return out
}

// List handles the post list and, with a tag_slug route variable, the tag page.
func (pc *PostController) List(w http.ResponseWriter, r *http.Request) {
	listing, err := pc.posts.List(mux.Vars(r)["tag_slug"], r.URL.Query().Get("page"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	if wantsJSON(r) {
		page := query.Page[postSummary]{
			Items:          summarize(listing.Page.Items),
			Number:         listing.Page.Number,
			NumPages:       listing.Page.NumPages,
			Count:          listing.Page.Count,
			HasNext:        listing.Page.HasNext,
			HasPrevious:    listing.Page.HasPrevious,
			NextNumber:     listing.Page.NextNumber,
			PreviousNumber: listing.Page.PreviousNumber,
		}
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"tag":  listing.Tag,
			"page": page,
		})
		return
	}

	title := ""
	if listing.Tag != nil {
		title = "Posts tagged with " + listing.Tag.Name
	}
	render(w, r, pc.views, http.StatusOK, views.List, views.ListPage{
		Base: views.Base{Title: title, Sidebar: sidebar(pc.posts)},
		Tag:  listing.Tag,
		Page: listing.Page,
	})
}

// lookup resolves the post named by the year/month/day/slug route variables.
func lookup(posts *services.PostService, r *http.Request) (*models.Post, error) {
	vars := mux.Vars(r)
	year, err := intVar(r, "year")
	if err != nil {
		return nil, err
	}
	month, err := intVar(r, "month")
	if err != nil {
		return nil, err
	}
	day, err := intVar(r, "day")
	if err != nil {
		return nil, err
	}
	return posts.GetPublished(year, month, day, vars["slug"])
}

// detail builds the detail page model for post.
func detail(posts *services.PostService, post *models.Post) (views.DetailPage, error) {
	similar, err := posts.Similar(post)
	if err != nil {
		return views.DetailPage{}, err
	}
	return views.DetailPage{
		Base:     views.Base{Title: post.Title, Sidebar: sidebar(posts)},
		Post:     post,
		Comments: post.ActiveComments(),
		Similar:  similar,
	}, nil
}

// Detail shows a single published post with its active comments, similar
// posts and an empty comment form.
func (pc *PostController) Detail(w http.ResponseWriter, r *http.Request) {
	post, err := lookup(pc.posts, r)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	page, err := detail(pc.posts, post)
	if err != nil {
		sendFailure(w, r, err)
		return
	}

	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"post":     postSummary{Post: post, URL: post.AbsoluteURL()},
			"comments": toPublic(page.Comments),
			"similar":  summarize(page.Similar),
		})
		return
	}
	render(w, r, pc.views, http.StatusOK, views.Detail, page)
}

// Search handles the search form. Without a query parameter it shows the
// empty form; a blank query is a field error.
func (pc *PostController) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := views.SearchPage{Base: views.Base{Title: "Search"}}

	if _, asked := params["query"]; asked {
		q, err := forms.SearchForm{}.Validate(params)
		page.Query = q
		if ve, ok := forms.AsValidationErrors(err); ok {
			page.Errors = ve
		} else {
			results, err := pc.posts.Search(q)
			if err != nil {
				sendFailure(w, r, err)
				return
			}
			page.Searched = true
			page.Results = results
		}
	}

	if wantsJSON(r) {
		sendJSON(w, http.StatusOK, map[string]interface{}{
			"query":   page.Query,
			"results": summarize(page.Results),
		})
		return
	}
	page.Sidebar = sidebar(pc.posts)
	render(w, r, pc.views, http.StatusOK, views.Search, page)
}
