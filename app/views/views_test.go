package views

import (
	"bytes"
	"testing"
	"time"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/query"
	"inkwell/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePost() *models.Post {
	return &models.Post{
		ID:      7,
		Title:   "Hello World",
		Slug:    "hello-world",
		Body:    "Some **bold** text\n\n<script>alert(1)</script>",
		Author:  "admin",
		Publish: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC),
		Status:  models.StatusPublished,
		Tags:    []*models.Tag{{ID: 1, Name: "Go", Slug: "go"}},
	}
}

func render(t *testing.T, page string, data interface{}) string {
	t.Helper()
	r, err := Load()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page, data))
	return buf.String()
}

func TestRenderList(t *testing.T) {
	p := samplePost()
	out := render(t, List, ListPage{
		Base: Base{Sidebar: &services.Sidebar{
			TotalPosts:    1,
			Latest:        []*models.Post{p},
			MostCommented: []query.Commented{{Post: p, Count: 2}},
		}},
		Tag:  p.Tags[0],
		Page: query.Paginate([]*models.Post{p}, query.PostsPerPage, "1"),
	})

	assert.Contains(t, out, `Posts tagged with "Go"`)
	assert.Contains(t, out, `<a href="/2024/3/7/hello-world/">Hello World</a>`)
	assert.Contains(t, out, `<a href="/tag/go/">Go</a>`)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Page 1 of 1.")
	assert.Contains(t, out, "written 1 posts")
	assert.Contains(t, out, "(2)")
}

func TestRenderListEmpty(t *testing.T) {
	out := render(t, List, ListPage{Page: query.Paginate([]*models.Post(nil), query.PostsPerPage, "")})
	assert.Contains(t, out, "There are no posts yet.")
	assert.NotContains(t, out, "Next")
}

func TestRenderDetail(t *testing.T) {
	p := samplePost()
	c := &models.Comment{ID: 1, PostID: 7, Name: "Ada", Body: "line one\nline <two>", Active: true}

	t.Run("with errors", func(t *testing.T) {
		out := render(t, Detail, DetailPage{
			Base:     Base{Title: p.Title},
			Post:     p,
			Comments: []*models.Comment{c},
			Form:     forms.CommentData{Name: "Bob"},
			Errors:   forms.ValidationErrors{"email": {"This field is required."}},
		})
		assert.Contains(t, out, "<title>Hello World | My blog</title>")
		assert.Contains(t, out, "1 comment</h2>")
		assert.Contains(t, out, "Comment 1 by Ada")
		assert.Contains(t, out, "line one<br>line &lt;two&gt;")
		assert.Contains(t, out, `value="Bob"`)
		assert.Contains(t, out, "This field is required.")
		assert.Contains(t, out, "There are no similar posts yet.")
		assert.Contains(t, out, `href="/7/share/"`)
	})

	t.Run("new comment", func(t *testing.T) {
		out := render(t, Detail, DetailPage{Post: p, Comments: []*models.Comment{c}, NewComment: c})
		assert.Contains(t, out, "Your comment has been added.")
		assert.NotContains(t, out, "<form")
	})
}

func TestRenderShare(t *testing.T) {
	p := samplePost()
	out := render(t, Share, SharePage{Post: p, Sent: true, Form: forms.ShareData{To: "bob@example.com"}})
	assert.Contains(t, out, "E-mail successfully sent")
	assert.Contains(t, out, "bob@example.com")

	out = render(t, Share, SharePage{Post: p, Failure: "The e-mail could not be sent."})
	assert.Contains(t, out, "The e-mail could not be sent.")
	assert.Contains(t, out, `name="to"`)
}

func TestRenderSearch(t *testing.T) {
	out := render(t, Search, SearchPage{Query: "hello", Searched: true, Results: []*models.Post{samplePost()}})
	assert.Contains(t, out, "Found 1 result</h3>")

	out = render(t, Search, SearchPage{Searched: true, Query: "zzz"})
	assert.Contains(t, out, "There are no results for your query.")

	out = render(t, Search, SearchPage{})
	assert.Contains(t, out, `name="query"`)
}

func TestRenderUnknownPage(t *testing.T) {
	r := MustLoad()
	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, "posts/missing", nil))
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	html := string(Markdown("# Title\n\n<b>raw</b>"))
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.NotContains(t, html, "<b>raw</b>")
}
