package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"inkwell/app/mail"
	"inkwell/app/models"
	"inkwell/app/repositories/mock"
	"inkwell/app/services"
	"inkwell/app/telemetry"
	"inkwell/app/views"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

const baseURL = "http://blog.test"

type stubTransport struct {
	sent []mail.Message
	err  error
}

func (s *stubTransport) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type harness struct {
	router    *mux.Router
	posts     *services.PostService
	postRepo  *mock.PostRepository
	comments  *mock.CommentRepository
	transport *stubTransport
	metrics   *telemetry.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, postRepo, commentRepo, _ := mock.NewStore()
	posts := services.NewPostService(store).WithClock(func() time.Time { return testNow })
	comments := services.NewCommentService(store)
	transport := &stubTransport{}
	shares := services.NewShareService(transport, "admin@myblog.com")
	renderer := views.MustLoad()
	metrics := telemetry.NewMetrics()

	pc := NewPostController(posts, renderer)
	cc := NewCommentController(posts, comments, renderer, metrics)
	sc := NewShareController(posts, shares, baseURL, renderer, metrics)
	syn := NewSyndicationController(posts, baseURL)

	r := mux.NewRouter()
	r.HandleFunc("/", pc.List).Methods(http.MethodGet)
	r.HandleFunc("/tag/{tag_slug}/", pc.List).Methods(http.MethodGet)
	r.HandleFunc("/{year:[0-9]+}/{month:[0-9]+}/{day:[0-9]+}/{slug}/", pc.Detail).Methods(http.MethodGet)
	r.HandleFunc("/{year:[0-9]+}/{month:[0-9]+}/{day:[0-9]+}/{slug}/", cc.Create).Methods(http.MethodPost)
	r.HandleFunc("/{post_id:[0-9]+}/share/", sc.Show).Methods(http.MethodGet)
	r.HandleFunc("/{post_id:[0-9]+}/share/", sc.Send).Methods(http.MethodPost)
	r.HandleFunc("/search/", pc.Search).Methods(http.MethodGet)
	r.HandleFunc("/feed/", syn.Feed).Methods(http.MethodGet)
	r.HandleFunc("/sitemap.xml", syn.Sitemap).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{year:[0-9]+}/{month:[0-9]+}/{day:[0-9]+}/{slug}/comments", cc.Create).Methods(http.MethodPost)

	return &harness{router: r, posts: posts, postRepo: postRepo, comments: commentRepo, transport: transport, metrics: metrics}
}

func (h *harness) add(t *testing.T, title string, age time.Duration, tags ...string) *models.Post {
	t.Helper()
	p, err := h.posts.CreatePost(services.NewPost{
		Title:   title,
		Body:    "Body of " + title,
		Author:  "admin",
		Status:  models.StatusPublished,
		Publish: testNow.Add(-age),
		Tags:    tags,
	})
	require.NoError(t, err)
	return p
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, wantsJSON(req))
	req.Header.Set("Accept", "application/json, text/plain")
	assert.True(t, wantsJSON(req))
	assert.True(t, wantsJSON(httptest.NewRequest(http.MethodGet, "/api/posts", nil)))
	assert.False(t, wantsJSON(httptest.NewRequest(http.MethodGet, "/apiary", nil)))
}

func TestInputJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada","post":99,"nested":{"a":1},"none":null}`))
	req.Header.Set("Content-Type", "application/json")
	values, err := input(req)
	require.NoError(t, err)
	assert.Equal(t, "Ada", values.Get("name"))
	assert.Equal(t, "99", values.Get("post"))
	assert.NotContains(t, values, "nested")
	assert.NotContains(t, values, "none")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	_, err = input(req)
	assert.Error(t, err)
}

func TestListHTML(t *testing.T) {
	h := newHarness(t)
	for _, title := range []string{"First", "Second", "Third", "Fourth"} {
		h.add(t, title, time.Hour)
	}

	rr := h.do(httptest.NewRequest(http.MethodGet, "/?page=abc", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Page 1 of 2.")

	rr = h.do(httptest.NewRequest(http.MethodGet, "/?page=9999", nil))
	assert.Contains(t, rr.Body.String(), "Page 2 of 2.")
}

func TestListJSON(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Go post", time.Hour, "go")
	h.add(t, "Web post", 2*time.Hour, "web")

	req := httptest.NewRequest(http.MethodGet, "/tag/go/", nil)
	req.Header.Set("Accept", "application/json")
	rr := h.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Tag  models.Tag `json:"tag"`
		Page struct {
			Items []struct {
				Title string `json:"title"`
				URL   string `json:"url"`
			} `json:"items"`
			Number int `json:"number"`
		} `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "go", body.Tag.Slug)
	require.Len(t, body.Page.Items, 1)
	assert.Equal(t, "Go post", body.Page.Items[0].Title)
	assert.Equal(t, "/2024/3/10/go-post/", body.Page.Items[0].URL)
}

func TestListUnknownTag(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/tag/nope/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.postRepo.Fail = true
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	rr := h.do(req)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rr.Body.String())
}

func TestDetail(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Hello World", 72*time.Hour, "go")
	h.add(t, "Related", 24*time.Hour, "go")

	rr := h.do(httptest.NewRequest(http.MethodGet, "/2024/3/7/hello-world/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<h1>Hello World</h1>")
	assert.Contains(t, body, "Related")
	assert.Contains(t, body, "Add a new comment")

	rr = h.do(httptest.NewRequest(http.MethodGet, "/2024/3/8/hello-world/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCommentRejected(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Hello World", 72*time.Hour)

	rr := h.do(postForm("/2024/3/7/hello-world/", url.Values{"name": {"Ada"}, "body": {"Hi"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "This field is required.")
	assert.Contains(t, rr.Body.String(), `value="Ada"`)

	counts, err := h.comments.CountActive()
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Comments.WithLabelValues(telemetry.ResultInvalid)))
}

func TestCommentAccepted(t *testing.T) {
	h := newHarness(t)
	post := h.add(t, "Hello World", 72*time.Hour)
	other := h.add(t, "Other", 24*time.Hour)

	rr := h.do(postForm("/2024/3/7/hello-world/", url.Values{
		"name":  {"Ada"},
		"email": {"ada@example.com"},
		"body":  {"Great post"},
		"post":  {"999"},
	}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Your comment has been added.")
	assert.Contains(t, rr.Body.String(), "Great post")

	comments, err := h.comments.ListByPost(post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].Active)
	assert.Equal(t, post.ID, comments[0].PostID)

	others, err := h.comments.ListByPost(other.ID)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestCommentJSON(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Hello World", 72*time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/2024/3/7/hello-world/comments",
		strings.NewReader(`{"name":"Ada","email":"not-an-email","body":"Hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := h.do(req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"email":["Enter a valid email address."]}}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/posts/2024/3/7/hello-world/comments",
		strings.NewReader(`{"name":"Ada","email":"ada@example.com","body":"Hi","post":42}`))
	req.Header.Set("Content-Type", "application/json")
	rr = h.do(req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ada@example.com")

	var created publicComment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Ada", created.Name)
	assert.NotZero(t, created.ID)
}

func TestShare(t *testing.T) {
	h := newHarness(t)
	post := h.add(t, "Hello World", 72*time.Hour)
	path := "/" + strconv.Itoa(post.ID) + "/share/"

	rr := h.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `Share "Hello World" by e-mail`)

	rr = h.do(postForm(path, url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "to": {"bad"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Enter a valid email address.")
	assert.Empty(t, h.transport.sent)

	rr = h.do(postForm(path, url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "to": {"bob@example.com"}, "comments": {"Read it"}}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "E-mail successfully sent")
	require.Len(t, h.transport.sent, 1)
	assert.Equal(t, "Read Hello World at "+baseURL+"/2024/3/7/hello-world/\n\nAda's comments: Read it", h.transport.sent[0].Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Shares.WithLabelValues(telemetry.ResultOK)))
}

func TestShareTransportFailure(t *testing.T) {
	h := newHarness(t)
	post := h.add(t, "Hello World", 72*time.Hour)
	h.transport.err = errors.New("smtp down")

	req := postForm("/"+strconv.Itoa(post.ID)+"/share/", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "to": {"bob@example.com"}})
	req.Header.Set("Accept", "application/json")
	rr := h.do(req)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["sent"])
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Shares.WithLabelValues(telemetry.ResultError)))
}

func TestShareUnknownPost(t *testing.T) {
	h := newHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/404/share/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.add(t, "Gophers", time.Hour)
	h.add(t, "Pythons", 2*time.Hour)

	rr := h.do(httptest.NewRequest(http.MethodGet, "/search/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Search for posts")

	rr = h.do(httptest.NewRequest(http.MethodGet, "/search/?query=gophers", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Found 1 result")

	req := httptest.NewRequest(http.MethodGet, "/search/?query=+", nil)
	req.Header.Set("Accept", "application/json")
	rr = h.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"query":"","results":[]}`, rr.Body.String())
}

func TestFeedAndSitemap(t *testing.T) {
	h := newHarness(t)
	for _, title := range []string{"A", "B", "C", "D", "E", "F"} {
		h.add(t, "Post "+title, time.Hour)
	}

	rr := h.do(httptest.NewRequest(http.MethodGet, "/feed/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/rss+xml")
	assert.Equal(t, 5, strings.Count(rr.Body.String(), "<item>"))

	rr = h.do(httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/xml")
	assert.Equal(t, 6, strings.Count(rr.Body.String(), "<url>"))
	assert.Contains(t, rr.Body.String(), "<changefreq>weekly</changefreq>")
}
