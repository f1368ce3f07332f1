// Package routes wires the controllers, middleware and operational
// endpoints into one router and builds the HTTP server around it.
package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"inkwell/app/controllers"
	"inkwell/app/mail"
	"inkwell/app/middleware"
	"inkwell/app/ratelimit"
	"inkwell/app/repositories"
	"inkwell/app/services"
	"inkwell/app/telemetry"
	"inkwell/app/views"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Store     *repositories.Store
	Transport mail.Transport
	Renderer  *views.Renderer
	Metrics   *telemetry.Metrics
	BaseURL   string
	MailFrom  string

	// Limiter throttles comment and share submissions when set.
	Limiter    *ratelimit.Limiter
	RateLimit  int64
	RateWindow time.Duration
	// TrustProxy keys clients by X-Forwarded-For instead of the peer address.
	TrustProxy bool

	// Clock overrides the publication clock, for tests.
	Clock func() time.Time
}

const (
	datePath  = "/{year:[0-9]+}/{month:[0-9]+}/{day:[0-9]+}/{slug}"
	sharePath = "/{post_id:[0-9]+}/share"
)

// NewRouter builds the HTML and JSON routes.
func NewRouter(d Deps) *mux.Router {
	posts := services.NewPostService(d.Store)
	if d.Clock != nil {
		posts = posts.WithClock(d.Clock)
	}
	comments := services.NewCommentService(d.Store)
	shares := services.NewShareService(d.Transport, d.MailFrom)

	pc := controllers.NewPostController(posts, d.Renderer)
	cc := controllers.NewCommentController(posts, comments, d.Renderer, d.Metrics)
	sc := controllers.NewShareController(posts, shares, d.BaseURL, d.Renderer, d.Metrics)
	syn := controllers.NewSyndicationController(posts, d.BaseURL)

	limit := func(route string, count func(string), h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.LimitHTTP(ratelimit.Rule{
			Route:    route,
			Limit:    d.RateLimit,
			Window:   d.RateWindow,
			Key:      ratelimit.ClientIP(d.TrustProxy),
			Rejected: func() { count(telemetry.ResultRejected) },
		}, h)
	}
	createComment := limit("comment", d.Metrics.CountComment, cc.Create)
	sendShare := limit("share", d.Metrics.CountShare, sc.Send)

	router := mux.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	if d.Metrics != nil {
		router.Use(middleware.Metrics(d.Metrics))
		router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/healthz", health).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(notFound)

	// API routes with JSON content type
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.ContentTypeJSON)
	api.HandleFunc("/posts", pc.List).Methods(http.MethodGet)
	api.HandleFunc("/tag/{tag_slug}/", pc.List).Methods(http.MethodGet)
	api.HandleFunc("/posts"+datePath+"/", pc.Detail).Methods(http.MethodGet)
	api.Handle("/posts"+datePath+"/comments", createComment).Methods(http.MethodPost)
	api.HandleFunc("/posts"+sharePath, sc.Show).Methods(http.MethodGet)
	api.Handle("/posts"+sharePath, sendShare).Methods(http.MethodPost)
	api.HandleFunc("/search", pc.Search).Methods(http.MethodGet)

	// Web routes
	router.HandleFunc("/", pc.List).Methods(http.MethodGet)
	router.HandleFunc("/tag/{tag_slug}/", pc.List).Methods(http.MethodGet)
	router.HandleFunc("/search/", pc.Search).Methods(http.MethodGet)
	router.HandleFunc("/feed/", syn.Feed).Methods(http.MethodGet)
	router.HandleFunc("/sitemap.xml", syn.Sitemap).Methods(http.MethodGet)
	router.HandleFunc(datePath+"/", pc.Detail).Methods(http.MethodGet)
	router.Handle(datePath+"/", createComment).Methods(http.MethodPost)
	router.HandleFunc(sharePath+"/", sc.Show).Methods(http.MethodGet)
	router.Handle(sharePath+"/", sendShare).Methods(http.MethodPost)

	return router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not Found"})
		return
	}
	http.NotFound(w, r)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// NewServer wraps handler in request tracing and sets conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, "inkwell"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
