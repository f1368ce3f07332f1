// Package seed fills a store with fake posts, tags and comments.
package seed

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/repositories"
	"inkwell/app/services"

	"github.com/brianvoe/gofakeit/v6"
)

// Options controls how much content is generated.
type Options struct {
	Posts           int
	Tags            int
	CommentsPerPost int
	// Seed makes the content reproducible; zero picks a random seed.
	Seed int64
}

// Result counts what was stored.
type Result struct {
	Posts    int
	Comments int
}

type Seeder struct {
	posts    *services.PostService
	comments *services.CommentService
	now      func() time.Time
}

func New(store *repositories.Store) *Seeder {
	return &Seeder{
		posts:    services.NewPostService(store),
		comments: services.NewCommentService(store),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the reference time publish dates are drawn back from.
func (s *Seeder) WithClock(now func() time.Time) *Seeder {
	s.now = now
	s.posts = s.posts.WithClock(now)
	return s
}

const maxAttempts = 5

// Run generates opts.Posts posts over the last 90 days, roughly four in
// five of them published, each tagged from a pool of opts.Tags words.
func (s *Seeder) Run(opts Options) (Result, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := gofakeit.New(seed)
	pool := tagPool(f, opts.Tags)
	now := s.now()

	var res Result
	for i := 0; i < opts.Posts; i++ {
		post, err := s.createPost(f, pool, now)
		if err != nil {
			return res, err
		}
		res.Posts++

		for c := f.Number(0, opts.CommentsPerPost); c > 0; c-- {
			_, err := s.comments.Submit(post, forms.CommentData{
				Name:  truncate(f.Name(), 80),
				Email: f.Email(),
				Body:  f.Sentence(f.Number(5, 20)),
			})
			if err != nil {
				return res, fmt.Errorf("seed comment: %w", err)
			}
			res.Comments++
		}
	}
	log.Printf("seeded %d posts and %d comments", res.Posts, res.Comments)
	return res, nil
}

func (s *Seeder) createPost(f *gofakeit.Faker, pool []string, now time.Time) (*models.Post, error) {
	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status := models.StatusPublished
		if f.Number(1, 5) == 1 {
			status = models.StatusDraft
		}
		post, err := s.posts.CreatePost(services.NewPost{
			Title:   title(f),
			Body:    body(f),
			Author:  f.Username(),
			Status:  status,
			Publish: f.DateRange(now.AddDate(0, 0, -90), now),
			Tags:    pick(f, pool, f.Number(1, 3)),
		})
		if errors.Is(err, repositories.ErrDuplicateSlug) {
			last = err
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("seed post: %w", err)
		}
		return post, nil
	}
	return nil, fmt.Errorf("seed post: %w", last)
}

func title(f *gofakeit.Faker) string {
	return truncate(strings.TrimSuffix(f.Sentence(f.Number(3, 7)), "."), 250)
}

func body(f *gofakeit.Faker) string {
	paras := make([]string, f.Number(2, 5))
	for i := range paras {
		paras[i] = f.Paragraph(1, f.Number(3, 6), 12, " ")
	}
	return strings.Join(paras, "\n\n")
}

// tagPool returns n distinct lower-case words.
func tagPool(f *gofakeit.Faker, n int) []string {
	seen := make(map[string]bool, n)
	pool := make([]string, 0, n)
	for tries := 0; len(pool) < n && tries < n*20; tries++ {
		w := strings.ToLower(f.Noun())
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		pool = append(pool, w)
	}
	return pool
}

func pick(f *gofakeit.Faker, pool []string, n int) []string {
	if len(pool) == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pool[f.Number(0, len(pool)-1)])
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
