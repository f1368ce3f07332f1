package seed

import (
	"testing"
	"time"

	"inkwell/app/repositories"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRun(t *testing.T) {
	store, err := repositories.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	res, err := New(store).WithClock(func() time.Time { return testNow }).Run(Options{
		Posts:           12,
		Tags:            4,
		CommentsPerPost: 3,
		Seed:            42,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Posts)

	posts, err := store.Posts.List()
	require.NoError(t, err)
	assert.Len(t, posts, 12)
	for _, p := range posts {
		assert.NotEmpty(t, p.Slug)
		assert.NotEmpty(t, p.Tags)
		assert.False(t, p.Publish.After(testNow))
		assert.False(t, p.Publish.Before(testNow.AddDate(0, 0, -90)))
	}

	tags, err := store.Tags.List()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tags), 4)

	counts, err := store.Comments.CountActive()
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, res.Comments, total)
}

func TestTagPool(t *testing.T) {
	f := gofakeit.New(7)
	pool := tagPool(f, 6)
	assert.Len(t, pool, 6)
	seen := map[string]bool{}
	for _, w := range pool {
		assert.False(t, seen[w], w)
		seen[w] = true
	}
	assert.Empty(t, tagPool(f, 0))
	assert.Nil(t, pick(f, nil, 3))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "hé", truncate("héllo", 2))
}
