package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/app/forms"
	"inkwell/app/mail"
	"inkwell/app/models"
	"inkwell/app/repositories/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentData(name string) forms.CommentData {
	return forms.CommentData{Name: name, Email: strings.ToLower(name) + "@example.com", Body: "Nice post"}
}

func TestCommentServiceSubmit(t *testing.T) {
	f := newFixture(t)
	post := f.add(t, "Target", time.Hour, models.StatusPublished)
	other := f.add(t, "Other", time.Hour, models.StatusPublished)
	svc := NewCommentService(f.store)

	comment, err := svc.Submit(post, commentData("Ada"))
	require.NoError(t, err)
	assert.True(t, comment.Active)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Same(t, post, comment.Post)
	assert.Contains(t, post.Comments, comment, "the new comment is echoed on the post")

	stored, err := f.comments.ListByPost(post.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ada@example.com", stored[0].Email)

	none, err := f.comments.ListByPost(other.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommentServiceSubmitRejects(t *testing.T) {
	f := newFixture(t)
	post := f.add(t, "Target", time.Hour, models.StatusPublished)
	svc := NewCommentService(f.store)

	t.Run("nil post", func(t *testing.T) {
		_, err := svc.Submit(nil, commentData("Ada"))
		assert.Error(t, err)
	})

	t.Run("invalid data", func(t *testing.T) {
		_, err := svc.Submit(post, forms.CommentData{Name: "Ada", Body: "no email"})
		assert.Error(t, err)
		counts, err := f.comments.CountActive()
		require.NoError(t, err)
		assert.Zero(t, counts[post.ID])
	})

	t.Run("store failure", func(t *testing.T) {
		f.comments.Fail = true
		defer func() { f.comments.Fail = false }()
		_, err := svc.Submit(post, commentData("Ada"))
		assert.ErrorIs(t, err, mock.ErrForced)
		assert.Empty(t, post.Comments)
	})
}

func TestCommentServiceSetActive(t *testing.T) {
	f := newFixture(t)
	post := f.add(t, "Target", time.Hour, models.StatusPublished)
	svc := NewCommentService(f.store)

	c, err := svc.Submit(post, commentData("Ada"))
	require.NoError(t, err)
	hidden, err := svc.SetActive(c.ID, false)
	require.NoError(t, err)
	assert.False(t, hidden.Active)

	counts, err := f.comments.CountActive()
	require.NoError(t, err)
	assert.Zero(t, counts[post.ID])

	shown, err := svc.SetActive(c.ID, true)
	require.NoError(t, err)
	assert.True(t, shown.Active)

	_, err = svc.SetActive(999, true)
	assert.True(t, IsNotFound(err))
}

type recordingTransport struct {
	sent []mail.Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestShareService(t *testing.T) {
	post := &models.Post{ID: 7, Title: "Hello World"}
	data := forms.ShareData{Name: "Ada", Email: "ada@example.com", To: "bob@example.com", Comments: "Worth it"}
	url := "http://localhost:8080/2024/3/7/hello-world/"

	tr := &recordingTransport{}
	svc := NewShareService(tr, "admin@myblog.com")
	require.NoError(t, svc.Share(context.Background(), post, data, url))
	require.Len(t, tr.sent, 1)

	msg := tr.sent[0]
	assert.Equal(t, "admin@myblog.com", msg.From)
	assert.Equal(t, []string{"bob@example.com"}, msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "Ada recommends you read Hello World", msg.Subject)
	assert.Equal(t, "Read Hello World at "+url+"\n\nAda's comments: Worth it", msg.Body)

	t.Run("transport failure is reported", func(t *testing.T) {
		tr.err = errors.New("connection refused")
		err := svc.Share(context.Background(), post, data, url)
		assert.ErrorContains(t, err, "connection refused")
	})
}
