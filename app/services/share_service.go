package services

import (
	"context"
	"fmt"

	"inkwell/app/forms"
	"inkwell/app/mail"
	"inkwell/app/models"
)

// ShareService emails a post recommendation to a friend.
type ShareService struct {
	transport mail.Transport
	from      string
}

// NewShareService creates a ShareService sending from the given address.
func NewShareService(transport mail.Transport, from string) *ShareService {
	return &ShareService{transport: transport, from: from}
}

// Compose builds the recommendation message for post at postURL.
func (s *ShareService) Compose(post *models.Post, data forms.ShareData, postURL string) mail.Message {
	return mail.Message{
		From:    s.from,
		To:      []string{data.To},
		ReplyTo: data.Email,
		Subject: fmt.Sprintf("%s recommends you read %s", data.Name, post.Title),
		Body:    fmt.Sprintf("Read %s at %s\n\n%s's comments: %s", post.Title, postURL, data.Name, data.Comments),
	}
}

// Share sends the recommendation. A nil error means the transport accepted
// the message.
func (s *ShareService) Share(ctx context.Context, post *models.Post, data forms.ShareData, postURL string) error {
	if err := s.transport.Send(ctx, s.Compose(post, data, postURL)); err != nil {
		return fmt.Errorf("share post %d: %w", post.ID, err)
	}
	return nil
}
