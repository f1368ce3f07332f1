package services

import (
	"fmt"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/repositories"
)

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
}

// NewCommentService creates a new CommentService
func NewCommentService(store *repositories.Store) *CommentService {
	return &CommentService{commentRepo: store.Comments}
}

// Submit stores a validated comment on post. The post always comes from the
// caller, never from submitted data, and new comments are active.
func (s *CommentService) Submit(post *models.Post, data forms.CommentData) (*models.Comment, error) {
	comment := &models.Comment{
		Name:   data.Name,
		Email:  data.Email,
		Body:   data.Body,
		Active: true,
	}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	comment.BeforeCreate()
	if err := comment.Validate(); err != nil {
		return nil, fmt.Errorf("invalid comment: %w", err)
	}

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("save comment: %w", err)
	}
	if err := post.AddComment(comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// SetActive shows or hides a comment. Hidden comments stay stored but
// drop out of the post page and the comment counts.
func (s *CommentService) SetActive(id int, active bool) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("comment %d: %w", id, err)
	}
	comment.Active = active
	if err := s.commentRepo.Update(comment); err != nil {
		return nil, fmt.Errorf("update comment %d: %w", id, err)
	}
	return comment, nil
}
