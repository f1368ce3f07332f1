package forms

import "net/url"

// CommentData is a validated comment submission. It deliberately has no
// post field: the post always comes from the request path.
type CommentData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Body  string `json:"body"`
}

// CommentForm validates comment submissions.
type CommentForm struct{}

// Rules maps each field to its validator constraint.
func (CommentForm) Rules() map[string]string {
	return map[string]string{
		"name":  "required,max=80",
		"email": "required,email,max=254",
		"body":  "required",
	}
}

// Validate checks the submitted values.
func (f CommentForm) Validate(in url.Values) (CommentData, error) {
	clean, err := check(in, f.Rules())
	data := CommentData{
		Name:  clean["name"],
		Email: clean["email"],
		Body:  clean["body"],
	}
	return data, err
}
