package forms

import "net/url"

// ShareData is a validated "email this post" request.
type ShareData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	To       string `json:"to"`
	Comments string `json:"comments"`
}

// ShareForm validates share-by-email submissions. Comments are optional.
type ShareForm struct{}

// Rules maps each field to its validator constraint.
func (ShareForm) Rules() map[string]string {
	return map[string]string{
		"name":     "required,max=25",
		"email":    "required,email",
		"to":       "required,email",
		"comments": "max=2000",
	}
}

// Validate checks the submitted values.
func (f ShareForm) Validate(in url.Values) (ShareData, error) {
	clean, err := check(in, f.Rules())
	data := ShareData{
		Name:     clean["name"],
		Email:    clean["email"],
		To:       clean["to"],
		Comments: clean["comments"],
	}
	return data, err
}
