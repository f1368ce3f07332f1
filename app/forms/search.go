package forms

import "net/url"

// SearchForm validates the search box.
type SearchForm struct{}

// Rules maps each field to its validator constraint.
func (SearchForm) Rules() map[string]string {
	return map[string]string{
		"query": "required,max=200",
	}
}

// Validate returns the trimmed query.
func (f SearchForm) Validate(in url.Values) (string, error) {
	clean, err := check(in, f.Rules())
	return clean["query"], err
}
