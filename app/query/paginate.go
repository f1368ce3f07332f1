package query

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// PostsPerPage is the listing page size.
const PostsPerPage = 3

// Page is one slice of a paginated sequence plus navigation metadata.
type Page[T any] struct {
	Items          []T  `json:"items"`
	Number         int  `json:"number"`
	NumPages       int  `json:"num_pages"`
	Count          int  `json:"count"`
	HasNext        bool `json:"has_next"`
	HasPrevious    bool `json:"has_previous"`
	NextNumber     int  `json:"next_number,omitempty"`
	PreviousNumber int  `json:"previous_number,omitempty"`
}

// Paginate slices items into pages of perPage and returns the page named by
// token. The token comes straight from the client and is clamped rather than
// rejected: anything that is not a positive integer selects page 1 and a
// number past the end selects the last page. An empty sequence has a single
// empty page.
func Paginate[T any](items []T, perPage int, token string) Page[T] {
	if perPage < 1 {
		perPage = 1
	}
	count := len(items)
	numPages := (count + perPage - 1) / perPage
	if numPages == 0 {
		numPages = 1
	}

	number := ParsePageToken(token)
	if number > numPages {
		number = numPages
	}

	start := (number - 1) * perPage
	end := start + perPage
	if end > count {
		end = count
	}

	page := Page[T]{
		Items:       items[start:end],
		Number:      number,
		NumPages:    numPages,
		Count:       count,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if page.HasNext {
		page.NextNumber = number + 1
	}
	if page.HasPrevious {
		page.PreviousNumber = number - 1
	}
	return page
}

// ParsePageToken turns a client page token into a page number >= 1. A
// positive integer too large for int selects math.MaxInt, which Paginate
// clamps to the last page.
func ParsePageToken(token string) int {
	token = strings.TrimSpace(token)
	n, err := strconv.Atoi(token)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(token, "-") {
		return math.MaxInt
	}
	if err != nil || n < 1 {
		return 1
	}
	return n
}
