package query

import (
	"sort"
	"strings"
	"unicode"

	"inkwell/app/models"
)

// Terms splits a free-text query into lower-cased words.
func Terms(q string) []string {
	return strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Match ranks posts against a free-text query over title and body. Every
// term has to occur in the post. Relevance is the number of term
// occurrences, title hits counting double; ties go to the newer post.
// A query without terms matches nothing.
func Match(posts []*models.Post, q string) []*models.Post {
	terms := Terms(q)
	if len(terms) == 0 {
		return nil
	}

	type hit struct {
		post  *models.Post
		score int
	}
	var hits []hit
	for _, p := range posts {
		title := wordCounts(p.Title)
		body := wordCounts(p.Body)
		score := 0
		matched := true
		for _, term := range terms {
			n := 2*title[term] + body[term]
			if n == 0 {
				matched = false
				break
			}
			score += n
		}
		if matched {
			hits = append(hits, hit{post: p, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return newer(hits[i].post, hits[j].post)
	})

	out := make([]*models.Post, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.post)
	}
	return out
}

func wordCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, w := range Terms(s) {
		counts[w]++
	}
	return counts
}

// TruncateWords keeps the first n words of s and marks the cut with an
// ellipsis. Whitespace between the kept words is collapsed.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if n < 0 {
		n = 0
	}
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "…"
}
