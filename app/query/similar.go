package query

import (
	"sort"

	"inkwell/app/models"
)

// SimilarLimit is the number of related posts shown under a post.
const SimilarLimit = 4

// Similar ranks the candidates that share at least one tag with target.
// Candidates are expected to be the published view; the target itself is
// excluded. Order is shared-tag count descending, then publish descending,
// truncated to limit. A target without tags has no similar posts.
func Similar(target *models.Post, candidates []*models.Post, limit int) []*models.Post {
	if target == nil || len(target.Tags) == 0 || limit <= 0 {
		return nil
	}

	want := make(map[int]struct{}, len(target.Tags))
	for _, id := range target.TagIDs() {
		want[id] = struct{}{}
	}

	type scored struct {
		post   *models.Post
		shared int
	}
	var ranked []scored
	for _, p := range candidates {
		if p.ID == target.ID {
			continue
		}
		shared := 0
		for _, id := range p.TagIDs() {
			if _, ok := want[id]; ok {
				shared++
			}
		}
		if shared > 0 {
			ranked = append(ranked, scored{post: p, shared: shared})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].shared != ranked[j].shared {
			return ranked[i].shared > ranked[j].shared
		}
		return newer(ranked[i].post, ranked[j].post)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]*models.Post, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.post)
	}
	return out
}
