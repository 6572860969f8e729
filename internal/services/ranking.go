package services

import (
	"sort"

	"github.com/ArowuTest/crownbid-backend/internal/models"
)

// RankCandidates drops inactive candidates and orders the rest by bid
// descending, then earliest tie-break timestamp, then candidate key. The
// input slice is not modified.
func RankCandidates(candidates []*models.Candidate) []*models.Candidate {
	ranked := make([]*models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil && c.IsActive {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})
	return ranked
}

func rankLess(a, b *models.Candidate) bool {
	if ap, bp := a.BidAmount(), b.BidAmount(); ap != bp {
		return ap > bp
	}
	if at, bt := TieBreakMillis(a), TieBreakMillis(b); at != bt {
		return at < bt
	}
	return a.ID < b.ID
}
