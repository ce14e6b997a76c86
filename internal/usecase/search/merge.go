package search

import (
	"slices"

	"github.com/blinderchief/visiolingua/internal/domain/search/result"
)

// Merge fuses hit lists from several spaces into one ranking for a user.
// Hits owned by other users are dropped, duplicates keep their best score and
// that hit's payload, ties keep first-encounter order, and scores below
// threshold are cut before truncating to topK.
func Merge(hits []result.Result, userID string, threshold float64, topK int) []result.Result {
	pos := make(map[string]int, len(hits))
	merged := make([]result.Result, 0, len(hits))

	for _, h := range hits {
		if h.UserID() != userID {
			continue
		}
		i, seen := pos[h.ID()]
		if !seen {
			pos[h.ID()] = len(merged)
			merged = append(merged, h)
			continue
		}
		if h.Score() > merged[i].Score() {
			merged[i] = h
		}
	}

	slices.SortStableFunc(merged, byScoreDesc)

	out := merged[:0]
	for _, r := range merged {
		if r.Score() < threshold {
			break
		}
		out = append(out, r)
	}
	if topK >= 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func byScoreDesc(a, b result.Result) int {
	switch {
	case a.Score() > b.Score():
		return -1
	case a.Score() < b.Score():
		return 1
	}
	return 0
}
