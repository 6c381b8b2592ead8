// Package plans collapses near-duplicate free-text insurance plan labels into
// canonical labels. Listings and profiles report the same plan with
// superficially different strings, so exact-match deduplication under-merges.
package plans

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// SimilarityThreshold is the minimum 0-100 similarity for two labels to land
// in the same cluster.
const SimilarityThreshold = 90

// Normalize clusters raw labels and returns the canonical label of each
// cluster, sorted lexicographically. The operation is idempotent: running it
// on its own output returns the same set.
//
// Clustering is greedy: labels are ordered longest-first (a more complete
// string seeds its cluster) with a lexicographic tie-break, then each seed
// absorbs every remaining label within the similarity threshold. The
// canonical label is the most frequent member of its cluster; frequency ties
// resolve to the earliest member in cluster order, which is deterministic.
func Normalize(raw []string) []string {
	counts := make(map[string]int)
	var unique []string
	for _, label := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if counts[label] == 0 {
			unique = append(unique, label)
		}
		counts[label]++
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if len(unique[i]) != len(unique[j]) {
			return len(unique[i]) > len(unique[j])
		}
		return unique[i] < unique[j]
	})

	var canonicals []string
	remaining := unique
	for len(remaining) > 0 {
		seed := remaining[0]
		cluster := []string{seed}
		var rest []string
		for _, label := range remaining[1:] {
			if Similarity(seed, label) >= SimilarityThreshold {
				cluster = append(cluster, label)
			} else {
				rest = append(rest, label)
			}
		}
		remaining = rest
		canonicals = append(canonicals, canonicalLabel(cluster, counts))
	}

	sort.Strings(canonicals)
	return canonicals
}

// Similarity scores two labels on a 0-100 scale, case-insensitively, from
// their Levenshtein distance relative to the longer label.
func Similarity(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 100
	}
	maxLen := len([]rune(la))
	if n := len([]rune(lb)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 100
	}
	dist := matchr.Levenshtein(la, lb)
	if dist >= maxLen {
		return 0
	}
	return 100 - (100*dist+maxLen/2)/maxLen
}

func canonicalLabel(cluster []string, counts map[string]int) string {
	best := cluster[0]
	for _, label := range cluster[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}
