// internal/assign/suggest.go
package assign

import (
	"sort"

	"github.com/evn/driver_botl/models"
)

// closeMatches подбирает до n имён, похожих на введённое (опечатки).
// Сходство 1 - dist/maxLen по нормализованным строкам, порог cutoff.
func closeMatches(name string, candidates []string, n int, cutoff float64) []string {
	key := models.Normalize(name)
	if key == "" {
		return nil
	}

	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	seen := make(map[string]bool)

	for _, c := range candidates {
		ck := models.Normalize(c)
		if ck == "" || seen[ck] {
			continue
		}
		seen[ck] = true
		if s := similarity(key, ck); s >= cutoff {
			matches = append(matches, scored{name: c, score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein([]rune(a), []rune(b)))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
