package textmatch

import (
	"math"
	"sort"
	"strings"
)

// Scorer returns a similarity between 0 and 100.
type Scorer func(a, b string) int

// Ratio is the Indel similarity of a and b on a 0..100 scale:
// 2*LCS / (len(a)+len(b)), rounded half to even. Empty input scores 0.
func Ratio(a, b string) int {
	return roundScore(ratio(a, b))
}

// TokenSetRatio compares the token sets of a and b, ignoring order and
// repetition. When one set is contained in the other the score is 100.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	sort.Strings(sect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sorted := strings.Join(sect, " ")
	combinedA := strings.TrimSpace(sorted + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sorted + " " + strings.Join(onlyB, " "))

	best := ratio(combinedA, combinedB)
	if sorted != "" {
		best = math.Max(best, ratio(sorted, combinedA))
		best = math.Max(best, ratio(sorted, combinedB))
	}
	return roundScore(best)
}

// WordScore returns the best Ratio of term against any single word of text.
func WordScore(term, text string) int {
	if term == "" || text == "" {
		return 0
	}
	best := 0
	for w := range tokenSet(text) {
		if s := Ratio(term, w); s > best {
			best = s
			if best == 100 {
				break
			}
		}
	}
	return best
}

func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return 100 * float64(2*lcs(ra, rb)) / float64(total)
}

// lcs is the length of the longest common subsequence, two-row DP.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func roundScore(f float64) int {
	return int(math.RoundToEven(f))
}
