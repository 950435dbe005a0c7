package fieldmap

// Distance returns the Levenshtein edit distance between two strings,
// counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns the normalized edit-distance ratio
// (longerLen - distance) / longerLen. The mapper's thresholds (0.6, 0.8)
// are tuned against exactly this formula.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longer := la
	if lb > la {
		longer = lb
	}
	if longer == 0 {
		return 1
	}
	return float64(longer-Distance(a, b)) / float64(longer)
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
