package sema

// visibleNames lists every name currently in scope, innermost first,
// without duplicates and without touching used flags.
func (c *checker) visibleNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for i := len(c.scopes) - 1; i >= 0; i-- {
		for _, name := range c.scopes[i].order {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// nearestName picks the candidate closest to name by edit distance, or ""
// when nothing comes close enough to be a plausible typo. Short names only
// tolerate one edit; everything else two.
func nearestName(name string, candidates []string) string {
	if name == "" {
		return ""
	}
	limit := 2
	if len([]rune(name)) < 4 {
		limit = 1
	}
	best := ""
	bestDist := limit + 1
	for _, cand := range candidates {
		if cand == name {
			continue
		}
		if d := editDistance(name, cand, bestDist-1); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b, giving up with
// limit+1 once no alignment can come in at or under limit.
func editDistance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	if d := len(ra) - len(rb); d > limit || -d > limit {
		return limit + 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > limit {
			return limit + 1
		}
		prev, cur = cur, prev
	}
	if prev[len(rb)] > limit {
		return limit + 1
	}
	return prev[len(rb)]
}
